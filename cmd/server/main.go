// Command seedsort serves the seedsort batching engine and ships helper
// subcommands for inspecting the ledger and generating load.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
