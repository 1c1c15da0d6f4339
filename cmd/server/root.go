package main

import (
	"github.com/spf13/cobra"
)

// Version is reported by --version.
var Version = "0.1.0"

type globalOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "seedsort",
		Short: "Session-scoped image batching and classification server",
		Long: `seedsort accepts images from seed sorters, batches them per session by
age and size, classifies each image, and samples a share of the results.`,
		Version:      Version,
		SilenceUsage: true,
		Example: `  # Serve REST, MCP and metrics on :8000
  seedsort serve

  # Serve MCP over stdio
  seedsort serve --transport stdio

  # Show finished sessions
  seedsort sessions --output json

  # Run 100 simulated sorters against a running server
  seedsort simulate --url http://localhost:8000 --sorters 100 --images 20`,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config (default $SEEDSORT_CONFIG_PATH)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newSessionsCmd(opts))
	root.AddCommand(newSimulateCmd())

	return root
}
