package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpggio/seedsort/internal/config"
	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/sqlite"
)

func newSessionsCmd(global *globalOptions) *cobra.Command {
	var (
		output string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List finished sessions from the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(global.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DB.Path = dbPath
			}

			db, err := sqlite.New(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.RunMigrations(); err != nil {
				return err
			}

			sessions, err := sqlite.NewLedgerRepository(db).List(cmd.Context())
			if err != nil {
				return err
			}
			return printSessions(cmd.OutOrStdout(), sessions, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "table or json")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite ledger path")
	return cmd
}

func printSessions(w io.Writer, sessions []session.Summary, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tSEED LOT\tACCEPTED\tREJECTED\tSAMPLED\tSTARTED\tDURATION")
		for _, s := range sessions {
			duration := "-"
			if s.EndTime != nil {
				duration = s.EndTime.Sub(s.StartTime).Round(time.Millisecond).String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				s.ID, s.Label, s.Accepted, s.Rejected, s.Sampled,
				s.StartTime.Format(time.RFC3339), duration)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
