// Command triage runs the correspondence triage core against a local
// store: ingest raw records, detect duplicates, classify priorities, and
// persist the checksummed audit trail.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openintake/triage/internal/config"
	"github.com/openintake/triage/internal/dedup"
	"github.com/openintake/triage/internal/pipeline"
	"github.com/openintake/triage/internal/rules"
	"github.com/openintake/triage/internal/store/sqlite"
)

var (
	dbPath     string
	tenantID   string
	tablesPath string
	jsonOutput bool
	verbose    bool

	// Set by openStore in PersistentPreRunE; closed after command run.
	st *sqlite.SQLiteStore
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Correspondence triage: dedup, priority classification, audit trail",
	Long: `triage normalizes inbound correspondence records, detects near-duplicate
submissions, applies deterministic priority rules, and emits an immutable,
checksum-verified audit trail for every decision.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		jsonLogs := false
		if err := config.ParseEnvBool("TRIAGE_LOG_JSON", &jsonLogs); err != nil {
			return err
		}
		opts := &slog.HandlerOptions{Level: level}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if jsonLogs {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))

		if cmd.Name() == "version" {
			return nil
		}
		var err error
		st, err = sqlite.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if st != nil {
			return st.Close()
		}
		return nil
	},
}

// newOrchestrator builds the pipeline from environment configuration and
// the optional pattern-table file.
func newOrchestrator() (*pipeline.Orchestrator, error) {
	var tables *rules.Tables
	if tablesPath != "" {
		var err error
		tables, err = rules.LoadTables(tablesPath)
		if err != nil {
			return nil, err
		}
	}
	dedupCfg, err := dedup.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pipeCfg, err := pipeline.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return pipeline.New(st, tables, dedupCfg, pipeCfg, slog.Default())
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ".triage/triage.db", "path to the SQLite store")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "default", "tenant to operate on")
	rootCmd.PersistentFlags().StringVar(&tablesPath, "tables", "", "YAML pattern-table file (built-in tables when empty)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of a human summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
