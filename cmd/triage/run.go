package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openintake/triage/internal/pipeline"
)

var (
	runLimit  int
	runStatus string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full triage pass over pending records",
	Long: `Fetch pending raw records for the tenant, normalize them, detect
duplicates, classify priorities, and persist the audit trail. Use
--dry-run to stop before persistence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}
		result, err := orch.Execute(context.Background(), tenantID, runStatus, runLimit, !runDryRun)
		if err != nil {
			return fmt.Errorf("run %s could not start: %w", result.RunID, err)
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		pipeline.RenderSummary(os.Stdout, result)
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max records to fetch (0 = configured default)")
	runCmd.Flags().StringVar(&runStatus, "status", "", "raw record status filter (default: pending)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "generate events but do not persist them")
}
