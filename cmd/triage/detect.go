package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var detectLimit int

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run duplicate detection over pending records without classifying",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}
		ctx := context.Background()

		raws, err := st.FetchUnits(ctx, tenantID, "pending", detectLimit)
		if err != nil {
			return fmt.Errorf("fetching records: %w", err)
		}
		units, errs := normalizeAll(raws)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "skipping: %s\n", e)
		}

		detections, exact, err := orch.DetectDuplicates(ctx, units, tenantID)
		if err != nil {
			return err
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(detections)
		}
		fmt.Printf("Scanned %d units: %d proposals (%d exact)\n", len(units), len(detections), exact)
		for _, det := range detections {
			fmt.Printf("  %s  %s -> %s  similarity %.3f  window %s\n",
				det.Method, det.PrimaryUnitID, det.DuplicateUnitID, det.Similarity, det.TimeWindow)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().IntVar(&detectLimit, "limit", 100, "max records to scan")
}
