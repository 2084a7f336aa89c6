package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openintake/triage/internal/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json>",
	Short: "Ingest raw records from a JSON file",
	Long: `Read a JSON array of raw records and store them in pending status.
Each record needs id, tenant_id, channel (EMAIL, UPLOAD, API), content,
received_at, and optional channel-specific attrs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		var recs []*types.RawRecord
		if err := json.Unmarshal(data, &recs); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		ctx := context.Background()
		ingested := 0
		for _, rec := range recs {
			if rec.TenantID == "" {
				rec.TenantID = tenantID
			}
			if err := st.IngestRaw(ctx, rec); err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", rec.ID, err)
				continue
			}
			ingested++
		}
		fmt.Printf("Ingested %d of %d records\n", ingested, len(recs))
		return nil
	},
}
