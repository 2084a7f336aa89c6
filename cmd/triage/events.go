package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openintake/triage/internal/events"
	"github.com/openintake/triage/internal/normalize"
	"github.com/openintake/triage/internal/types"
)

var (
	eventsLimit  int
	eventsVerify bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent audit events",
	Long: `List the tenant's most recent audit events. With --verify, recompute
each event's checksum from its stored metadata and flag mismatches.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		evs, err := st.RecentEvents(context.Background(), tenantID, eventsLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(evs)
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		for _, e := range evs {
			line := fmt.Sprintf("%s  %-20s %s/%s",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, e.EntityType, e.EntityID)
			if eventsVerify {
				ok, verr := events.VerifyChecksum(e)
				switch {
				case verr != nil:
					line += "  " + red("verify error: "+verr.Error())
				case ok:
					line += "  " + green("✓")
				default:
					line += "  " + red("CHECKSUM MISMATCH")
				}
			}
			fmt.Println(line)
		}
		if len(evs) == 0 {
			fmt.Println("No events.")
		}
		return nil
	},
}

// normalizeAll is a small helper shared by ad-hoc commands.
func normalizeAll(raws []*types.RawRecord) ([]*types.InformationUnit, []types.UnitError) {
	return normalize.New(nil).NormalizeBatch(raws)
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "max events to show")
	eventsCmd.Flags().BoolVar(&eventsVerify, "verify", false, "recompute and verify checksums")
}
