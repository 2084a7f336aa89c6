package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/openintake/triage/internal/types"
)

// errorSampleSize bounds how many collected errors the summary prints;
// the total count is always shown so nothing is silently dropped.
const errorSampleSize = 10

// RenderSummary writes a human-readable run summary.
func RenderSummary(w io.Writer, result *types.PipelineResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n\n", cyan("=== Triage Run Summary ==="))
	fmt.Fprintf(w, "  Run:      %s\n", result.RunID)
	fmt.Fprintf(w, "  Tenant:   %s\n", result.TenantID)
	fmt.Fprintf(w, "  Started:  %s\n", result.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Elapsed:  %v\n\n", result.Elapsed.Round(time.Millisecond))

	fmt.Fprintf(w, "%s\n", yellow("Units:"))
	fmt.Fprintf(w, "  Ingested:    %d\n", result.UnitsIngested)
	fmt.Fprintf(w, "  Normalized:  %d\n", result.UnitsNormalized)
	fmt.Fprintf(w, "  Classified:  %d\n\n", result.UnitsClassified)

	fmt.Fprintf(w, "%s\n", yellow("Duplicates:"))
	fmt.Fprintf(w, "  Proposed:      %d\n", result.DuplicatesFound)
	fmt.Fprintf(w, "  Exact matches: %d\n\n", result.ExactMatches)

	fmt.Fprintf(w, "%s\n", yellow("Audit events:"))
	fmt.Fprintf(w, "  Generated:  %d\n", result.EventsGenerated)
	if result.EventsFailed > 0 {
		fmt.Fprintf(w, "  Persisted:  %s / %s failed\n",
			green(result.EventsPersisted), red(result.EventsFailed))
	} else {
		fmt.Fprintf(w, "  Persisted:  %d\n", result.EventsPersisted)
	}

	if len(result.Errors) == 0 {
		fmt.Fprintf(w, "\n%s\n", green("No errors."))
		return
	}
	fmt.Fprintf(w, "\n%s\n", red(fmt.Sprintf("Errors: %d", len(result.Errors))))
	for _, e := range result.ErrorSample(errorSampleSize) {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if len(result.Errors) > errorSampleSize {
		fmt.Fprintf(w, "  %s\n", gray(fmt.Sprintf("... and %d more", len(result.Errors)-errorSampleSize)))
	}
}
