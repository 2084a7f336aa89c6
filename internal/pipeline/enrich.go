package pipeline

import (
	"context"
	"time"

	"github.com/openintake/triage/internal/normalize"
	"github.com/openintake/triage/internal/rules"
	"github.com/openintake/triage/internal/types"
)

// criticalDeadlineWindow is the due-date proximity that makes a deadline
// critical: strictly more than zero and at most three days out.
const criticalDeadlineWindow = 3 * 24 * time.Hour

// enrich gathers the per-unit context the rule engine consumes: the
// standalone deadline scan, a resolved due date, and the repetition
// counter. Lookup failures degrade (repetition count 1) rather than fail.
func (o *Orchestrator) enrich(ctx context.Context, unit *types.InformationUnit) *rules.Enrichment {
	matches := o.tables.ScanDeadlines(unit.Content)
	return &rules.Enrichment{
		DeadlineMatches: matches,
		DueDate:         o.resolveDueDate(unit, matches),
		RepetitionCount: o.repetitionCount(ctx, unit),
	}
}

// resolveDueDate resolves a unit's procedural due date. An explicit
// due_date in the source metadata wins; otherwise the matched deadline
// pattern with the shortest standard period anchors the due date at
// receipt time plus that period. No due date resolves to nil.
func (o *Orchestrator) resolveDueDate(unit *types.InformationUnit, matches []rules.DeadlineMatch) *time.Time {
	if due, err := normalize.ParseDueDate(unit); err == nil {
		return &due
	}
	if len(matches) == 0 {
		return nil
	}
	shortest := matches[0].StandardDays
	for _, m := range matches[1:] {
		if m.StandardDays < shortest {
			shortest = m.StandardDays
		}
	}
	due := unit.ReceivedAt.Add(time.Duration(shortest) * 24 * time.Hour)
	return &due
}

// repetitionCount queries the rolling-window repetition counter with a
// bounded timeout. Any failure degrades to 1 (the unit itself).
func (o *Orchestrator) repetitionCount(ctx context.Context, unit *types.InformationUnit) int {
	sender := unit.SenderEmail()
	if sender == "" {
		return 1
	}
	lctx, cancel := context.WithTimeout(ctx, o.cfg.LookupTimeout)
	defer cancel()

	count, err := o.store.CountRecentFromSender(lctx, unit.TenantID, sender, o.cfg.RepetitionWindow)
	if err != nil {
		o.log.Warn("repetition counter unavailable, defaulting to 1",
			"unit", unit.ID, "error", err)
		return 1
	}
	// The counter covers previously stored units; the current submission
	// itself always counts.
	if count < 1 {
		return 1
	}
	return count + 1
}
