package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/openintake/triage/internal/types"
)

// Enrichment carries the per-unit context the pipeline gathers before
// classification. Fields may be absent: a rule that lacks its required
// enrichment abstains silently rather than raising.
type Enrichment struct {
	// DueDate is the resolved procedural due date, if any.
	DueDate *time.Time

	// DeadlineMatches is the result of the standalone deadline scan over
	// the unit's content.
	DeadlineMatches []DeadlineMatch

	// RepetitionCount is the number of recent submissions from the same
	// sender inside the rolling window. Zero means the counter was
	// unavailable; the pipeline substitutes 1 on lookup failure.
	RepetitionCount int
}

// Rule is one independent, pure classification predicate. Evaluate
// returns nil when the rule does not match or lacks required enrichment;
// it must never mutate the unit or the enrichment.
type Rule interface {
	ID() string
	Name() string
	Evaluate(unit *types.InformationUnit, enr *Enrichment, now time.Time) *types.RuleApplication
}

// deadlineCriticalRule boosts units whose resolved due date falls within
// the critical window: strictly more than zero and at most three days out.
type deadlineCriticalRule struct{}

func (deadlineCriticalRule) ID() string   { return "deadline_critical" }
func (deadlineCriticalRule) Name() string { return "Deadline critical" }

func (r deadlineCriticalRule) Evaluate(unit *types.InformationUnit, enr *Enrichment, now time.Time) *types.RuleApplication {
	if enr == nil || enr.DueDate == nil {
		return nil
	}
	until := enr.DueDate.Sub(now)
	if until <= 0 || until > 3*24*time.Hour {
		return nil
	}
	return &types.RuleApplication{
		RuleID:        r.ID(),
		RuleName:      r.Name(),
		Matched:       true,
		Boost:         2,
		Justification: fmt.Sprintf("due date %s is %.1f days away", enr.DueDate.Format("2006-01-02"), until.Hours()/24),
		Confidence:    1.0,
	}
}

// actorTypeRule classifies the sender by domain against the actor table.
// First marker match wins. A zero-boost class (the client default) is a
// match without consequence and contributes no justification entry.
type actorTypeRule struct {
	tables *Tables
}

func (actorTypeRule) ID() string   { return "actor_type" }
func (actorTypeRule) Name() string { return "Actor-type priority" }

func (r actorTypeRule) Evaluate(unit *types.InformationUnit, enr *Enrichment, now time.Time) *types.RuleApplication {
	domain := unit.SenderDomain()
	if domain == "" {
		return nil
	}
	class, boost := r.tables.ClassifyActor(domain)
	if boost == 0 {
		return nil
	}
	return &types.RuleApplication{
		RuleID:        r.ID(),
		RuleName:      r.Name(),
		Matched:       true,
		Boost:         boost,
		Justification: fmt.Sprintf("sender domain %s classified as %s", domain, class),
		Confidence:    0.9,
	}
}

// semanticDeadlineRule boosts units whose content matches the deadline
// pattern table: one distinct pattern is worth +1, more than one +2.
type semanticDeadlineRule struct {
	tables *Tables
}

func (semanticDeadlineRule) ID() string   { return "semantic_deadline" }
func (semanticDeadlineRule) Name() string { return "Semantic deadline detection" }

func (r semanticDeadlineRule) Evaluate(unit *types.InformationUnit, enr *Enrichment, now time.Time) *types.RuleApplication {
	matches := r.tables.ScanDeadlines(unit.Content)
	if len(matches) == 0 {
		return nil
	}
	boost := 1
	if len(matches) > 1 {
		boost = 2
	}
	names := make([]string, 0, len(matches))
	var bases []string
	for _, m := range matches {
		names = append(names, m.Name)
		if m.LegalBasis != "" {
			bases = append(bases, m.LegalBasis)
		}
	}
	return &types.RuleApplication{
		RuleID:        r.ID(),
		RuleName:      r.Name(),
		Matched:       true,
		Boost:         boost,
		Justification: fmt.Sprintf("matched deadline patterns: %s", strings.Join(names, ", ")),
		LegalBasis:    strings.Join(bases, "; "),
		Confidence:    0.95,
	}
}

// repetitionAlertRule boosts units whose sender already submitted inside
// the rolling window. Abstains when the counter was unavailable.
type repetitionAlertRule struct{}

func (repetitionAlertRule) ID() string   { return "repetition_alert" }
func (repetitionAlertRule) Name() string { return "Repetition alert" }

func (r repetitionAlertRule) Evaluate(unit *types.InformationUnit, enr *Enrichment, now time.Time) *types.RuleApplication {
	if enr == nil || enr.RepetitionCount < 2 {
		return nil
	}
	return &types.RuleApplication{
		RuleID:        r.ID(),
		RuleName:      r.Name(),
		Matched:       true,
		Boost:         1,
		Justification: fmt.Sprintf("%d submissions from the same sender in the rolling window", enr.RepetitionCount),
		Confidence:    1.0,
	}
}

// DefaultRules returns the reference rule set in registration order.
// Order never changes the final score (addition is commutative) but the
// applied-rules list preserves it for audit readability.
func DefaultRules(tables *Tables) []Rule {
	return []Rule{
		deadlineCriticalRule{},
		actorTypeRule{tables: tables},
		semanticDeadlineRule{tables: tables},
		repetitionAlertRule{},
	}
}
