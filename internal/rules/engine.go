// Package rules implements the stateless priority classification engine:
// an ordered set of independent pure rules whose boosts are summed onto a
// neutral base score and clamped to the [0,3] priority range.
package rules

import (
	"log/slog"
	"time"

	"github.com/openintake/triage/internal/types"
)

// baseScore is the neutral starting score; it maps to MEDIUM.
const baseScore = 1

// Engine evaluates the registered rules against units. It holds only
// read-only rule tables and is safe for concurrent use.
type Engine struct {
	rules []Rule
	log   *slog.Logger
	now   func() time.Time
}

// NewEngine creates an Engine over the given rule set. A nil logger falls
// back to slog.Default().
func NewEngine(ruleSet []Rule, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rules: ruleSet, log: logger, now: time.Now}
}

// NewDefaultEngine creates an Engine with the reference rule set built
// from the given tables (nil tables use the compiled-in defaults).
func NewDefaultEngine(tables *Tables, logger *slog.Logger) *Engine {
	if tables == nil {
		tables = DefaultTables()
	}
	return NewEngine(DefaultRules(tables), logger)
}

// Classify runs every rule against the unit and produces the
// classification result. Boosts are additive (and may be negative), the
// final score is clamped to [0,3], and the applications list preserves
// rule registration order.
func (e *Engine) Classify(unit *types.InformationUnit, enr *Enrichment) *types.ClassificationResult {
	now := e.now().UTC()
	score := baseScore
	var applications []types.RuleApplication

	for _, rule := range e.rules {
		app := rule.Evaluate(unit, enr, now)
		if app == nil {
			continue
		}
		score += app.Boost
		applications = append(applications, *app)
	}

	final := types.ClampScore(score)
	priority := types.PriorityFromScore(final)

	result := &types.ClassificationResult{
		UnitID:                  unit.ID,
		TenantID:                unit.TenantID,
		Applications:            applications,
		BasePriority:            types.PriorityMedium,
		FinalPriority:           priority,
		Score:                   final,
		ClassifiedAt:            now,
		RequiresHumanValidation: priority == types.PriorityCritical,
	}

	e.log.Debug("unit classified",
		"unit", unit.ID,
		"priority", priority,
		"score", final,
		"rules_matched", len(applications))
	return result
}
