package events

import (
	"context"

	"github.com/openintake/triage/internal/rules"
	"github.com/openintake/triage/internal/types"
)

// The constructors below assemble the full justification payload for each
// event kind: what matched, why, with what confidence, and under which
// procedural references. Payloads are plain maps so canonicalization sees
// exactly what gets persisted.

// NewFlowClassifiedEvent builds the audit event for one classification.
func (l *Logger) NewFlowClassifiedEvent(ctx context.Context, result *types.ClassificationResult) (*types.EventLog, error) {
	applied := make([]map[string]any, 0, len(result.Applications))
	for _, app := range result.Applications {
		entry := map[string]any{
			"rule_id":       app.RuleID,
			"rule_name":     app.RuleName,
			"boost":         app.Boost,
			"justification": app.Justification,
			"confidence":    app.Confidence,
		}
		if app.LegalBasis != "" {
			entry["legal_basis"] = app.LegalBasis
		}
		applied = append(applied, entry)
	}
	metadata := map[string]any{
		"base_priority":             string(result.BasePriority),
		"final_priority":            string(result.FinalPriority),
		"score":                     result.Score,
		"applied_rules":             applied,
		"requires_human_validation": result.RequiresHumanValidation,
	}
	return l.BuildEvent(ctx, types.EventFlowClassified, "information_unit", result.UnitID,
		result.TenantID, types.ActorSystem, "", metadata)
}

// NewDuplicateDetectedEvent builds the audit event for one detected pair.
func (l *Logger) NewDuplicateDetectedEvent(ctx context.Context, tenantID string, det *types.DuplicateDetection) (*types.EventLog, error) {
	metadata := map[string]any{
		"primary_unit_id":   det.PrimaryUnitID,
		"duplicate_unit_id": det.DuplicateUnitID,
		"method":            string(det.Method),
		"similarity":        det.Similarity,
		"time_window":       det.TimeWindow,
		"status":            string(det.Status),
	}
	if len(det.MatchCriteria) > 0 {
		metadata["match_criteria"] = det.MatchCriteria
	}
	return l.BuildEvent(ctx, types.EventDuplicateDetected, "duplicate_detection", det.ID,
		tenantID, types.ActorSystem, "", metadata)
}

// NewDeadlineDetectedEvent builds the audit event emitted when the
// standalone deadline scan matches at least one pattern.
func (l *Logger) NewDeadlineDetectedEvent(ctx context.Context, unit *types.InformationUnit, matches []rules.DeadlineMatch) (*types.EventLog, error) {
	patterns := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		entry := map[string]any{
			"name":            m.Name,
			"standard_days":   m.StandardDays,
			"escalation_days": m.EscalationDays,
		}
		if m.LegalBasis != "" {
			entry["legal_basis"] = m.LegalBasis
		}
		patterns = append(patterns, entry)
	}
	metadata := map[string]any{
		"patterns":      patterns,
		"pattern_count": len(matches),
	}
	return l.BuildEvent(ctx, types.EventDeadlineDetected, "information_unit", unit.ID,
		unit.TenantID, types.ActorSystem, "", metadata)
}

// NewDeadlineCriticalEvent builds the audit event emitted when a resolved
// due date crosses the escalation threshold.
func (l *Logger) NewDeadlineCriticalEvent(ctx context.Context, unit *types.InformationUnit, dueDate string, daysRemaining float64) (*types.EventLog, error) {
	metadata := map[string]any{
		"due_date":       dueDate,
		"days_remaining": daysRemaining,
	}
	return l.BuildEvent(ctx, types.EventDeadlineCritical, "information_unit", unit.ID,
		unit.TenantID, types.ActorSystem, "", metadata)
}

// NewPipelineCompletedEvent builds the closing audit event for a run.
func (l *Logger) NewPipelineCompletedEvent(ctx context.Context, result *types.PipelineResult) (*types.EventLog, error) {
	metadata := map[string]any{
		"run_id":           result.RunID,
		"units_ingested":   result.UnitsIngested,
		"units_normalized": result.UnitsNormalized,
		"units_classified": result.UnitsClassified,
		"duplicates_found": result.DuplicatesFound,
		"events_generated": result.EventsGenerated,
		"error_count":      len(result.Errors),
		"elapsed_ms":       result.Elapsed.Milliseconds(),
	}
	return l.BuildEvent(ctx, types.EventPipelineCompleted, "pipeline_run", result.RunID,
		result.TenantID, types.ActorSystem, "", metadata)
}
