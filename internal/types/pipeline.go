package types

import (
	"fmt"
	"time"
)

// UnitError records a recoverable per-unit failure collected during a run.
type UnitError struct {
	UnitID  string `json:"unit_id,omitempty"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func (e UnitError) String() string {
	if e.UnitID == "" {
		return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Stage, e.UnitID, e.Message)
}

// PipelineResult is the summary of one triage run. It is a return value,
// not a persisted record; its constituent EventLogs are what get stored.
// The counts always reflect exactly what succeeded, including under
// partial failure.
type PipelineResult struct {
	RunID            string                  `json:"run_id"`
	TenantID         string                  `json:"tenant_id"`
	StartedAt        time.Time               `json:"started_at"`
	UnitsIngested    int                     `json:"units_ingested"`
	UnitsNormalized  int                     `json:"units_normalized"`
	DuplicatesFound  int                     `json:"duplicates_found"`
	ExactMatches     int                     `json:"exact_matches"`
	UnitsClassified  int                     `json:"units_classified"`
	EventsGenerated  int                     `json:"events_generated"`
	EventsPersisted  int                     `json:"events_persisted"`
	EventsFailed     int                     `json:"events_failed"`
	Classifications  []*ClassificationResult `json:"classifications,omitempty"`
	Detections       []*DuplicateDetection   `json:"detections,omitempty"`
	Events           []*EventLog             `json:"events,omitempty"`
	Elapsed          time.Duration           `json:"elapsed_ns"`
	Errors           []UnitError             `json:"errors,omitempty"`
}

// ErrorSample returns up to max collected errors for operator review.
// The summary always reports the total count alongside the sample so
// nothing is silently dropped.
func (r *PipelineResult) ErrorSample(max int) []UnitError {
	if max <= 0 || len(r.Errors) <= max {
		return r.Errors
	}
	return r.Errors[:max]
}
