package types

import (
	"fmt"
	"time"
)

// EventType categorizes audit trail events emitted by the pipeline.
type EventType string

const (
	// EventFlowClassified indicates a unit was classified by the rule engine
	EventFlowClassified EventType = "FLOW_CLASSIFIED"
	// EventDuplicateDetected indicates a duplicate pair was proposed
	EventDuplicateDetected EventType = "DUPLICATE_DETECTED"
	// EventDeadlineDetected indicates a deadline pattern matched in content
	EventDeadlineDetected EventType = "DEADLINE_DETECTED"
	// EventDeadlineCritical indicates a resolved due date crossed the escalation threshold
	EventDeadlineCritical EventType = "DEADLINE_CRITICAL"
	// EventPipelineCompleted indicates a pipeline run finished
	EventPipelineCompleted EventType = "PIPELINE_COMPLETED"
)

// IsValid checks if the event type value is valid
func (t EventType) IsValid() bool {
	switch t {
	case EventFlowClassified, EventDuplicateDetected, EventDeadlineDetected,
		EventDeadlineCritical, EventPipelineCompleted:
		return true
	}
	return false
}

// ActorType identifies what kind of actor caused an event.
type ActorType string

const (
	ActorSystem ActorType = "SYSTEM"
	ActorUser   ActorType = "USER"
	ActorAI     ActorType = "AI"
)

// IsValid checks if the actor type value is valid
func (a ActorType) IsValid() bool {
	switch a {
	case ActorSystem, ActorUser, ActorAI:
		return true
	}
	return false
}

// EventLog is one append-only audit record. The checksum is computed over
// the canonical byte form of Metadata, so two events with the same logical
// metadata always carry the same checksum regardless of map insertion
// order. Events are never mutated or deleted after creation.
type EventLog struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenant_id"`
	Timestamp       time.Time      `json:"timestamp"`
	EventType       EventType      `json:"event_type"`
	EntityType      string         `json:"entity_type"`
	EntityID        string         `json:"entity_id"`
	ActorType       ActorType      `json:"actor_type"`
	ActorID         *string        `json:"actor_id"`
	Metadata        map[string]any `json:"metadata"`
	Immutable       bool           `json:"immutable"`
	Checksum        string         `json:"checksum"`
	PreviousEventID string         `json:"previous_event_id,omitempty"`
}

// Validate checks if the event log has valid field values
func (e *EventLog) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if e.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if !e.EventType.IsValid() {
		return fmt.Errorf("invalid event type: %s", e.EventType)
	}
	if e.EntityType == "" {
		return fmt.Errorf("entity_type is required")
	}
	if e.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	if !e.ActorType.IsValid() {
		return fmt.Errorf("invalid actor type: %s", e.ActorType)
	}
	if !e.Immutable {
		return fmt.Errorf("events must be immutable")
	}
	if e.Checksum == "" {
		return fmt.Errorf("checksum is required")
	}
	return nil
}

// PersistReceipt reports the outcome of one batched persistence call.
type PersistReceipt struct {
	CreatedCount int      `json:"created_count"`
	FailedCount  int      `json:"failed_count"`
	Errors       []string `json:"errors,omitempty"`
}
