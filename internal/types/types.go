package types

import (
	"fmt"
	"strings"
	"time"
)

// SourceChannel identifies where an inbound record entered the system.
type SourceChannel string

const (
	ChannelEmail  SourceChannel = "EMAIL"
	ChannelUpload SourceChannel = "UPLOAD"
	ChannelAPI    SourceChannel = "API"
)

// IsValid checks if the source channel value is valid
func (c SourceChannel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelUpload, ChannelAPI:
		return true
	}
	return false
}

// RawRecord is an unprocessed inbound record as delivered by a source
// collaborator. The normalizer converts it into an InformationUnit.
// ReceivedAt is kept as a string because sources deliver heterogeneous
// timestamp formats; parsing happens during normalization.
type RawRecord struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Channel    SourceChannel  `json:"channel"`
	Content    string         `json:"content"`
	ReceivedAt string         `json:"received_at"`
	Attrs      map[string]any `json:"attrs,omitempty"`
}

// InformationUnit is one normalized inbound record. Units are immutable
// once created: the content hash is a pure function of the trimmed
// content, and no pipeline stage ever mutates a unit after normalization.
type InformationUnit struct {
	ID                string         `json:"id"`
	TenantID          string         `json:"tenant_id"`
	Channel           SourceChannel  `json:"channel"`
	Content           string         `json:"content"`
	ContentHash       string         `json:"content_hash"`
	ReceivedAt        time.Time      `json:"received_at"`
	ClassifiedAt      *time.Time     `json:"classified_at,omitempty"`
	AnalyzedAt        *time.Time     `json:"analyzed_at,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	LinkedWorkspaceID string         `json:"linked_workspace_id,omitempty"`
}

// Validate checks if the unit has valid field values
func (u *InformationUnit) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("id is required")
	}
	if u.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if !u.Channel.IsValid() {
		return fmt.Errorf("invalid channel: %s", u.Channel)
	}
	if u.ContentHash == "" {
		return fmt.Errorf("content_hash is required")
	}
	if u.ReceivedAt.IsZero() {
		return fmt.Errorf("received_at is required")
	}
	return nil
}

// SenderEmail returns the sender address extracted during normalization,
// or "" for channels without one.
func (u *InformationUnit) SenderEmail() string {
	if u.Metadata == nil {
		return ""
	}
	if s, ok := u.Metadata["sender_email"].(string); ok {
		return s
	}
	return ""
}

// SenderDomain returns the domain part of the sender address, lowercased.
func (u *InformationUnit) SenderDomain() string {
	addr := u.SenderEmail()
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}

// Priority is the triage priority assigned to a unit.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ClampScore clamps a raw additive score to the [0,3] scoring range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 3 {
		return 3
	}
	return score
}

// PriorityFromScore maps a clamped score to its priority level:
// 0=LOW, 1=MEDIUM, 2=HIGH, 3=CRITICAL.
func PriorityFromScore(score int) Priority {
	switch ClampScore(score) {
	case 0:
		return PriorityLow
	case 1:
		return PriorityMedium
	case 2:
		return PriorityHigh
	default:
		return PriorityCritical
	}
}

// RuleApplication records one rule that matched during classification.
// Rules that do not match produce no application at all.
type RuleApplication struct {
	RuleID        string  `json:"rule_id"`
	RuleName      string  `json:"rule_name"`
	Matched       bool    `json:"matched"`
	Boost         int     `json:"boost"`
	Justification string  `json:"justification"`
	LegalBasis    string  `json:"legal_basis,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// Validate checks if the rule application has valid field values
func (a *RuleApplication) Validate() error {
	if a.RuleID == "" {
		return fmt.Errorf("rule_id is required")
	}
	if a.Confidence < 0.0 || a.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0 (got %.2f)", a.Confidence)
	}
	return nil
}

// ClassificationResult is the outcome of running the rule engine against
// one unit. It is never persisted standalone; it is always wrapped into
// an EventLog before leaving the pipeline.
type ClassificationResult struct {
	UnitID                  string            `json:"unit_id"`
	TenantID                string            `json:"tenant_id"`
	Applications            []RuleApplication `json:"applications"`
	BasePriority            Priority          `json:"base_priority"`
	FinalPriority           Priority          `json:"final_priority"`
	Score                   int               `json:"score"`
	ClassifiedAt            time.Time         `json:"classified_at"`
	RequiresHumanValidation bool              `json:"requires_human_validation"`
}

// Validate checks if the classification result has valid field values
func (r *ClassificationResult) Validate() error {
	if r.UnitID == "" {
		return fmt.Errorf("unit_id is required")
	}
	if r.Score < 0 || r.Score > 3 {
		return fmt.Errorf("score must be between 0 and 3 (got %d)", r.Score)
	}
	if !r.FinalPriority.IsValid() {
		return fmt.Errorf("invalid final priority: %s", r.FinalPriority)
	}
	for i := range r.Applications {
		if err := r.Applications[i].Validate(); err != nil {
			return fmt.Errorf("application %d: %w", i, err)
		}
	}
	return nil
}
