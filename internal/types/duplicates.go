package types

import (
	"fmt"
	"time"
)

// DetectionMethod categorizes how a duplicate was identified.
type DetectionMethod string

const (
	// MethodExact indicates identical content hashes
	MethodExact DetectionMethod = "EXACT_MATCH"
	// MethodFuzzy indicates high textual similarity within the fuzzy time window
	MethodFuzzy DetectionMethod = "FUZZY_MATCH"
	// MethodMetadata indicates a historical candidate matched on metadata
	// (same sender, close in time) rather than content
	MethodMetadata DetectionMethod = "METADATA_MATCH"
)

// IsValid checks if the detection method value is valid
func (m DetectionMethod) IsValid() bool {
	switch m {
	case MethodExact, MethodFuzzy, MethodMetadata:
		return true
	}
	return false
}

// Time-window labels attached to detections. The label records which
// policy window the pair fell into, not a computed duration.
const (
	WindowUnlimited = "unlimited"
	Window7Days     = "7_days"
	Window5Minutes  = "5_minutes"
)

// LinkageStatus is the lifecycle state of a duplicate linkage.
// The pipeline only ever produces PROPOSED; the LINKED and DISMISSED
// transitions are human actions taken outside this core.
type LinkageStatus string

const (
	LinkageProposed  LinkageStatus = "PROPOSED"
	LinkageLinked    LinkageStatus = "LINKED"
	LinkageDismissed LinkageStatus = "DISMISSED"
)

// IsValid checks if the linkage status value is valid
func (s LinkageStatus) IsValid() bool {
	switch s {
	case LinkageProposed, LinkageLinked, LinkageDismissed:
		return true
	}
	return false
}

// DuplicateDetection is a proposal that two units duplicate each other.
// It never merges or deletes anything; resolution is a human decision.
type DuplicateDetection struct {
	ID              string          `json:"id"`
	PrimaryUnitID   string          `json:"primary_unit_id"`
	DuplicateUnitID string          `json:"duplicate_unit_id"`
	Method          DetectionMethod `json:"method"`
	Similarity      float64         `json:"similarity"`
	MatchCriteria   map[string]any  `json:"match_criteria,omitempty"`
	TimeWindow      string          `json:"time_window"`
	DetectedAt      time.Time       `json:"detected_at"`
	Status          LinkageStatus   `json:"status"`
}

// Validate checks if the detection has valid field values
func (d *DuplicateDetection) Validate() error {
	if d.PrimaryUnitID == "" {
		return fmt.Errorf("primary_unit_id is required")
	}
	if d.DuplicateUnitID == "" {
		return fmt.Errorf("duplicate_unit_id is required")
	}
	if d.PrimaryUnitID == d.DuplicateUnitID {
		return fmt.Errorf("a unit cannot duplicate itself (%s)", d.PrimaryUnitID)
	}
	if !d.Method.IsValid() {
		return fmt.Errorf("invalid detection method: %s", d.Method)
	}
	if d.Similarity < 0.0 || d.Similarity > 1.0 {
		return fmt.Errorf("similarity must be between 0.0 and 1.0 (got %.2f)", d.Similarity)
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("invalid linkage status: %s", d.Status)
	}
	return nil
}

// DuplicateCandidate is one historical match returned by the duplicate
// index collaborator.
type DuplicateCandidate struct {
	ID              string `json:"id"`
	ContentHash     string `json:"content_hash"`
	SenderEmail     string `json:"sender_email"`
	Reason          string `json:"reason"`
	TimeDiffSeconds int64  `json:"time_diff_seconds"`
}

// LinkageRecord describes the current linkage state of a unit as held by
// the external store.
type LinkageRecord struct {
	UnitID        string        `json:"unit_id"`
	IsPrimary     bool          `json:"is_primary"`
	IsDuplicateOf string        `json:"is_duplicate_of,omitempty"`
	Duplicates    []string      `json:"duplicates,omitempty"`
	LinkageStatus LinkageStatus `json:"linkage_status"`
	LinkedAt      *time.Time    `json:"linked_at,omitempty"`
	LinkedBy      string        `json:"linked_by,omitempty"`
	Reason        string        `json:"reason,omitempty"`
}
