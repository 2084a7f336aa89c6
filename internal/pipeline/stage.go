package pipeline

// Stage represents one step of the triage run state machine.
type Stage string

const (
	StageIngest             Stage = "INGEST"
	StageDuplicateDetection Stage = "DUPLICATE_DETECTION"
	StageClassification     Stage = "CLASSIFICATION"
	StageEventGeneration    Stage = "EVENT_GENERATION"
	StagePersistence        Stage = "PERSISTENCE"
	StageDone               Stage = "DONE"
)

// IsValid checks if the stage value is valid
func (s Stage) IsValid() bool {
	switch s {
	case StageIngest, StageDuplicateDetection, StageClassification,
		StageEventGeneration, StagePersistence, StageDone:
		return true
	}
	return false
}

// ValidTransitions defines the valid transitions of the run state
// machine. The pipeline is strictly sequential with no automatic
// retries.
//
//	INGEST → DUPLICATE_DETECTION → CLASSIFICATION → EVENT_GENERATION → PERSISTENCE → DONE
//	   ↓                                                    ↓
//	 DONE (zero normalized units)                         DONE (persistence disabled)
func (s Stage) ValidTransitions() []Stage {
	switch s {
	case StageIngest:
		return []Stage{StageDuplicateDetection, StageDone}
	case StageDuplicateDetection:
		return []Stage{StageClassification}
	case StageClassification:
		return []Stage{StageEventGeneration}
	case StageEventGeneration:
		return []Stage{StagePersistence, StageDone}
	case StagePersistence:
		return []Stage{StageDone}
	case StageDone:
		return []Stage{} // Terminal state
	default:
		return []Stage{}
	}
}

// CanTransitionTo checks if a transition from this stage to the target is valid
func (s Stage) CanTransitionTo(target Stage) bool {
	for _, valid := range s.ValidTransitions() {
		if valid == target {
			return true
		}
	}
	return false
}
