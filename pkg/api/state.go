package api

// Reserved state document keys.
//
// Every pipeline state document carries Created and Updated stamps.
// RevertTarget is transient: a revert action sets it and the next
// SetStepData call removes it. The finalize pseudo-step locks the
// pipeline once its record contains Finalized.
const (
	CreatedKey      = "created"
	UpdatedKey      = "updated"
	RevertTargetKey = "_revert_target"

	// FinalizeStepID is the conventional id of the terminal pseudo-step.
	FinalizeStepID = "finalize"

	// FinalizedField is the done-field of the terminal pseudo-step.
	FinalizedField = "finalized"
)

// State is one pipeline's decoded state document: a schema-less mapping
// from step ids (plus the reserved keys above) to step records. Unknown
// keys must survive read-modify-write cycles unmodified, so State is a
// plain map rather than a fixed struct.
type State map[string]any

// StepRecord returns the record stored under stepID, if any. A value
// that is present but not a record (for example a reserved string key)
// reports false.
func (s State) StepRecord(stepID string) (map[string]any, bool) {
	v, ok := s[stepID]
	if !ok {
		return nil, false
	}
	rec, ok := v.(map[string]any)
	return rec, ok
}

// Finalized reports whether the document is locked against further step
// mutation, i.e. the finalize record is present and carries its done flag.
func (s State) Finalized() bool {
	rec, ok := s.StepRecord(FinalizeStepID)
	if !ok {
		return false
	}
	_, ok = rec[FinalizedField]
	return ok
}
