package api

import (
	"context"
	"errors"
)

var (
	// ErrKeyConflict is returned when a pipeline key is already in use.
	// It is surfaced as a value so callers can present a recoverable
	// "try a different identifier" message.
	ErrKeyConflict = errors.New("pipeline key already in use")

	// ErrPipelineNotFound is returned when a pipeline record is not found.
	ErrPipelineNotFound = errors.New("pipeline not found")
)

// Key is a composite pipeline identifier of the form
// profile-plugin-user, with spaces in the profile and plugin parts
// replaced by underscores.
type Key struct {
	Full    string
	Prefix  string
	Profile string
	Plugin  string
	User    string
}

// StepMessages holds the status templates for one step.
// Complete may contain a single %s placeholder for the stored value.
type StepMessages struct {
	Complete string
	Ready    string
}

// MessageTemplates maps pipeline progress to user-facing status messages.
type MessageTemplates struct {
	// New is returned for a pipeline with no completed steps.
	New string

	// Steps maps step ids (including FinalizeStepID) to their templates.
	Steps map[string]StepMessages
}

// SetOptions adjusts SetStepData behavior.
type SetOptions struct {
	// KeepDownstream skips the implicit clear of steps after the one
	// being written.
	KeepDownstream bool
}

// SetOption mutates SetOptions.
type SetOption func(*SetOptions)

// KeepDownstream returns a SetOption that leaves downstream step records
// in place when writing a step value.
func KeepDownstream() SetOption {
	return func(o *SetOptions) { o.KeepDownstream = true }
}

// StateManager is the high-level pipeline state API.
//
// It persists per-key state documents, computes revert and finalize
// transitions over a step sequence, resolves human-readable status
// messages, and generates composite pipeline keys.
type StateManager interface {
	// Initialize returns the existing state for pkey, or creates a fresh
	// document stamped with created/updated plus the given fields.
	// Repeated calls with the same pkey never perform more than one
	// insert. A genuine key collision is reported as ErrKeyConflict.
	Initialize(ctx context.Context, pkey string, fields State) (State, error)

	// ReadState decodes the stored document for pkey. Missing or
	// corrupted state degrades to an empty document; it never errors.
	ReadState(ctx context.Context, pkey string) State

	// WriteState stamps the document's updated field and persists it,
	// replacing the stored document wholesale (last writer wins).
	WriteState(ctx context.Context, pkey string, st State) error

	// StepData returns the record stored for stepID, or def when absent.
	StepData(ctx context.Context, pkey, stepID string, def map[string]any) map[string]any

	// SetStepData writes {done: value} for stepID, clearing downstream
	// steps first unless KeepDownstream is given, and drops any pending
	// revert marker. It returns the value for caller confirmation.
	SetStepData(ctx context.Context, pkey, stepID string, value any, seq Sequence, opts ...SetOption) (any, error)

	// ClearStepsFrom removes the records of every step strictly after
	// stepID, except refill-flagged steps when the preserve-refill
	// policy is enabled. An unknown stepID is a logged no-op.
	ClearStepsFrom(ctx context.Context, pkey, stepID string, seq Sequence) (State, error)

	// RevertTo rolls the pipeline back to stepID: downstream records are
	// cleared and a transient revert marker is stored until the next
	// SetStepData call.
	RevertTo(ctx context.Context, pkey, stepID string, seq Sequence) (State, error)

	// FinalizeNeeded reports whether the step after stepIndex is the
	// terminal finalize pseudo-step.
	FinalizeNeeded(stepIndex int, seq Sequence) bool

	// Finalize locks the pipeline, merging extra fields into the state
	// if provided.
	Finalize(ctx context.Context, pkey string, extra State) (State, error)

	// Unfinalize removes the finalize record entirely, unlocking the
	// pipeline. Non-finalize step records are untouched.
	Unfinalize(ctx context.Context, pkey string) (State, error)

	// StateMessage resolves the pipeline's status message with
	// deterministic precedence: finalized > ready to finalize >
	// most-recently-completed step > brand new.
	StateMessage(ctx context.Context, pkey string, seq Sequence, msgs MessageTemplates) string

	// Suggest feeds the previous step's completed value through stepID's
	// Transform, if any. Unknown steps and missing transforms yield nil.
	Suggest(ctx context.Context, pkey, stepID string, seq Sequence) (any, error)

	// GenerateKey builds the next pipeline key for a profile/plugin
	// pair. An empty userInput auto-increments over existing numeric
	// suffixes; an all-digit input is zero-padded the same way; anything
	// else is used verbatim.
	GenerateKey(ctx context.Context, profile, plugin, userInput string) (Key, error)

	// ParseKey splits a key on its first two separators. Missing parts
	// become empty strings.
	ParseKey(key string) Key

	// Keys lists this app's pipeline keys sharing the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
