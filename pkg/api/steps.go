package api

// Suggester produces a suggested value for a step from the previous
// step's completed value. Steps that can prefill themselves (for example
// by transforming an upstream URL or parameter) attach one via
// Step.Transform.
type Suggester interface {
	Suggest(previous any) any
}

// SuggestFunc adapts a plain function to the Suggester interface.
type SuggestFunc func(previous any) any

func (f SuggestFunc) Suggest(previous any) any { return f(previous) }

// Step describes one named stage of a pipeline.
type Step struct {
	// ID identifies the step within its sequence.
	ID string

	// Done names the record field that holds the completed value.
	Done string

	// Show is the human-readable label.
	Show string

	// Refill protects this step's stored value from being cleared when
	// an earlier step is reverted to (subject to the manager's
	// preserve-refill policy).
	Refill bool

	// Transform, if non-nil, suggests a value from the previous step's
	// completed value.
	Transform Suggester
}

// Sequence is an ordered list of steps with O(1) id lookup.
// By convention the last element is the terminal finalize pseudo-step
// (ID = FinalizeStepID, Done = FinalizedField).
type Sequence struct {
	steps []Step
	index map[string]int
}

// NewSequence builds a Sequence from steps in order. Duplicate ids keep
// the first occurrence's position.
func NewSequence(steps ...Step) Sequence {
	idx := make(map[string]int, len(steps))
	for i, s := range steps {
		if _, ok := idx[s.ID]; !ok {
			idx[s.ID] = i
		}
	}
	return Sequence{steps: steps, index: idx}
}

// Len returns the number of steps.
func (q Sequence) Len() int { return len(q.steps) }

// At returns the step at position i.
func (q Sequence) At(i int) Step { return q.steps[i] }

// IndexOf returns the position of the step with the given id.
func (q Sequence) IndexOf(id string) (int, bool) {
	i, ok := q.index[id]
	return i, ok
}

// NextAfter returns the step following position i, if any.
func (q Sequence) NextAfter(i int) (Step, bool) {
	if i+1 < 0 || i+1 >= len(q.steps) {
		return Step{}, false
	}
	return q.steps[i+1], true
}

// Last returns the final step, conventionally the finalize pseudo-step.
func (q Sequence) Last() (Step, bool) {
	if len(q.steps) == 0 {
		return Step{}, false
	}
	return q.steps[len(q.steps)-1], true
}

// Steps returns a copy of the ordered step list.
func (q Sequence) Steps() []Step {
	out := make([]Step, len(q.steps))
	copy(out, q.steps)
	return out
}
