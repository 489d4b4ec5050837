package pipevine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrapperSequence() Sequence {
	return NewSequence(
		Step{ID: "a", Done: "a_val", Show: "A"},
		Step{ID: "b", Done: "b_val", Show: "B"},
		Step{ID: FinalizeStepID, Done: FinalizedField, Show: "Finalize"},
	)
}

// TestPackageLevelHelpers exercises the top-level forwarding functions
// against an in-memory manager.
func TestPackageLevelHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewInMemoryManager("testapp")
	seq := wrapperSequence()
	msgs := MessageTemplates{
		New: "new",
		Steps: map[string]StepMessages{
			"a":            {Complete: "a=%s"},
			"b":            {Complete: "b done"},
			FinalizeStepID: {Complete: "locked", Ready: "ready"},
		},
	}

	st, err := Initialize(ctx, m, "p-w-01", State{"origin": "test"})
	require.NoError(t, err)
	assert.Equal(t, "test", st["origin"])
	assert.Contains(t, st, CreatedKey)
	assert.Contains(t, st, UpdatedKey)

	assert.Equal(t, "new", StateMessage(ctx, m, "p-w-01", seq, msgs))

	v, err := SetStepData(ctx, m, "p-w-01", "a", "hello", seq)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
	assert.Equal(t, "a=hello", StateMessage(ctx, m, "p-w-01", seq, msgs))

	_, err = SetStepData(ctx, m, "p-w-01", "b", "world", seq)
	require.NoError(t, err)

	st, err = RevertTo(ctx, m, "p-w-01", "a", seq)
	require.NoError(t, err)
	assert.Equal(t, "a", st[RevertTargetKey])
	_, ok := st.StepRecord("b")
	assert.False(t, ok, "revert should clear downstream records")

	st, err = Finalize(ctx, m, "p-w-01", nil)
	require.NoError(t, err)
	assert.True(t, st.Finalized())
	assert.Equal(t, "locked", StateMessage(ctx, m, "p-w-01", seq, msgs))

	st, err = Unfinalize(ctx, m, "p-w-01")
	require.NoError(t, err)
	assert.False(t, st.Finalized())
}

// TestObserverWiring verifies that an observer passed at construction
// receives lifecycle callbacks.
func TestObserverWiring(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	metrics := &BasicMetrics{}
	m := NewInMemoryManagerWithObserver("testapp", metrics)
	seq := wrapperSequence()

	_, err := m.Initialize(ctx, "p-w-01", nil)
	require.NoError(t, err)
	_, err = m.SetStepData(ctx, "p-w-01", "a", "hello", seq)
	require.NoError(t, err)
	_, err = m.Finalize(ctx, "p-w-01", nil)
	require.NoError(t, err)
	_, err = m.Unfinalize(ctx, "p-w-01")
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.PipelinesCreated)
	assert.Equal(t, int64(1), snap.StepsSet)
	assert.Equal(t, int64(1), snap.Finalized)
	assert.Equal(t, int64(1), snap.Unfinalized)
}
