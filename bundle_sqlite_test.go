package pipevine

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

// TestSQLiteBundle_DurableAcrossRestart demonstrates that pipeline state
// written through a SQLite bundle survives a simulated process restart.
func TestSQLiteBundle_DurableAcrossRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "pipevine_bundle.db")
	dsn := "file:" + dbPath + "?_journal=WAL"

	seq := NewSequence(
		Step{ID: "name", Done: "name", Show: "Name"},
		Step{ID: "greeting", Done: "greeting", Show: "Greeting"},
		Step{ID: FinalizeStepID, Done: FinalizedField, Show: "Finalize"},
	)

	// --- Phase 1: create a pipeline and complete the first step.

	db1, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)

	bundle1, err := NewSQLiteBundle(db1, "greeter", nil)
	require.NoError(t, err)

	key, err := bundle1.Manager.GenerateKey(ctx, "Default Profile", "hello workflow", "")
	require.NoError(t, err)
	require.Equal(t, "Default_Profile-hello_workflow-01", key.Full)

	_, err = bundle1.Manager.Initialize(ctx, key.Full, nil)
	require.NoError(t, err)

	_, err = bundle1.Manager.SetStepData(ctx, key.Full, "name", "Gopher", seq)
	require.NoError(t, err)

	bundle1.Close()
	require.NoError(t, db1.Close())

	// --- Phase 2: "restart" with a new DB handle and bundle.

	db2, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db2.Close()

	bundle2, err := NewSQLiteBundle(db2, "greeter", nil)
	require.NoError(t, err)
	defer bundle2.Close()

	st := bundle2.Manager.ReadState(ctx, key.Full)
	rec, ok := st.StepRecord("name")
	require.True(t, ok, "step record should survive the restart")
	require.Equal(t, "Gopher", rec["name"])

	// Key generation resumes where the previous process left off.
	next, err := bundle2.Manager.GenerateKey(ctx, "Default Profile", "hello workflow", "")
	require.NoError(t, err)
	require.Equal(t, "02", next.User)

	// Finish and lock the pipeline on the second handle.
	_, err = bundle2.Manager.SetStepData(ctx, key.Full, "greeting", "hello, Gopher", seq)
	require.NoError(t, err)
	_, err = bundle2.Manager.Finalize(ctx, key.Full, nil)
	require.NoError(t, err)

	require.True(t, bundle2.Manager.ReadState(ctx, key.Full).Finalized())
}

// TestSQLiteBundle_MessageOrdering verifies that status messages queued
// around state transitions reach the sink in order.
func TestSQLiteBundle_MessageOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "msgs.db"))
	require.NoError(t, err)
	defer db.Close()

	bundle, err := NewSQLiteBundle(db, "greeter", nil)
	require.NoError(t, err)
	defer bundle.Close()

	var mu sync.Mutex
	var delivered []string
	sink := SinkFunc(func(ctx context.Context, chunk string) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, chunk)
		return nil
	})

	seq := NewSequence(
		Step{ID: "name", Done: "name", Show: "Name"},
		Step{ID: FinalizeStepID, Done: FinalizedField, Show: "Finalize"},
	)
	msgs := MessageTemplates{
		New: "New pipeline.",
		Steps: map[string]StepMessages{
			"name":         {Complete: "Name recorded: %s."},
			FinalizeStepID: {Complete: "Locked.", Ready: "Ready to lock."},
		},
	}

	_, err = bundle.Manager.Initialize(ctx, "p-w-01", nil)
	require.NoError(t, err)
	bundle.Messages.Add(sink, bundle.Manager.StateMessage(ctx, "p-w-01", seq, msgs), DeliveryOptions{})

	_, err = bundle.Manager.SetStepData(ctx, "p-w-01", "name", "Gopher", seq)
	require.NoError(t, err)
	bundle.Messages.Add(sink, bundle.Manager.StateMessage(ctx, "p-w-01", seq, msgs), DeliveryOptions{})

	_, err = bundle.Manager.Finalize(ctx, "p-w-01", nil)
	require.NoError(t, err)
	bundle.Messages.Add(sink, bundle.Manager.StateMessage(ctx, "p-w-01", seq, msgs), DeliveryOptions{})

	bundle.Messages.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{
		"New pipeline.",
		"Name recorded: Gopher.",
		"Locked.",
	}, delivered)
}
