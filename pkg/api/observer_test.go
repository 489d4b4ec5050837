package api

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func fireAll(o Observer) {
	ctx := context.Background()
	o.OnPipelineCreated(ctx, "p-w-01", State{})
	o.OnStepSet(ctx, "p-w-01", "a", "hello")
	o.OnStepsCleared(ctx, "p-w-01", []string{"b", "c"})
	o.OnFinalized(ctx, "p-w-01")
	o.OnUnfinalized(ctx, "p-w-01")
}

func TestBasicMetrics(t *testing.T) {
	m := &BasicMetrics{}
	fireAll(m)
	fireAll(m)

	snap := m.Snapshot()
	if snap.PipelinesCreated != 2 {
		t.Fatalf("PipelinesCreated = %d", snap.PipelinesCreated)
	}
	if snap.StepsSet != 2 {
		t.Fatalf("StepsSet = %d", snap.StepsSet)
	}
	if snap.StepsCleared != 4 {
		t.Fatalf("StepsCleared = %d, want one per cleared step", snap.StepsCleared)
	}
	if snap.Finalized != 2 || snap.Unfinalized != 2 {
		t.Fatalf("Finalized = %d, Unfinalized = %d", snap.Finalized, snap.Unfinalized)
	}
}

func TestCompositeObserverFansOut(t *testing.T) {
	a := &BasicMetrics{}
	b := &BasicMetrics{}

	fireAll(NewCompositeObserver(a, nil, b))

	if a.Snapshot().PipelinesCreated != 1 || b.Snapshot().PipelinesCreated != 1 {
		t.Fatalf("composite did not reach both observers: %+v %+v", a.Snapshot(), b.Snapshot())
	}
}

func TestNewCompositeObserverDegenerateCases(t *testing.T) {
	if _, ok := NewCompositeObserver().(NoopObserver); !ok {
		t.Fatal("empty composite should collapse to NoopObserver")
	}
	if _, ok := NewCompositeObserver(nil, nil).(NoopObserver); !ok {
		t.Fatal("all-nil composite should collapse to NoopObserver")
	}

	m := &BasicMetrics{}
	if got := NewCompositeObserver(m); got != Observer(m) {
		t.Fatal("single-observer composite should return the observer itself")
	}
}

func TestLoggingObserverWritesEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fireAll(NewLoggingObserver(logger))

	out := buf.String()
	for _, want := range []string{
		"pipeline_created",
		"step_set",
		"steps_cleared",
		"pipeline_finalized",
		"pipeline_unfinalized",
		"pkey=p-w-01",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestSuggestFunc(t *testing.T) {
	f := SuggestFunc(func(previous any) any {
		return strings.ToUpper(previous.(string))
	})
	if got := f.Suggest("hello"); got != "HELLO" {
		t.Fatalf("Suggest = %v", got)
	}
}
