package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer receives callbacks from the state manager for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay pipeline operations.
type Observer interface {
	// OnPipelineCreated is called once when a pipeline record is first
	// inserted by Initialize.
	OnPipelineCreated(ctx context.Context, pkey string, st State)

	// OnStepSet is called after SetStepData persists a step value.
	OnStepSet(ctx context.Context, pkey, stepID string, value any)

	// OnStepsCleared is called after a revert or implicit clear removes
	// step records. stepIDs lists the removed steps in sequence order.
	OnStepsCleared(ctx context.Context, pkey string, stepIDs []string)

	// OnFinalized is called when a pipeline is locked.
	OnFinalized(ctx context.Context, pkey string)

	// OnUnfinalized is called when a pipeline is unlocked.
	OnUnfinalized(ctx context.Context, pkey string)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnPipelineCreated(ctx context.Context, pkey string, st State)      {}
func (NoopObserver) OnStepSet(ctx context.Context, pkey, stepID string, value any)     {}
func (NoopObserver) OnStepsCleared(ctx context.Context, pkey string, stepIDs []string) {}
func (NoopObserver) OnFinalized(ctx context.Context, pkey string)                      {}
func (NoopObserver) OnUnfinalized(ctx context.Context, pkey string)                    {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnPipelineCreated(ctx context.Context, pkey string, st State) {
	for _, o := range c.observers {
		o.OnPipelineCreated(ctx, pkey, st)
	}
}

func (c *CompositeObserver) OnStepSet(ctx context.Context, pkey, stepID string, value any) {
	for _, o := range c.observers {
		o.OnStepSet(ctx, pkey, stepID, value)
	}
}

func (c *CompositeObserver) OnStepsCleared(ctx context.Context, pkey string, stepIDs []string) {
	for _, o := range c.observers {
		o.OnStepsCleared(ctx, pkey, stepIDs)
	}
}

func (c *CompositeObserver) OnFinalized(ctx context.Context, pkey string) {
	for _, o := range c.observers {
		o.OnFinalized(ctx, pkey)
	}
}

func (c *CompositeObserver) OnUnfinalized(ctx context.Context, pkey string) {
	for _, o := range c.observers {
		o.OnUnfinalized(ctx, pkey)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs pipeline lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnPipelineCreated(ctx context.Context, pkey string, st State) {
	o.Logger.InfoContext(ctx, "pipeline_created",
		slog.String("pkey", pkey),
	)
}

func (o *LoggingObserver) OnStepSet(ctx context.Context, pkey, stepID string, value any) {
	o.Logger.DebugContext(ctx, "step_set",
		slog.String("pkey", pkey),
		slog.String("step", stepID),
	)
}

func (o *LoggingObserver) OnStepsCleared(ctx context.Context, pkey string, stepIDs []string) {
	o.Logger.DebugContext(ctx, "steps_cleared",
		slog.String("pkey", pkey),
		slog.Any("steps", stepIDs),
	)
}

func (o *LoggingObserver) OnFinalized(ctx context.Context, pkey string) {
	o.Logger.InfoContext(ctx, "pipeline_finalized",
		slog.String("pkey", pkey),
	)
}

func (o *LoggingObserver) OnUnfinalized(ctx context.Context, pkey string) {
	o.Logger.InfoContext(ctx, "pipeline_unfinalized",
		slog.String("pkey", pkey),
	)
}

// BasicMetrics collects simple counters for pipeline activity.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	pipelinesCreated atomic.Int64
	stepsSet         atomic.Int64
	stepsCleared     atomic.Int64
	finalized        atomic.Int64
	unfinalized      atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	PipelinesCreated int64
	StepsSet         int64
	StepsCleared     int64
	Finalized        int64
	Unfinalized      int64
}

func (m *BasicMetrics) OnPipelineCreated(ctx context.Context, pkey string, st State) {
	m.pipelinesCreated.Add(1)
}

func (m *BasicMetrics) OnStepSet(ctx context.Context, pkey, stepID string, value any) {
	m.stepsSet.Add(1)
}

func (m *BasicMetrics) OnStepsCleared(ctx context.Context, pkey string, stepIDs []string) {
	m.stepsCleared.Add(int64(len(stepIDs)))
}

func (m *BasicMetrics) OnFinalized(ctx context.Context, pkey string) {
	m.finalized.Add(1)
}

func (m *BasicMetrics) OnUnfinalized(ctx context.Context, pkey string) {
	m.unfinalized.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	return BasicMetricsSnapshot{
		PipelinesCreated: m.pipelinesCreated.Load(),
		StepsSet:         m.stepsSet.Load(),
		StepsCleared:     m.stepsCleared.Load(),
		Finalized:        m.finalized.Load(),
		Unfinalized:      m.unfinalized.Load(),
	}
}
