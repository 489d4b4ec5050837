package pipevine

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/pipevine/internal/engine"
	"github.com/petrijr/pipevine/internal/msgqueue"
	"github.com/petrijr/pipevine/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	StateManager         = api.StateManager
	State                = api.State
	Step                 = api.Step
	Sequence             = api.Sequence
	Suggester            = api.Suggester
	SuggestFunc          = api.SuggestFunc
	Key                  = api.Key
	MessageTemplates     = api.MessageTemplates
	StepMessages         = api.StepMessages
	SetOption            = api.SetOption
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	MessageQueue    = msgqueue.Queue
	Sink            = msgqueue.Sink
	SinkFunc        = msgqueue.SinkFunc
	DeliveryOptions = msgqueue.Options
)

// Re-export common helpers.

var (
	NewSequence          = api.NewSequence
	KeepDownstream       = api.KeepDownstream
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export sentinel errors for convenience.

var (
	ErrKeyConflict      = api.ErrKeyConflict
	ErrPipelineNotFound = api.ErrPipelineNotFound
)

// Reserved state document keys.

const (
	CreatedKey      = api.CreatedKey
	UpdatedKey      = api.UpdatedKey
	RevertTargetKey = api.RevertTargetKey
	FinalizeStepID  = api.FinalizeStepID
	FinalizedField  = api.FinalizedField
)

// Manager constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryManager returns a StateManager backed entirely by an
// in-memory store. appName scopes key scans; an empty value defaults
// to "pipevine".
func NewInMemoryManager(appName string) StateManager {
	return engine.NewInMemoryManager(appName)
}

// NewInMemoryManagerWithObserver returns an in-memory StateManager with
// the given Observer.
func NewInMemoryManagerWithObserver(appName string, obs Observer) StateManager {
	return engine.NewInMemoryManagerWithObserver(appName, obs)
}

// NewSQLiteManager returns a StateManager that persists pipeline records
// in a SQLite database.
func NewSQLiteManager(db *sql.DB, appName string) (StateManager, error) {
	return engine.NewSQLiteManager(db, appName)
}

// NewSQLiteManagerWithObserver returns a SQLite-backed StateManager with
// the given Observer.
func NewSQLiteManagerWithObserver(db *sql.DB, appName string, obs Observer) (StateManager, error) {
	return engine.NewSQLiteManagerWithObserver(db, appName, obs)
}

// NewPostgresManager returns a StateManager that persists pipeline
// records in PostgreSQL.
func NewPostgresManager(db *sql.DB, appName string) (StateManager, error) {
	return engine.NewPostgresManager(db, appName)
}

// NewRedisManager returns a StateManager that persists pipeline records
// in Redis.
func NewRedisManager(client *redis.Client, appName string) StateManager {
	return engine.NewRedisManager(client, appName)
}

// NewMongoManager returns a StateManager that persists pipeline records
// in MongoDB.
func NewMongoManager(client *mongo.Client, appName string) StateManager {
	return engine.NewMongoManager(client, appName)
}

// NewMessageQueue creates an ordered message queue and starts its
// consumer. If logger is nil, slog.Default() is used.
func NewMessageQueue(logger *slog.Logger) *MessageQueue {
	return msgqueue.New(logger)
}

// Convenience helpers that just forward to the underlying StateManager.

// Initialize creates the pipeline for pkey if missing, or returns the
// existing state unchanged.
func Initialize(ctx context.Context, m StateManager, pkey string, fields State) (State, error) {
	return m.Initialize(ctx, pkey, fields)
}

// SetStepData records a step's completion value.
func SetStepData(ctx context.Context, m StateManager, pkey, stepID string, value any, seq Sequence, opts ...SetOption) (any, error) {
	return m.SetStepData(ctx, pkey, stepID, value, seq, opts...)
}

// RevertTo rolls a pipeline back to an earlier step.
func RevertTo(ctx context.Context, m StateManager, pkey, stepID string, seq Sequence) (State, error) {
	return m.RevertTo(ctx, pkey, stepID, seq)
}

// Finalize locks a pipeline against further step mutation.
func Finalize(ctx context.Context, m StateManager, pkey string, extra State) (State, error) {
	return m.Finalize(ctx, pkey, extra)
}

// Unfinalize unlocks a previously finalized pipeline.
func Unfinalize(ctx context.Context, m StateManager, pkey string) (State, error) {
	return m.Unfinalize(ctx, pkey)
}

// StateMessage resolves a pipeline's human-readable status message.
func StateMessage(ctx context.Context, m StateManager, pkey string, seq Sequence, msgs MessageTemplates) string {
	return m.StateMessage(ctx, pkey, seq, msgs)
}
