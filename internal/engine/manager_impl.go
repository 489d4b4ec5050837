package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/pipevine/internal/keycodec"
	"github.com/petrijr/pipevine/internal/persistence"
	"github.com/petrijr/pipevine/pkg/api"
)

// managerImpl is a simple, synchronous, in-process state manager.
//
// It performs unguarded read-modify-write against the store: two
// concurrent mutations of the same pipeline key race, and the later
// write wins. Operations against different keys are independent.
type managerImpl struct {
	store          persistence.Store
	appName        string
	preserveRefill bool
	observer       api.Observer
	logger         *slog.Logger
	now            func() time.Time
}

// Config describes how to construct a managerImpl.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Store   persistence.Store
	AppName string

	// PreserveRefill controls whether refill-flagged steps survive a
	// revert to an earlier step. nil means true.
	PreserveRefill *bool

	Observer api.Observer
	Logger   *slog.Logger

	// Now overrides the timestamp source, for tests.
	Now func() time.Time
}

func NewInMemoryManager(appName string) api.StateManager {
	return NewManager(persistence.NewInMemoryStore(), appName)
}

func NewInMemoryManagerWithObserver(appName string, obs api.Observer) api.StateManager {
	return NewManagerWithConfig(Config{
		Store:    persistence.NewInMemoryStore(),
		AppName:  appName,
		Observer: obs,
	})
}

func NewSQLiteManager(db *sql.DB, appName string) (api.StateManager, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return NewManager(store, appName), nil
}

func NewSQLiteManagerWithObserver(db *sql.DB, appName string, obs api.Observer) (api.StateManager, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return NewManagerWithConfig(Config{
		Store:    store,
		AppName:  appName,
		Observer: obs,
	}), nil
}

func NewPostgresManager(db *sql.DB, appName string) (api.StateManager, error) {
	store, err := persistence.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return NewManager(store, appName), nil
}

// NewRedisManager creates a manager that persists pipeline records in Redis.
func NewRedisManager(client *redis.Client, appName string) api.StateManager {
	return NewManager(persistence.NewRedisStore(client, "pipevine:"), appName)
}

// NewMongoManager creates a manager that persists pipeline records in MongoDB.
func NewMongoManager(client *mongo.Client, appName string) api.StateManager {
	return NewManager(persistence.NewMongoStore(client, "", ""), appName)
}

// NewManager returns a StateManager backed by the given store with
// default policy. External users access this via the pipevine package.
func NewManager(store persistence.Store, appName string) api.StateManager {
	return NewManagerWithConfig(Config{
		Store:   store,
		AppName: appName,
	})
}

// NewManagerWithConfig creates a new StateManager using the given
// configuration.
func NewManagerWithConfig(cfg Config) api.StateManager {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	preserve := true
	if cfg.PreserveRefill != nil {
		preserve = *cfg.PreserveRefill
	}
	appName := cfg.AppName
	if appName == "" {
		appName = "pipevine"
	}
	return &managerImpl{
		store:          cfg.Store,
		appName:        appName,
		preserveRefill: preserve,
		observer:       obs,
		logger:         logger,
		now:            now,
	}
}

func (m *managerImpl) stamp() string {
	return m.now().UTC().Format(time.RFC3339)
}

func (m *managerImpl) Initialize(ctx context.Context, pkey string, fields api.State) (api.State, error) {
	if pkey == "" {
		return nil, errors.New("pipeline key is required")
	}

	rec, err := m.store.Get(ctx, pkey)
	if err == nil {
		// Already exists: return it unchanged, no write.
		st, derr := persistence.DecodeState(rec.Data)
		if derr != nil {
			m.logger.ErrorContext(ctx, "pipeline state decode failed",
				slog.String("pkey", pkey),
				slog.Any("error", derr),
			)
			return api.State{}, nil
		}
		return st, nil
	}
	if !errors.Is(err, api.ErrPipelineNotFound) {
		return nil, fmt.Errorf("lookup pipeline %s: %w", pkey, err)
	}

	now := m.now()
	stamp := now.UTC().Format(time.RFC3339)
	st := api.State{
		api.CreatedKey: stamp,
		api.UpdatedKey: stamp,
	}
	for k, v := range fields {
		st[k] = v
	}

	data, err := persistence.EncodeState(st)
	if err != nil {
		return nil, fmt.Errorf("encode pipeline %s: %w", pkey, err)
	}

	err = m.store.Insert(ctx, persistence.Record{
		PKey:    pkey,
		AppName: m.appName,
		Data:    data,
		Created: now,
		Updated: now,
	})
	if err != nil {
		if errors.Is(err, api.ErrKeyConflict) {
			// Lost a race with another creator. Surfaced as a value so
			// the caller can offer a different identifier.
			return nil, api.ErrKeyConflict
		}
		return nil, fmt.Errorf("create pipeline %s: %w", pkey, err)
	}

	m.observer.OnPipelineCreated(ctx, pkey, st)
	return st, nil
}

func (m *managerImpl) ReadState(ctx context.Context, pkey string) api.State {
	rec, err := m.store.Get(ctx, pkey)
	if err != nil {
		if !errors.Is(err, api.ErrPipelineNotFound) {
			m.logger.WarnContext(ctx, "pipeline read failed",
				slog.String("pkey", pkey),
				slog.Any("error", err),
			)
		}
		return api.State{}
	}

	st, err := persistence.DecodeState(rec.Data)
	if err != nil {
		m.logger.ErrorContext(ctx, "pipeline state decode failed",
			slog.String("pkey", pkey),
			slog.Any("error", err),
		)
		return api.State{}
	}
	return st
}

func (m *managerImpl) WriteState(ctx context.Context, pkey string, st api.State) error {
	if st == nil {
		st = api.State{}
	}

	now := m.now()
	st[api.UpdatedKey] = now.UTC().Format(time.RFC3339)

	data, err := persistence.EncodeState(st)
	if err != nil {
		return fmt.Errorf("encode pipeline %s: %w", pkey, err)
	}
	if err := m.store.Update(ctx, pkey, data, now); err != nil {
		return fmt.Errorf("write pipeline %s: %w", pkey, err)
	}
	return nil
}

func (m *managerImpl) StepData(ctx context.Context, pkey, stepID string, def map[string]any) map[string]any {
	st := m.ReadState(ctx, pkey)
	if rec, ok := st.StepRecord(stepID); ok {
		return rec
	}
	return def
}

func (m *managerImpl) SetStepData(ctx context.Context, pkey, stepID string, value any, seq api.Sequence, opts ...api.SetOption) (any, error) {
	var cfg api.SetOptions
	for _, o := range opts {
		o(&cfg)
	}

	idx, ok := seq.IndexOf(stepID)
	if !ok {
		return nil, fmt.Errorf("set step data: step %q not in sequence", stepID)
	}
	step := seq.At(idx)

	var st api.State
	if cfg.KeepDownstream {
		st = m.ReadState(ctx, pkey)
	} else {
		var err error
		st, err = m.ClearStepsFrom(ctx, pkey, stepID, seq)
		if err != nil {
			return nil, err
		}
	}

	st[stepID] = map[string]any{step.Done: value}
	delete(st, api.RevertTargetKey)

	if err := m.WriteState(ctx, pkey, st); err != nil {
		return nil, err
	}

	m.observer.OnStepSet(ctx, pkey, stepID, value)
	return value, nil
}

func (m *managerImpl) ClearStepsFrom(ctx context.Context, pkey, stepID string, seq api.Sequence) (api.State, error) {
	st := m.ReadState(ctx, pkey)

	idx, ok := seq.IndexOf(stepID)
	if !ok {
		m.logger.WarnContext(ctx, "clear requested for unknown step",
			slog.String("pkey", pkey),
			slog.String("step", stepID),
		)
		return st, nil
	}

	var cleared []string
	for i := idx + 1; i < seq.Len(); i++ {
		step := seq.At(i)
		if m.preserveRefill && step.Refill {
			continue
		}
		if _, present := st[step.ID]; present {
			delete(st, step.ID)
			cleared = append(cleared, step.ID)
		}
	}

	if err := m.WriteState(ctx, pkey, st); err != nil {
		return nil, err
	}

	if len(cleared) > 0 {
		m.observer.OnStepsCleared(ctx, pkey, cleared)
	}
	return st, nil
}

func (m *managerImpl) RevertTo(ctx context.Context, pkey, stepID string, seq api.Sequence) (api.State, error) {
	st, err := m.ClearStepsFrom(ctx, pkey, stepID, seq)
	if err != nil {
		return nil, err
	}
	if _, ok := seq.IndexOf(stepID); !ok {
		return st, nil
	}

	st[api.RevertTargetKey] = stepID
	if err := m.WriteState(ctx, pkey, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (m *managerImpl) FinalizeNeeded(stepIndex int, seq api.Sequence) bool {
	next, ok := seq.NextAfter(stepIndex)
	if !ok {
		return false
	}
	return next.ID == api.FinalizeStepID
}

func (m *managerImpl) Finalize(ctx context.Context, pkey string, extra api.State) (api.State, error) {
	st := m.ReadState(ctx, pkey)

	rec, ok := st.StepRecord(api.FinalizeStepID)
	if !ok {
		rec = map[string]any{}
	}
	rec[api.FinalizedField] = true
	st[api.FinalizeStepID] = rec

	for k, v := range extra {
		st[k] = v
	}

	if err := m.WriteState(ctx, pkey, st); err != nil {
		return nil, err
	}

	m.observer.OnFinalized(ctx, pkey)
	return st, nil
}

func (m *managerImpl) Unfinalize(ctx context.Context, pkey string) (api.State, error) {
	st := m.ReadState(ctx, pkey)

	if _, ok := st[api.FinalizeStepID]; ok {
		delete(st, api.FinalizeStepID)
	}

	if err := m.WriteState(ctx, pkey, st); err != nil {
		return nil, err
	}

	m.observer.OnUnfinalized(ctx, pkey)
	return st, nil
}

func (m *managerImpl) StateMessage(ctx context.Context, pkey string, seq api.Sequence, msgs api.MessageTemplates) string {
	st := m.ReadState(ctx, pkey)

	// Walk the sequence in reverse: finalized beats ready-to-finalize
	// beats the most recently completed step beats brand-new.
	for i := seq.Len() - 1; i >= 0; i-- {
		step := seq.At(i)
		rec, ok := st.StepRecord(step.ID)
		if !ok {
			continue
		}

		if step.Done == api.FinalizedField {
			t := msgs.Steps[api.FinalizeStepID]
			if _, done := rec[step.Done]; done {
				return t.Complete
			}
			return t.Ready
		}

		if v, done := rec[step.Done]; done && truthy(v) {
			tmpl := msgs.Steps[step.ID].Complete
			if strings.Contains(tmpl, "%s") {
				return fmt.Sprintf(tmpl, fmt.Sprint(v))
			}
			return tmpl
		}
	}

	return msgs.New
}

func (m *managerImpl) Suggest(ctx context.Context, pkey, stepID string, seq api.Sequence) (any, error) {
	idx, ok := seq.IndexOf(stepID)
	if !ok {
		m.logger.WarnContext(ctx, "suggestion requested for unknown step",
			slog.String("pkey", pkey),
			slog.String("step", stepID),
		)
		return nil, nil
	}

	step := seq.At(idx)
	if step.Transform == nil || idx == 0 {
		return nil, nil
	}

	prev := seq.At(idx - 1)
	rec, ok := m.ReadState(ctx, pkey).StepRecord(prev.ID)
	if !ok {
		return nil, nil
	}
	v, ok := rec[prev.Done]
	if !ok || !truthy(v) {
		return nil, nil
	}

	m.logger.DebugContext(ctx, "suggesting step value",
		slog.String("pkey", pkey),
		slog.String("step", stepID),
		slog.String("from", prev.ID),
	)
	return step.Transform.Suggest(v), nil
}

func (m *managerImpl) GenerateKey(ctx context.Context, profile, plugin, userInput string) (api.Key, error) {
	k, err := keycodec.Generate(ctx, m.store, m.appName, profile, plugin, userInput)
	if err != nil {
		return api.Key{}, fmt.Errorf("generate pipeline key: %w", err)
	}

	parts := keycodec.Parse(k.Full)
	return api.Key{
		Full:    k.Full,
		Prefix:  k.Prefix,
		Profile: parts.Profile,
		Plugin:  parts.Plugin,
		User:    k.User,
	}, nil
}

func (m *managerImpl) ParseKey(key string) api.Key {
	parts := keycodec.Parse(key)
	out := api.Key{
		Full:    key,
		Profile: parts.Profile,
		Plugin:  parts.Plugin,
		User:    parts.User,
	}
	if parts.User != "" {
		out.Prefix = parts.Profile + "-" + parts.Plugin + "-"
	}
	return out
}

func (m *managerImpl) Keys(ctx context.Context, prefix string) ([]string, error) {
	return m.store.ScanKeys(ctx, m.appName, prefix)
}

// truthy mirrors the completion check used by status resolution: nil,
// empty strings, false, and numeric zero mean "not completed".
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}
