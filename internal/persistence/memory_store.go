package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/petrijr/pipevine/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe Store backed by a map.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]Record),
	}
}

// Ensure InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

func (s *InMemoryStore) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.PKey]; ok {
		return api.ErrKeyConflict
	}

	rec.Data = cloneBytes(rec.Data)
	s.records[rec.PKey] = rec
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, pkey string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[pkey]
	if !ok {
		return Record{}, api.ErrPipelineNotFound
	}

	rec.Data = cloneBytes(rec.Data)
	return rec, nil
}

func (s *InMemoryStore) Update(ctx context.Context, pkey string, data []byte, updated time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[pkey]
	if !ok {
		return api.ErrPipelineNotFound
	}

	rec.Data = cloneBytes(data)
	rec.Updated = updated
	s.records[pkey] = rec
	return nil
}

func (s *InMemoryStore) ScanKeys(ctx context.Context, appName, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for pkey, rec := range s.records {
		if rec.AppName != appName {
			continue
		}
		if !strings.HasPrefix(pkey, prefix) {
			continue
		}
		keys = append(keys, pkey)
	}

	sort.Strings(keys)
	return keys, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
