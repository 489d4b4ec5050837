package persistence

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryStoreConformance(t *testing.T) {
	testStoreConformance(t, NewInMemoryStore())
}

func TestInMemoryStoreDataIsolation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	data := []byte(`{"a":1}`)
	rec := Record{
		PKey:    "p-w-01",
		AppName: "testapp",
		Data:    data,
		Created: time.Now().UTC(),
		Updated: time.Now().UTC(),
	}
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Mutating the caller's slice must not reach stored bytes.
	data[2] = 'z'

	got, err := s.Get(ctx, "p-w-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Data) != `{"a":1}` {
		t.Fatalf("stored data was aliased: %s", got.Data)
	}

	// And mutating returned bytes must not corrupt the store.
	got.Data[2] = 'z'
	again, err := s.Get(ctx, "p-w-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(again.Data) != `{"a":1}` {
		t.Fatalf("returned data was aliased: %s", again.Data)
	}
}
