package persistence

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/petrijr/pipevine/pkg/api"
)

// testStoreConformance exercises the Store contract against a fresh,
// empty store. Every backend test runs this.
func testStoreConformance(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rec := Record{
		PKey:    "p-w-01",
		AppName: "testapp",
		Data:    []byte(`{"created":"2026-03-14T09:26:53Z"}`),
		Created: created,
		Updated: created,
	}

	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// A second insert with the same pkey must report a conflict.
	if err := s.Insert(ctx, rec); !errors.Is(err, api.ErrKeyConflict) {
		t.Fatalf("duplicate Insert: got %v, want ErrKeyConflict", err)
	}

	got, err := s.Get(ctx, "p-w-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PKey != rec.PKey || got.AppName != rec.AppName {
		t.Fatalf("Get returned wrong record: %+v", got)
	}
	if !bytes.Equal(got.Data, rec.Data) {
		t.Fatalf("Get data mismatch: %s", got.Data)
	}

	if _, err := s.Get(ctx, "no-such-key"); !errors.Is(err, api.ErrPipelineNotFound) {
		t.Fatalf("Get missing: got %v, want ErrPipelineNotFound", err)
	}

	updated := created.Add(time.Minute)
	newData := []byte(`{"created":"2026-03-14T09:26:53Z","step":{"done":true}}`)
	if err := s.Update(ctx, "p-w-01", newData, updated); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err = s.Get(ctx, "p-w-01")
	if err != nil {
		t.Fatalf("Get after Update: %v", err)
	}
	if !bytes.Equal(got.Data, newData) {
		t.Fatalf("Update did not replace data: %s", got.Data)
	}

	if err := s.Update(ctx, "no-such-key", newData, updated); !errors.Is(err, api.ErrPipelineNotFound) {
		t.Fatalf("Update missing: got %v, want ErrPipelineNotFound", err)
	}

	// ScanKeys filters by app and prefix, sorted ascending.
	for _, pkey := range []string{"p-w-03", "p-w-02", "q-x-01"} {
		r := rec
		r.PKey = pkey
		if err := s.Insert(ctx, r); err != nil {
			t.Fatalf("Insert(%s): %v", pkey, err)
		}
	}
	other := rec
	other.PKey = "p-w-99"
	other.AppName = "otherapp"
	if err := s.Insert(ctx, other); err != nil {
		t.Fatalf("Insert other app: %v", err)
	}

	keys, err := s.ScanKeys(ctx, "testapp", "p-w-")
	if err != nil {
		t.Fatalf("ScanKeys: %v", err)
	}
	want := []string{"p-w-01", "p-w-02", "p-w-03"}
	if len(keys) != len(want) {
		t.Fatalf("ScanKeys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("ScanKeys = %v, want %v", keys, want)
		}
	}

	keys, err = s.ScanKeys(ctx, "testapp", "")
	if err != nil {
		t.Fatalf("ScanKeys all: %v", err)
	}
	if len(keys) != 4 {
		t.Fatalf("ScanKeys with empty prefix = %v, want 4 keys", keys)
	}
}
