// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/trezcool/unilife/core/record"
	"github.com/trezcool/unilife/core/syncstore"
	"github.com/trezcool/unilife/storage/localstate"
)

// Seed stores v for ownerID directly in the record store, bypassing any Sync Store,
// and returns it as stored.
func Seed[T any](t *testing.T, remote syncstore.RecordStore, schema record.Schema[T], ownerID string, v T) T {
	t.Helper()
	row, err := remote.Insert(context.Background(), schema.Table, schema.InsertPayload(v, ownerID))
	if err != nil {
		t.Fatalf("Seed(%s) failed: %v", schema.Table, err)
	}
	saved, err := schema.Decode(row)
	if err != nil {
		t.Fatalf("Seed(%s) failed: %v", schema.Table, err)
	}
	return saved
}

// OpenState opens a local state file removed at the end of the test.
func OpenState(t *testing.T) *localstate.Store {
	t.Helper()
	state, err := localstate.Open(filepath.Join(t.TempDir(), "unilife.state"))
	if err != nil {
		t.Fatalf("OpenState() failed: %v", err)
	}
	t.Cleanup(func() { _ = state.Close() })
	return state
}
