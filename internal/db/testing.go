package db

import (
	"context"
	"testing"
)

// NewTestDB returns a migrated in-memory database closed at test cleanup.
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	d, err := OpenInMemory(context.Background())
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}
