package storage

import (
	"path/filepath"
	"testing"
)

// NewTestStore creates a file store in a temp directory for testing.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    store := storage.NewTestStore(t)
//	    // use store...
//	}
func NewTestStore(t testing.TB) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "todos.json"), nil)
}
