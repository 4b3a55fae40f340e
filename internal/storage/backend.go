// Package storage provides the snapshot store backends for todosync.
// It supports a JSON file (default), SQLite, PostgreSQL and Badger.
//
// Every backend reads and writes the whole document. Reading never fails:
// a missing, unreadable or corrupt snapshot loads as an empty document with
// Document.Diagnostic set. Writing either replaces the previous snapshot
// completely or leaves it untouched.
package storage

import (
	"context"
	"log/slog"
	"strings"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
	"github.com/randalmurphal/todosync/internal/snapshot"
)

// Store defines the snapshot persistence operations.
// Implementations are not safe for concurrent passes; callers hold the
// single-writer guard for the whole load-apply-save sequence.
type Store interface {
	// Load returns the persisted document, or an empty one with a
	// diagnostic when nothing usable is stored.
	Load(ctx context.Context) (*snapshot.Document, error)

	// Save atomically replaces the persisted document. Failures are
	// PERSISTENCE_WRITE_FAILED errors and leave the previous one intact.
	Save(ctx context.Context, doc *snapshot.Document) error

	// Location describes where the snapshot lives, for messages and locks.
	Location() string

	// Close releases resources.
	Close() error
}

// recovered returns an empty document standing in for one that could not be
// read, logging why.
func recovered(logger *slog.Logger, location string, cause error) *snapshot.Document {
	readErr := syncerrors.ErrPersistenceRead(location).WithCause(cause)
	logger.Warn("snapshot unreadable, starting from empty document",
		"location", location,
		"error", cause,
	)
	doc := snapshot.New()
	doc.Diagnostic = readErr.Error()
	return doc
}

// repaired records the notes from decoding or repairing a document.
func repaired(logger *slog.Logger, location string, doc *snapshot.Document, notes []string) *snapshot.Document {
	if len(notes) == 0 {
		return doc
	}
	for _, note := range notes {
		logger.Warn("snapshot repaired on load", "location", location, "note", note)
	}
	doc.Diagnostic = strings.Join(notes, "; ")
	return doc
}

// writeFailed wraps a save error.
func writeFailed(location string, err error) error {
	return syncerrors.ErrPersistenceWrite(location).WithCause(err)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
