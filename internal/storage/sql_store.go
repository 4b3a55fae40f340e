package storage

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/todosync/internal/db"
	"github.com/randalmurphal/todosync/internal/db/driver"
	"github.com/randalmurphal/todosync/internal/snapshot"
)

// SQLStore keeps the snapshot in a SQLite or PostgreSQL database.
type SQLStore struct {
	db     *db.DB
	logger *slog.Logger
}

// OpenSQLStore opens (and migrates) the database at dsn.
func OpenSQLStore(ctx context.Context, dialect driver.Dialect, dsn string, logger *slog.Logger) (*SQLStore, error) {
	d, err := db.OpenWithDialect(ctx, dsn, dialect)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(d, logger), nil
}

// NewSQLStore wraps an already open database.
func NewSQLStore(d *db.DB, logger *slog.Logger) *SQLStore {
	return &SQLStore{db: d, logger: loggerOrDefault(logger)}
}

// Load reads both tables. Query failures load as an empty document.
func (s *SQLStore) Load(ctx context.Context) (*snapshot.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, notes, err := s.db.LoadSnapshot(ctx)
	if err != nil {
		return recovered(s.logger, s.Location(), err), nil
	}
	return repaired(s.logger, s.Location(), doc, notes), nil
}

// Save replaces both tables in one transaction.
func (s *SQLStore) Save(ctx context.Context, doc *snapshot.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.SaveSnapshot(ctx, doc); err != nil {
		return writeFailed(s.Location(), err)
	}
	return nil
}

// Location returns the dialect and database path. PostgreSQL DSNs are not
// echoed since they may carry a password.
func (s *SQLStore) Location() string {
	if s.db.Dialect() == driver.DialectPostgres {
		return "postgres"
	}
	return "sqlite:" + s.db.Path()
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
