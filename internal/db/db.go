// Package db persists todosync snapshots in SQL databases.
//
// The whole snapshot is two tables, todos and summary, rewritten together in
// one transaction on every save. SQLite is the default; PostgreSQL is used
// when a DSN is configured.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/randalmurphal/todosync/internal/db/driver"
)

//go:embed schema/*.sql schema/postgres/*.sql
var schemaFS embed.FS

// SchemaSnapshot is the migration set holding the snapshot tables.
const SchemaSnapshot = "snapshot"

// embeddedSchema exposes schemaFS as a driver.SchemaFS.
type embeddedSchema struct{}

func (embeddedSchema) ReadDir(name string) ([]driver.DirEntry, error) {
	entries, err := schemaFS.ReadDir(name)
	if err != nil {
		return nil, err
	}
	out := make([]driver.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = e
	}
	return out, nil
}

func (embeddedSchema) ReadFile(name string) ([]byte, error) {
	return schemaFS.ReadFile(name)
}

// DB is a migrated snapshot database.
type DB struct {
	driver driver.Driver
	path   string
}

// OpenInMemory returns a fresh, isolated SQLite database.
func OpenInMemory(ctx context.Context) (*DB, error) {
	return open(ctx, driver.NewSQLite(), ":memory:")
}

// OpenWithDialect opens dsn with the given dialect and brings the snapshot
// schema up to date.
func OpenWithDialect(ctx context.Context, dsn string, dialect driver.Dialect) (*DB, error) {
	drv, err := driver.New(dialect)
	if err != nil {
		return nil, err
	}
	if dialect == driver.DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	return open(ctx, drv, dsn)
}

func open(ctx context.Context, drv driver.Driver, dsn string) (*DB, error) {
	if err := drv.Open(dsn); err != nil {
		return nil, err
	}
	d := &DB{driver: drv, path: dsn}
	if err := d.Migrate(ctx, SchemaSnapshot); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.driver.Close()
}

// Path is the file path or DSN the database was opened with.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) Dialect() driver.Dialect {
	return d.driver.Dialect()
}

// Migrate applies pending {schemaType}_NNN.sql files from the embedded schema.
func (d *DB) Migrate(ctx context.Context, schemaType string) error {
	if err := d.driver.Migrate(ctx, embeddedSchema{}, schemaType); err != nil {
		return fmt.Errorf("migrate %s schema: %w", schemaType, err)
	}
	return nil
}

// placeholders returns n comma-separated bind markers.
func (d *DB) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = d.driver.Placeholder(i + 1)
	}
	return strings.Join(marks, ", ")
}

// withTx runs fn in a transaction and commits if it returns nil.
func (d *DB) withTx(ctx context.Context, fn func(tx driver.Tx) error) error {
	tx, err := d.driver.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (d *DB) rawDB() *sql.DB {
	return d.driver.DB()
}
