package driver

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers "sqlite"
)

// sqlitePragmas run once per Open. WAL lets `todosync list` read while a
// pass is writing.
const sqlitePragmas = `
	PRAGMA journal_mode = WAL;
	PRAGMA synchronous = NORMAL;
	PRAGMA busy_timeout = 5000;
`

// SQLiteDriver stores snapshots in a single SQLite file.
type SQLiteDriver struct {
	conn
}

func NewSQLite() *SQLiteDriver {
	return &SQLiteDriver{}
}

// Open opens (creating if needed) the database at path. ":memory:" works
// for tests.
func (d *SQLiteDriver) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// Single writer. Also keeps ":memory:" to one database instead of one
	// per pooled connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqlitePragmas); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite pragmas: %w", err)
	}

	d.db = db
	return nil
}

// Migrate applies schema/{schemaType}_NNN.sql.
func (d *SQLiteDriver) Migrate(ctx context.Context, schemaFS SchemaFS, schemaType string) error {
	return runMigrations(ctx, d.db, schemaFS, schemaType, migrationSet{
		dir: "schema",
		createTable: `CREATE TABLE IF NOT EXISTS _migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT DEFAULT (datetime('now'))
		)`,
		record: "INSERT INTO _migrations (version) VALUES (?)",
	})
}

func (d *SQLiteDriver) Dialect() Dialect { return DialectSQLite }

func (d *SQLiteDriver) Placeholder(int) string { return "?" }
