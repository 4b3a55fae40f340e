// Package driver hides the difference between the SQLite and PostgreSQL
// snapshot backends behind one interface.
package driver

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Driver is an open database of one dialect.
type Driver interface {
	Open(dsn string) error
	Close() error

	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)

	// Migrate applies the pending {schemaType}_NNN.sql files.
	Migrate(ctx context.Context, schemaFS SchemaFS, schemaType string) error

	Dialect() Dialect
	// Placeholder returns the bind marker for the 1-based argument index.
	Placeholder(index int) string
	DB() *sql.DB
}

// Tx is a transaction opened by Driver.BeginTx.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	Commit() error
	Rollback() error
}

// SchemaFS is the subset of embed.FS that migrations need.
type SchemaFS interface {
	ReadDir(name string) ([]DirEntry, error)
	ReadFile(name string) ([]byte, error)
}

// DirEntry is the subset of fs.DirEntry that migrations need.
type DirEntry interface {
	Name() string
	IsDir() bool
}

// New returns an unopened driver for dialect.
func New(dialect Dialect) (Driver, error) {
	switch dialect {
	case DialectSQLite:
		return NewSQLite(), nil
	case DialectPostgres:
		return NewPostgres(), nil
	}
	return nil, fmt.Errorf("unsupported dialect %q", dialect)
}

// ParseDialect accepts the common spellings of each dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unknown dialect %q", s)
}

// migrationSet is where a dialect keeps its migration files and how it
// records the versions it has applied.
type migrationSet struct {
	dir         string
	createTable string
	record      string
}

type migration struct {
	version int
	file    string
}

// runMigrations applies each pending {schemaType}_NNN.sql in version order.
// Every file runs in its own transaction together with its _migrations row.
func runMigrations(ctx context.Context, db *sql.DB, schemaFS SchemaFS, schemaType string, set migrationSet) error {
	if _, err := db.ExecContext(ctx, set.createTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	done, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	pending, err := listMigrations(schemaFS, set.dir, schemaType+"_")
	if err != nil {
		return err
	}

	for _, m := range pending {
		if done[m.version] {
			continue
		}
		body, err := schemaFS.ReadFile(m.file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", m.file, err)
		}
		if err := applyMigration(ctx, db, set.record, m, string(body)); err != nil {
			return err
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM _migrations")
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

func listMigrations(schemaFS SchemaFS, dir, prefix string) ([]migration, error) {
	entries, err := schemaFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir %s: %w", dir, err)
	}
	var out []migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".sql") {
			continue
		}
		out = append(out, migration{version: extractVersion(name, prefix), file: dir + "/" + name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].file < out[j].file })
	return out, nil
}

func applyMigration(ctx context.Context, db *sql.DB, record string, m migration, body string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.file, err)
	}
	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %s: %w", m.file, err)
	}
	if _, err := tx.ExecContext(ctx, record, m.version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", m.file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.file, err)
	}
	return nil
}

// extractVersion parses NNN out of "{prefix}NNN.sql". Unparseable names
// yield 0.
func extractVersion(name, prefix string) int {
	v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".sql"))
	if err != nil {
		return 0
	}
	return v
}
