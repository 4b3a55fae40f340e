package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
)

// PostgresDriver stores snapshots in a shared PostgreSQL database, so
// several machines can reconcile against the same list.
type PostgresDriver struct {
	conn
}

func NewPostgres() *PostgresDriver {
	return &PostgresDriver{}
}

// Open connects using a pgx DSN and fails fast if the server is unreachable.
func (d *PostgresDriver) Open(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("connect postgres: %w", err)
	}
	d.db = db
	return nil
}

// Migrate applies schema/postgres/{schemaType}_NNN.sql.
func (d *PostgresDriver) Migrate(ctx context.Context, schemaFS SchemaFS, schemaType string) error {
	return runMigrations(ctx, d.db, schemaFS, schemaType, migrationSet{
		dir: "schema/postgres",
		createTable: `CREATE TABLE IF NOT EXISTS _migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		record: "INSERT INTO _migrations (version) VALUES ($1)",
	})
}

func (d *PostgresDriver) Dialect() Dialect { return DialectPostgres }

// Placeholder returns $index.
func (d *PostgresDriver) Placeholder(index int) string {
	return "$" + strconv.Itoa(index)
}
