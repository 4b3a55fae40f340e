package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/randalmurphal/todosync/internal/db/driver"
	"github.com/randalmurphal/todosync/internal/snapshot"
	"github.com/randalmurphal/todosync/internal/task"
)

// LoadSnapshot reads the stored document. An empty database yields an empty
// document. Rows the document cannot hold, such as an unparseable due date,
// are dropped and reported as notes, and the result is always repaired.
func (d *DB) LoadSnapshot(ctx context.Context) (*snapshot.Document, []string, error) {
	doc := snapshot.New()
	var notes []string

	rows, err := d.driver.Query(ctx, `
		SELECT taskid, title, description, due_date, priority, category, status
		FROM todos ORDER BY position, taskid`)
	if err != nil {
		return nil, nil, fmt.Errorf("query todos: %w", err)
	}
	for rows.Next() {
		var (
			t        task.Task
			dueDate  sql.NullString
			priority sql.NullBool
			category string
			status   string
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &dueDate, &priority, &category, &status); err != nil {
			_ = rows.Close()
			return nil, nil, fmt.Errorf("scan todo: %w", err)
		}
		if dueDate.Valid && dueDate.String != "" {
			due, err := time.Parse(time.RFC3339Nano, dueDate.String)
			if err != nil {
				notes = append(notes, fmt.Sprintf("todo %q has unreadable due_date %q; dropped", t.ID, dueDate.String))
				continue
			}
			t.DueDate = &due
		}
		if priority.Valid {
			p := priority.Bool
			t.Priority = &p
		}
		t.Category = task.Category(category)
		t.Status = task.Status(status)
		doc.PutTask(t)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, nil, fmt.Errorf("iterate todos: %w", err)
	}
	_ = rows.Close()

	rows, err = d.driver.Query(ctx, `SELECT taskid, description FROM summary ORDER BY position, taskid`)
	if err != nil {
		return nil, nil, fmt.Errorf("query summary: %w", err)
	}
	for rows.Next() {
		var id, desc string
		if err := rows.Scan(&id, &desc); err != nil {
			_ = rows.Close()
			return nil, nil, fmt.Errorf("scan summary: %w", err)
		}
		doc.Summary.Set(id, desc)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, nil, fmt.Errorf("iterate summary: %w", err)
	}
	_ = rows.Close()

	notes = append(notes, doc.Repair()...)
	return doc, notes, nil
}

// SaveSnapshot replaces the stored document with doc in one transaction.
// Either the whole document is written or the previous one is kept.
func (d *DB) SaveSnapshot(ctx context.Context, doc *snapshot.Document) error {
	insertTodo := "INSERT INTO todos (taskid, position, title, description, due_date, priority, category, status) VALUES (" +
		d.placeholders(8) + ")"
	insertSummary := "INSERT INTO summary (taskid, position, description) VALUES (" + d.placeholders(3) + ")"

	return d.withTx(ctx, func(tx driver.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM todos"); err != nil {
			return fmt.Errorf("clear todos: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM summary"); err != nil {
			return fmt.Errorf("clear summary: %w", err)
		}

		for i, t := range doc.Tasks() {
			var dueDate, priority any
			if t.DueDate != nil {
				dueDate = t.DueDate.UTC().Format(time.RFC3339Nano)
			}
			if t.Priority != nil {
				priority = *t.Priority
			}
			if _, err := tx.Exec(ctx, insertTodo,
				t.ID, i, t.Title, t.Description, dueDate, priority, string(t.Category), string(t.Status),
			); err != nil {
				return fmt.Errorf("insert todo %s: %w", t.ID, err)
			}
		}

		for i, id := range doc.Summary.Keys() {
			desc, _ := doc.Summary.Get(id)
			if _, err := tx.Exec(ctx, insertSummary, id, i, desc); err != nil {
				return fmt.Errorf("insert summary %s: %w", id, err)
			}
		}
		return nil
	})
}
