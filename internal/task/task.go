// Package task provides the todo task model for todosync.
package task

import (
	"fmt"
	"time"
)

// Task is a single tracked todo item.
//
// ID is the stable identity of the task: it never changes once assigned and
// is the key used by the snapshot and by reconciliation commands. Description
// is the field used for change detection. Every other field is informational
// and is replaced wholesale whenever the task is added or updated.
type Task struct {
	ID          string     `json:"taskid" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    *bool      `json:"priority"`
	Category    Category   `json:"category" validate:"omitempty,oneof=work college personal"`
	Status      Status     `json:"status" validate:"omitempty,oneof=not_started in_progress completed"`
}

// New creates a task with the required fields set and every optional field absent.
func New(id, title, description string) Task {
	return Task{
		ID:          id,
		Title:       title,
		Description: description,
	}
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Priority != nil {
		p := *t.Priority
		c.Priority = &p
	}
	return c
}

// IsPriority reports whether the task is explicitly marked as a priority.
func (t Task) IsPriority() bool {
	return t.Priority != nil && *t.Priority
}

// IsOverdue reports whether the task has a due date before now and is not completed.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}

// String returns a short human-readable form used in logs.
func (t Task) String() string {
	return fmt.Sprintf("%s (%s)", t.ID, t.Title)
}
