// Package reconcile computes and applies the changes that bring a persisted
// snapshot in line with a freshly extracted task list.
//
// Diff compares candidates with the previous summary and emits one command
// per affected task. Apply executes those commands against a document and
// verifies that the task and summary key sets still agree. Reconciler runs
// a full pass: guard, extract, validate, load, diff, apply, save.
package reconcile

import (
	"fmt"

	"github.com/randalmurphal/todosync/internal/snapshot"
	"github.com/randalmurphal/todosync/internal/task"
)

// Kind is the type of change a command makes.
type Kind string

const (
	KindAdd    Kind = "add"
	KindUpdate Kind = "update"
	KindRemove Kind = "remove"
)

// Command is one change to one task.
type Command struct {
	TaskID string
	Kind   Kind

	// Task is the full replacement record for add and update, nil for remove.
	Task *task.Task
}

// Add returns an add command carrying a copy of t.
func Add(t task.Task) Command {
	c := t.Clone()
	return Command{TaskID: t.ID, Kind: KindAdd, Task: &c}
}

// Update returns an update command carrying a copy of t.
func Update(t task.Task) Command {
	c := t.Clone()
	return Command{TaskID: t.ID, Kind: KindUpdate, Task: &c}
}

// Remove returns a remove command for id.
func Remove(id string) Command {
	return Command{TaskID: id, Kind: KindRemove}
}

// String returns e.g. `add(2 "Call mom")` or `remove(1)`.
func (c Command) String() string {
	if c.Task == nil {
		return fmt.Sprintf("%s(%s)", c.Kind, c.TaskID)
	}
	return fmt.Sprintf("%s(%s %q)", c.Kind, c.TaskID, c.Task.Title)
}

// Plan is the output of Diff.
type Plan struct {
	// Commands lists adds and updates in candidate order, then removes in
	// previous-summary order.
	Commands []Command

	// Next is the summary after the commands are applied.
	Next *snapshot.Summary
}

// Counts returns how many commands of each kind the plan holds.
func (p Plan) Counts() (adds, updates, removes int) {
	for _, c := range p.Commands {
		switch c.Kind {
		case KindAdd:
			adds++
		case KindUpdate:
			updates++
		case KindRemove:
			removes++
		}
	}
	return adds, updates, removes
}

// IsEmpty reports whether the plan changes nothing.
func (p Plan) IsEmpty() bool {
	return len(p.Commands) == 0
}
