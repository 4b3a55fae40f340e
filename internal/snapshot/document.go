package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/randalmurphal/todosync/internal/task"
)

// Document is the persisted state of the todo list: every tracked task keyed
// by id, plus the id→description summary used for change detection.
//
// The keys of Tasks and Summary are always the same set for a document that
// went through Apply; Repair restores that for documents read from disk.
type Document struct {
	tasks   *orderedmap.OrderedMap[string, task.Task]
	Summary *Summary

	// Diagnostic is set when the document was substituted for unreadable
	// or repaired content. It is never persisted.
	Diagnostic string
}

// New returns an empty document.
func New() *Document {
	return &Document{
		tasks:   orderedmap.New[string, task.Task](),
		Summary: NewSummary(),
	}
}

// Task returns the task stored under id.
func (d *Document) Task(id string) (task.Task, bool) {
	return d.tasks.Get(id)
}

// HasTask reports whether a task is stored under id.
func (d *Document) HasTask(id string) bool {
	_, ok := d.tasks.Get(id)
	return ok
}

// PutTask stores t under its id, replacing any previous entry entirely.
func (d *Document) PutTask(t task.Task) {
	d.tasks.Set(t.ID, t.Clone())
}

// DeleteTask removes the task stored under id. Returns false if there was none.
func (d *Document) DeleteTask(id string) bool {
	_, ok := d.tasks.Delete(id)
	return ok
}

// Tasks returns all stored tasks in order.
func (d *Document) Tasks() []task.Task {
	out := make([]task.Task, 0, d.tasks.Len())
	for pair := d.tasks.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.Clone())
	}
	return out
}

// TaskIDs returns the ids of all stored tasks in order.
func (d *Document) TaskIDs() []string {
	ids := make([]string, 0, d.tasks.Len())
	for pair := d.tasks.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// Len returns the number of stored tasks.
func (d *Document) Len() int {
	return d.tasks.Len()
}

// IsEmpty reports whether the document tracks nothing at all.
func (d *Document) IsEmpty() bool {
	return d.tasks.Len() == 0 && d.Summary.Len() == 0
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	c := New()
	for pair := d.tasks.Oldest(); pair != nil; pair = pair.Next() {
		c.tasks.Set(pair.Key, pair.Value.Clone())
	}
	c.Summary = d.Summary.Clone()
	c.Diagnostic = d.Diagnostic
	return c
}

// KeyMismatch compares the id sets of tasks and summary. Both results are
// sorted; both are empty when the document is consistent.
func (d *Document) KeyMismatch() (onlyTasks, onlySummary []string) {
	for pair := d.tasks.Oldest(); pair != nil; pair = pair.Next() {
		if !d.Summary.Has(pair.Key) {
			onlyTasks = append(onlyTasks, pair.Key)
		}
	}
	for _, id := range d.Summary.Keys() {
		if !d.HasTask(id) {
			onlySummary = append(onlySummary, id)
		}
	}
	sort.Strings(onlyTasks)
	sort.Strings(onlySummary)
	return onlyTasks, onlySummary
}

// Repair makes the key sets of tasks and summary agree again. Summary entries
// with no task are dropped, so the next pass adds them back in full; tasks
// with no summary entry get their own description. Returns a note per fix.
func (d *Document) Repair() []string {
	onlyTasks, onlySummary := d.KeyMismatch()
	var notes []string
	for _, id := range onlySummary {
		d.Summary.Delete(id)
		notes = append(notes, fmt.Sprintf("summary entry %q has no task; dropped", id))
	}
	for _, id := range onlyTasks {
		t, _ := d.tasks.Get(id)
		d.Summary.Set(id, t.Description)
		notes = append(notes, fmt.Sprintf("task %q had no summary entry; restored from its description", id))
	}
	return notes
}

// wireDocument is the on-disk JSON shape.
type wireDocument struct {
	Todos   []task.Task `json:"todos"`
	Summary *Summary    `json:"summary"`
}

// MarshalJSON writes the {"todos": [...], "summary": {...}} form.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireDocument{Todos: d.Tasks(), Summary: d.Summary})
}

// Encode returns the indented on-disk form of the document.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(wireDocument{Todos: d.Tasks(), Summary: d.Summary}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode reads a persisted document.
//
// Only a payload that is not a JSON object at all is an error. Individual
// todos that cannot be read, or that have no taskid, are dropped; a summary
// that cannot be read is rebuilt from the tasks. Every such recovery is
// returned as a note, and the result is always repaired.
func Decode(data []byte) (*Document, []string, error) {
	var raw struct {
		Todos   []json.RawMessage `json:"todos"`
		Summary json.RawMessage   `json:"summary"`
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot: %w", err)
	}

	doc := New()
	var notes []string
	for i, rawTodo := range raw.Todos {
		var t task.Task
		if err := json.Unmarshal(rawTodo, &t); err != nil {
			notes = append(notes, fmt.Sprintf("todo #%d unreadable (%v); dropped", i, err))
			continue
		}
		if t.ID == "" {
			notes = append(notes, fmt.Sprintf("todo #%d has no taskid; dropped", i))
			continue
		}
		doc.PutTask(t)
	}

	if len(raw.Summary) > 0 {
		if err := doc.Summary.UnmarshalJSON(raw.Summary); err != nil {
			notes = append(notes, fmt.Sprintf("summary unreadable (%v); rebuilt from todos", err))
			doc.Summary = NewSummary()
		}
	}

	notes = append(notes, doc.Repair()...)
	return doc, notes, nil
}
