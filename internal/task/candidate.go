package task

import (
	"strings"
	"time"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
)

// Candidate is an untrusted task record as it came out of extraction.
// All fields are raw strings; an empty string means the field was missing or null.
type Candidate struct {
	ID          string
	Title       string
	Description string
	DueDate     string
	Priority    string
	Category    string
	Status      string
}

// Warning is a non-fatal problem with one field of a candidate.
// The offending field is left absent on the resulting task.
type Warning struct {
	Index  int
	TaskID string
	FieldProblem
}

// Rejection records a candidate that could not become a task.
type Rejection struct {
	Index  int
	TaskID string
	Err    *syncerrors.Error
}

// Batch is the result of validating a list of candidates.
type Batch struct {
	Tasks    []Task
	Rejected []Rejection
	Warnings []Warning
}

// dueDateLayouts are tried in order; layouts without a zone are read as UTC.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDueDate parses the date formats extraction is known to produce.
func ParseDueDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParsePriority reads a boolean priority flag from common spellings.
func ParsePriority(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "high", "urgent", "1":
		return true, true
	case "false", "no", "low", "normal", "0":
		return false, true
	}
	return false, false
}

// FromCandidate validates a candidate and builds a Task from it.
//
// A missing id or title rejects the candidate. Optional fields that cannot be
// understood are dropped and reported as warnings instead.
func FromCandidate(c Candidate) (Task, []FieldProblem, error) {
	t := Task{
		ID:          strings.TrimSpace(c.ID),
		Title:       strings.TrimSpace(c.Title),
		Description: strings.TrimSpace(c.Description),
	}
	var warnings []FieldProblem

	if raw := strings.TrimSpace(c.DueDate); raw != "" {
		if due, ok := ParseDueDate(raw); ok {
			t.DueDate = &due
		} else {
			warnings = append(warnings, FieldProblem{Field: "due_date", Value: raw, Message: "unrecognized date"})
		}
	}
	if raw := strings.TrimSpace(c.Priority); raw != "" {
		if p, ok := ParsePriority(raw); ok {
			t.Priority = &p
		} else {
			warnings = append(warnings, FieldProblem{Field: "priority", Value: raw, Message: "unrecognized priority"})
		}
	}
	if raw := strings.TrimSpace(c.Category); raw != "" {
		if cat, ok := ParseCategory(raw); ok {
			t.Category = cat
		} else {
			warnings = append(warnings, FieldProblem{Field: "category", Value: raw, Message: "unknown category, want one of " + oneOf(ValidCategories())})
		}
	}
	if raw := strings.TrimSpace(c.Status); raw != "" {
		if st, ok := ParseStatus(raw); ok {
			t.Status = st
		} else {
			warnings = append(warnings, FieldProblem{Field: "status", Value: raw, Message: "unknown status, want one of " + oneOf(ValidStatuses())})
		}
	}

	if err := t.Validate().Err(); err != nil {
		return Task{}, warnings, syncerrors.ErrValidation(t.ID, err.Error()).WithCause(err)
	}
	return t, warnings, nil
}

// ValidateBatch turns candidates into tasks. A bad candidate is dropped and
// recorded in Rejected; it never stops the rest of the batch. Input order is
// preserved, duplicates included.
func ValidateBatch(candidates []Candidate) Batch {
	b := Batch{Tasks: make([]Task, 0, len(candidates))}
	for i, c := range candidates {
		t, warnings, err := FromCandidate(c)
		id := strings.TrimSpace(c.ID)
		for _, w := range warnings {
			b.Warnings = append(b.Warnings, Warning{Index: i, TaskID: id, FieldProblem: w})
		}
		if err != nil {
			b.Rejected = append(b.Rejected, Rejection{Index: i, TaskID: id, Err: syncerrors.AsError(err)})
			continue
		}
		b.Tasks = append(b.Tasks, t)
	}
	return b
}
