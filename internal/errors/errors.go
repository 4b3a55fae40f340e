// Package errors provides structured error types for todosync.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for todosync.
const (
	// Task errors
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeTaskNotFound     Code = "TASK_NOT_FOUND"

	// Extraction errors
	CodeExtractionFailed Code = "EXTRACTION_FAILED"

	// Persistence errors
	CodePersistenceRead  Code = "PERSISTENCE_READ_FAILED"
	CodePersistenceWrite Code = "PERSISTENCE_WRITE_FAILED"

	// Reconciliation errors
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
	CodePassRunning        Code = "PASS_RUNNING"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
)

// Category groups error codes by how a caller should react to them.
type Category int

const (
	CategoryUnknown Category = iota
	// CategoryRecoverable errors are handled locally and never abort a pass.
	CategoryRecoverable
	// CategoryFatal errors abort the current pass; persisted state is untouched.
	CategoryFatal
	// CategoryDefect errors indicate a bug and must be surfaced, not retried.
	CategoryDefect
	// CategoryUser errors are caused by bad input or configuration.
	CategoryUser
)

var codeCategories = map[Code]Category{
	CodeValidationFailed:   CategoryRecoverable,
	CodeExtractionFailed:   CategoryRecoverable,
	CodePersistenceRead:    CategoryRecoverable,
	CodePersistenceWrite:   CategoryFatal,
	CodePassRunning:        CategoryFatal,
	CodeInvariantViolation: CategoryDefect,
	CodeTaskNotFound:       CategoryUser,
	CodeConfigInvalid:      CategoryUser,
}

// ExitCode returns the process exit code used by the CLI for a category.
func (c Category) ExitCode() int {
	switch c {
	case CategoryUser:
		return 2
	case CategoryDefect:
		return 70
	default:
		return 1
	}
}

// Error is the structured error type for todosync.
type Error struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *Error) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category.
func (e *Error) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	type alias Error
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrValidation returns an error for a candidate task that failed validation.
func ErrValidation(taskID, reason string) *Error {
	what := "task rejected"
	if taskID != "" {
		what = fmt.Sprintf("task %s rejected", taskID)
	}
	return &Error{
		Code: CodeValidationFailed,
		What: what,
		Why:  reason,
	}
}

// ErrTaskNotFound returns an error when a task is not in the snapshot.
func ErrTaskNotFound(id string) *Error {
	return &Error{
		Code: CodeTaskNotFound,
		What: fmt.Sprintf("task %s not found", id),
		Why:  "No task with this id exists in the snapshot",
		Fix:  "Run 'todosync list' to see tracked tasks",
	}
}

// ErrExtraction returns an error describing why no candidates could be extracted.
func ErrExtraction(diagnostic string) *Error {
	return &Error{
		Code: CodeExtractionFailed,
		What: "could not extract tasks",
		Why:  diagnostic,
		Fix:  "The pass was skipped; retry, or pipe a JSON task array with 'todosync sync --raw'",
	}
}

// ErrPersistenceRead returns an error for an unreadable snapshot.
func ErrPersistenceRead(location string) *Error {
	return &Error{
		Code: CodePersistenceRead,
		What: "snapshot unreadable",
		Why:  fmt.Sprintf("Could not read %s; an empty snapshot was used instead", location),
	}
}

// ErrPersistenceWrite returns an error for a snapshot that could not be written.
func ErrPersistenceWrite(location string) *Error {
	return &Error{
		Code: CodePersistenceWrite,
		What: "could not save snapshot",
		Why:  fmt.Sprintf("Writing %s failed; the previous snapshot is unchanged", location),
		Fix:  "Check permissions and free space for the store location, then rerun",
	}
}

// ErrInvariant returns a defect error for a broken snapshot invariant.
func ErrInvariant(detail string) *Error {
	return &Error{
		Code: CodeInvariantViolation,
		What: "snapshot invariant violated",
		Why:  detail,
		Fix:  "This is a bug; nothing was written. Please report it with the logs",
	}
}

// ErrPassRunning returns an error when another pass holds the snapshot.
// A pid of 0 means the holder has not recorded itself yet.
func ErrPassRunning(pid int) *Error {
	why := "Another process holds the snapshot lock"
	if pid > 0 {
		why = fmt.Sprintf("Process %d holds the snapshot lock", pid)
	}
	return &Error{
		Code: CodePassRunning,
		What: "another reconciliation pass is running",
		Why:  why,
		Fix:  "Wait for it to finish, then run the command again",
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(field, reason string) *Error {
	return &Error{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check .todosync/config.yaml and TODOSYNC_* environment variables",
	}
}

// AsError extracts an *Error from err's chain. Returns nil if there is none.
func AsError(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return nil
}

// HasCode reports whether err's chain contains an *Error with the given code.
func HasCode(err error, code Code) bool {
	e := AsError(err)
	return e != nil && e.Code == code
}

// Wrap wraps a generic error into an *Error with unknown code.
func Wrap(err error, what string) *Error {
	return &Error{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}
