// Package task provides the todo task model for todosync.
package task

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldProblem is one rejected or coerced field, named by its JSON key.
type FieldProblem struct {
	Field   string
	Value   string
	Message string
}

func (p FieldProblem) Error() string {
	if p.Value == "" {
		return p.Field + ": " + p.Message
	}
	return fmt.Sprintf("%s: %s (got %q)", p.Field, p.Message, p.Value)
}

// Problems collects FieldProblems. A nil Problems means the task is valid.
type Problems []FieldProblem

func (ps Problems) Error() string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Error()
	}
	return strings.Join(parts, "; ")
}

// Err returns ps as an error, or nil when empty.
func (ps Problems) Err() error {
	if len(ps) == 0 {
		return nil
	}
	return ps
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator returns the shared validator, reporting fields by their JSON name.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate reports every field constraint t breaks.
func (t *Task) Validate() Problems {
	var problems Problems

	if strings.TrimSpace(t.ID) != t.ID {
		problems = append(problems, FieldProblem{
			Field:   "taskid",
			Value:   t.ID,
			Message: "must not have surrounding whitespace",
		})
	}

	err := structValidator().Struct(t)
	if err == nil {
		return problems
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return append(problems, FieldProblem{Field: "task", Message: err.Error()})
	}
	for _, fe := range fieldErrs {
		problems = append(problems, FieldProblem{
			Field:   fe.Field(),
			Value:   fmt.Sprint(fe.Value()),
			Message: fieldMessage(fe),
		})
	}
	return problems
}

// fieldMessage turns a validator tag failure into a short message.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed " + fe.Tag() + " check"
	}
}
