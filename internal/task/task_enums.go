// Package task provides the todo task model for todosync.
package task

import (
	"encoding/json"
	"strings"
)

// Category represents the area of life a task belongs to.
// The zero value means the category is unknown.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryCollege  Category = "college"
	CategoryPersonal Category = "personal"
)

// ValidCategories returns all valid category values, in display order.
func ValidCategories() []Category {
	return []Category{CategoryWork, CategoryCollege, CategoryPersonal}
}

// IsValidCategory returns true if the category is a valid category value.
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryWork, CategoryCollege, CategoryPersonal:
		return true
	default:
		return false
	}
}

// ParseCategory normalizes a free-form category string.
// Returns false if the value is not a known category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "school", "university", "uni":
		return CategoryCollege, true
	case "home", "private":
		return CategoryPersonal, true
	case "job", "office":
		return CategoryWork, true
	}
	return c, IsValidCategory(c)
}

// MarshalJSON writes an unknown category as null.
func (c Category) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON reads null as an unknown category.
func (c *Category) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*c = ""
		return nil
	}
	*c = Category(*s)
	return nil
}

// Status represents the progress of a task.
// The zero value means the status is unknown.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ValidStatuses returns all valid status values, in display order.
func ValidStatuses() []Status {
	return []Status{StatusNotStarted, StatusInProgress, StatusCompleted}
}

// statusAliases maps the spellings models actually produce onto canonical
// statuses. Keys are lowercased with '_', '-' folded to spaces and
// apostrophes removed.
var statusAliases = map[string]Status{
	"not started":    StatusNotStarted,
	"havent started": StatusNotStarted,
	"todo":           StatusNotStarted,
	"to do":          StatusNotStarted,
	"pending":        StatusNotStarted,
	"open":           StatusNotStarted,
	"in progress":    StatusInProgress,
	"started":        StatusInProgress,
	"doing":          StatusInProgress,
	"active":         StatusInProgress,
	"completed":      StatusCompleted,
	"complete":       StatusCompleted,
	"done":           StatusCompleted,
	"finished":       StatusCompleted,
}

// ParseStatus normalizes a free-form status string.
// Returns false if the value is not a known status.
func ParseStatus(s string) (Status, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", " ", "-", " ", "'", "", "’", "").Replace(key)
	key = strings.Join(strings.Fields(key), " ")
	if st, ok := statusAliases[key]; ok {
		return st, true
	}
	return Status(key), false
}

// MarshalJSON writes an unknown status as null.
func (s Status) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON reads null as an unknown status.
func (s *Status) UnmarshalJSON(b []byte) error {
	var v *string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*s = ""
		return nil
	}
	*s = Status(*v)
	return nil
}

// oneOf renders values as "a, b, c" for messages.
func oneOf[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
