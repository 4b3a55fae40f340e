// Package extract turns model output into candidate task records.
//
// Model output is untrusted: it may be wrapped in markdown fences, surrounded
// by prose, or not contain JSON at all. Parse recovers what it can and never
// fails; a result it cannot use is marked Failed with a diagnostic.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/randalmurphal/todosync/internal/task"
)

// Result is the outcome of one extraction.
type Result struct {
	// Candidates are the task-shaped records found, in output order.
	Candidates []task.Candidate

	// Diagnostic explains what was skipped or why nothing was found.
	Diagnostic string

	// Failed means no structured data could be located at all. A valid
	// empty array is not a failure.
	Failed bool
}

// Key aliases accepted for each candidate field, first match wins.
var (
	idKeys          = []string{"taskid", "task_id", "id"}
	titleKeys       = []string{"title", "name"}
	descriptionKeys = []string{"description", "concise_description"}
	dueDateKeys     = []string{"due_date", "due", "deadline"}
	priorityKeys    = []string{"priority"}
	categoryKeys    = []string{"category"}
	statusKeys      = []string{"status"}
)

// wrapperKeys are object keys that may hold the task array.
var wrapperKeys = []string{"tasks", "todos"}

var fenceLine = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_-]*[ \t]*$")

// Parse extracts candidate records from raw model output.
func Parse(raw string) Result {
	cleaned := strings.TrimSpace(stripFences(raw))
	if cleaned == "" {
		return failed("model output is empty")
	}

	list, ok := locateArray(cleaned)
	if !ok {
		return failed(fmt.Sprintf("no JSON array found in model output (%s)", preview(cleaned)))
	}

	var res Result
	var notes []string
	index := 0
	list.ForEach(func(_, elem gjson.Result) bool {
		if !elem.IsObject() {
			notes = append(notes, fmt.Sprintf("element %d is not an object; skipped", index))
		} else {
			res.Candidates = append(res.Candidates, candidateFrom(elem))
		}
		index++
		return true
	})
	res.Diagnostic = strings.Join(notes, "; ")
	return res
}

func failed(diagnostic string) Result {
	return Result{Failed: true, Diagnostic: diagnostic}
}

// stripFences removes markdown code fence lines, including a fence glued to
// the start or end of single-line output.
func stripFences(s string) string {
	s = fenceLine.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```json"); ok {
		s = rest
	} else if rest, ok := strings.CutPrefix(s, "```"); ok {
		s = rest
	}
	s, _ = strings.CutSuffix(s, "```")
	return s
}

// locateArray finds the task array: the whole text, an object wrapping it,
// or the first balanced [...] inside surrounding prose.
func locateArray(s string) (gjson.Result, bool) {
	if gjson.Valid(s) {
		doc := gjson.Parse(s)
		if doc.IsArray() {
			return doc, true
		}
		if doc.IsObject() {
			for _, key := range wrapperKeys {
				if inner := doc.Get(key); inner.IsArray() {
					return inner, true
				}
			}
			// A single task object.
			if firstOf(doc, idKeys).Exists() || firstOf(doc, titleKeys).Exists() {
				return gjson.Parse("[" + doc.Raw + "]"), true
			}
		}
		return gjson.Result{}, false
	}

	// Prefer an array holding objects, so a bracketed "[1]" in prose does
	// not shadow the real list; fall back to the first valid array. Spans
	// nested in a valid array are searched through the parsed value rather
	// than validated again, and the bytes handed to gjson.Valid are capped,
	// so the scan stays linear in len(s).
	var firstValid gjson.Result
	found := false
	budget := 4*len(s) + 4096
	validEnd := -1
	for _, span := range bracketSpans(s) {
		if span.start < validEnd {
			continue
		}
		candidate := s[span.start : span.end+1]
		if budget -= len(candidate); budget < 0 {
			break
		}
		if !gjson.Valid(candidate) {
			continue
		}
		list := gjson.Parse(candidate)
		if inner, ok := objectArray(list, maxNesting); ok {
			return inner, true
		}
		if !found {
			firstValid, found = list, true
		}
		validEnd = span.end
	}
	return firstValid, found
}

// maxNesting bounds how deep objectArray looks inside a valid array.
const maxNesting = 4

// objectArray returns list, or the first array nested in it up to depth
// levels down, that holds an object.
func objectArray(list gjson.Result, depth int) (gjson.Result, bool) {
	if holdsObject(list) {
		return list, true
	}
	if depth == 0 {
		return gjson.Result{}, false
	}
	var hit gjson.Result
	found := false
	list.ForEach(func(_, elem gjson.Result) bool {
		if elem.IsArray() {
			hit, found = objectArray(elem, depth-1)
		}
		return !found
	})
	return hit, found
}

func holdsObject(list gjson.Result) bool {
	for _, elem := range list.Array() {
		if elem.IsObject() {
			return true
		}
	}
	return false
}

type span struct{ start, end int }

// bracketSpans returns every balanced [...] in s, ordered by start, in one
// pass. Quotes open a JSON string only inside a bracket, so brackets in
// strings are skipped while quotes in surrounding prose are not.
func bracketSpans(s string) []span {
	var spans []span
	var open []int
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = len(open) > 0
		case '[':
			open = append(open, i)
		case ']':
			if n := len(open); n > 0 {
				spans = append(spans, span{open[n-1], i})
				open = open[:n-1]
			}
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

func candidateFrom(obj gjson.Result) task.Candidate {
	return task.Candidate{
		ID:          scalar(firstOf(obj, idKeys)),
		Title:       scalar(firstOf(obj, titleKeys)),
		Description: scalar(firstOf(obj, descriptionKeys)),
		DueDate:     scalar(firstOf(obj, dueDateKeys)),
		Priority:    scalar(firstOf(obj, priorityKeys)),
		Category:    scalar(firstOf(obj, categoryKeys)),
		Status:      scalar(firstOf(obj, statusKeys)),
	}
}

// firstOf returns the first non-null value among keys.
func firstOf(obj gjson.Result, keys []string) gjson.Result {
	for _, key := range keys {
		if v := obj.Get(key); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// scalar renders a JSON value as the raw string the task model validates.
func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	default:
		return v.Raw
	}
}

func preview(s string) string {
	const limit = 80
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= limit {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%q...", s[:limit])
}
