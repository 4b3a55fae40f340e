package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/todosync/internal/task"
)

func TestParse_Recovery(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantIDs []string
	}{
		{
			name:    "bare array",
			raw:     `[{"taskid": "1", "title": "Groceries", "description": "buy milk"}]`,
			wantIDs: []string{"1"},
		},
		{
			name:    "json fence",
			raw:     "```json\n[{\"taskid\": \"1\", \"title\": \"a\"}, {\"taskid\": \"2\", \"title\": \"b\"}]\n```",
			wantIDs: []string{"1", "2"},
		},
		{
			name:    "plain fence glued to content",
			raw:     "```[{\"taskid\": \"1\", \"title\": \"a\"}]```",
			wantIDs: []string{"1"},
		},
		{
			name:    "surrounding prose",
			raw:     "Sure! Here are the tasks:\n[{\"taskid\": \"7\", \"title\": \"x\"}]\nLet me know if you need more.",
			wantIDs: []string{"7"},
		},
		{
			name:    "bracket in prose before the array",
			raw:     "Tasks [see note] below [1]:\n[{\"taskid\": \"3\", \"title\": \"y\"}]",
			wantIDs: []string{"3"},
		},
		{
			name:    "brackets inside strings",
			raw:     "Result: [{\"taskid\": \"1\", \"title\": \"fix ] bug [\"}] done",
			wantIDs: []string{"1"},
		},
		{
			name:    "wrapper object",
			raw:     `{"tasks": [{"taskid": "1", "title": "a"}]}`,
			wantIDs: []string{"1"},
		},
		{
			name:    "todos wrapper",
			raw:     `{"todos": [{"taskid": "1", "title": "a"}]}`,
			wantIDs: []string{"1"},
		},
		{
			name:    "single task object",
			raw:     `{"taskid": "1", "title": "a"}`,
			wantIDs: []string{"1"},
		},
		{
			name:    "empty array",
			raw:     "[]",
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw)
			require.False(t, res.Failed, res.Diagnostic)

			var ids []string
			for _, c := range res.Candidates {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"only whitespace and fences", "```json\n\n```"},
		{"prose only", "I could not find any tasks in this conversation."},
		{"truncated array", `[{"taskid": "1", "title": "a"`},
		{"scalar json", `"just a string"`},
		{"unrelated object", `{"message": "hello"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw)
			assert.True(t, res.Failed)
			assert.Empty(t, res.Candidates)
			assert.NotEmpty(t, res.Diagnostic)
		})
	}
}

func TestParse_KeyAliasesAndValues(t *testing.T) {
	raw := `[
	  {"task_id": 12, "title": "Essay", "concise_description": "write essay",
	   "due_date": "2026-11-01", "priority": true, "category": "college", "status": "havent started"},
	  {"id": "b", "title": "Gym", "description": "go to gym", "concise_description": "ignored",
	   "priority": "high", "due_date": null, "status": null}
	]`

	res := Parse(raw)
	require.False(t, res.Failed)
	require.Len(t, res.Candidates, 2)

	assert.Equal(t, task.Candidate{
		ID:          "12",
		Title:       "Essay",
		Description: "write essay",
		DueDate:     "2026-11-01",
		Priority:    "true",
		Category:    "college",
		Status:      "havent started",
	}, res.Candidates[0])

	assert.Equal(t, task.Candidate{
		ID:          "b",
		Title:       "Gym",
		Description: "go to gym",
		Priority:    "high",
	}, res.Candidates[1])
}

func TestParse_NullFallsBackToAlias(t *testing.T) {
	res := Parse(`[{"taskid": "1", "title": "a", "description": null, "concise_description": "fallback"}]`)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "fallback", res.Candidates[0].Description)
}

func TestParse_NonObjectElementsSkipped(t *testing.T) {
	res := Parse(`[{"taskid": "1", "title": "a"}, "stray", 42, {"taskid": "2", "title": "b"}]`)
	require.False(t, res.Failed)
	require.Len(t, res.Candidates, 2)
	assert.Contains(t, res.Diagnostic, "element 1")
	assert.Contains(t, res.Diagnostic, "element 2")
}

func TestParse_CandidatesFeedValidation(t *testing.T) {
	res := Parse("```json\n" + `[
	  {"taskid": "1", "title": "Groceries", "description": "buy milk", "status": "in progress"},
	  {"title": "no id"}
	]` + "\n```")

	batch := task.ValidateBatch(res.Candidates)
	require.Len(t, batch.Tasks, 1)
	assert.Equal(t, task.StatusInProgress, batch.Tasks[0].Status)
	assert.Len(t, batch.Rejected, 1)
}

func TestParse_PrefersNestedObjectArray(t *testing.T) {
	res := Parse(`Here: [[1, 2], [{"taskid": "1", "title": "a"}]]`)
	require.False(t, res.Failed, res.Diagnostic)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "1", res.Candidates[0].ID)
}

func TestParse_LargeInputStaysFast(t *testing.T) {
	list := `[{"taskid": "1", "title": "a"}]`
	inputs := map[string]string{
		"unclosed brackets": "prose " + strings.Repeat("[", 100000),
		"deep valid nesting": "prose " + strings.Repeat("[", 50000) + strings.Repeat("]", 50000),
		"deep invalid nesting": "prose " + strings.Repeat("[ ", 50000) + "1," + strings.Repeat("]", 50000),
		"many prose brackets": strings.Repeat("see [note] ", 50000) + list,
	}

	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			_ = Parse(raw)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}

	res := Parse(strings.Repeat("[", 100000) + " " + list)
	require.False(t, res.Failed, res.Diagnostic)
	assert.Len(t, res.Candidates, 1)
}
