package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
	"github.com/randalmurphal/todosync/internal/snapshot"
	"github.com/randalmurphal/todosync/internal/task"
)

func TestApply_AddUpdateRemove(t *testing.T) {
	doc := snapshot.New()
	require.NoError(t, Apply([]Command{
		Add(task.New("1", "Groceries", "buy milk")),
		Add(task.New("2", "Call mom", "call mom")),
	}, doc))
	assert.Equal(t, []string{"1", "2"}, doc.TaskIDs())

	require.NoError(t, Apply([]Command{
		Update(task.New("1", "Groceries", "buy milk and eggs")),
		Remove("2"),
	}, doc))

	got, ok := doc.Task("1")
	require.True(t, ok)
	assert.Equal(t, "buy milk and eggs", got.Description)
	desc, _ := doc.Summary.Get("1")
	assert.Equal(t, "buy milk and eggs", desc)
	assert.False(t, doc.HasTask("2"))
	assert.False(t, doc.Summary.Has("2"))
}

func TestApply_UpdateReplacesWholeTask(t *testing.T) {
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	prio := true
	orig := task.New("1", "Essay", "write essay")
	orig.DueDate = &due
	orig.Priority = &prio
	orig.Category = task.CategoryCollege

	doc := snapshot.New()
	require.NoError(t, Apply([]Command{Add(orig)}, doc))
	require.NoError(t, Apply([]Command{Update(task.New("1", "Essay draft", "write essay draft"))}, doc))

	got, _ := doc.Task("1")
	assert.Equal(t, "Essay draft", got.Title)
	assert.Nil(t, got.DueDate)
	assert.Nil(t, got.Priority)
	assert.Empty(t, got.Category)
}

func TestApply_RemoveMissingIsNoop(t *testing.T) {
	doc := snapshot.New()
	require.NoError(t, Apply([]Command{Add(task.New("1", "A", "a"))}, doc))
	require.NoError(t, Apply([]Command{Remove("nope")}, doc))
	assert.Equal(t, 1, doc.Len())
}

func TestApply_MalformedCommands(t *testing.T) {
	mismatched := Add(task.New("1", "A", "a"))
	mismatched.TaskID = "2"

	tests := []struct {
		name string
		cmd  Command
	}{
		{"add without task", Command{TaskID: "1", Kind: KindAdd}},
		{"update without task", Command{TaskID: "1", Kind: KindUpdate}},
		{"id mismatch", mismatched},
		{"unknown kind", Command{TaskID: "1", Kind: Kind("rename")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Apply([]Command{tt.cmd}, snapshot.New())
			require.Error(t, err)
			assert.True(t, syncerrors.HasCode(err, syncerrors.CodeInvariantViolation))
		})
	}
}

func TestApply_ReportsPreexistingMismatch(t *testing.T) {
	doc := snapshot.New()
	doc.PutTask(task.New("orphan", "Orphan", "o"))

	err := Apply(nil, doc)
	require.Error(t, err)
	assert.True(t, syncerrors.HasCode(err, syncerrors.CodeInvariantViolation))
	assert.Contains(t, err.Error(), "orphan")
}

func TestCheckInvariants(t *testing.T) {
	doc := snapshot.New()
	assert.NoError(t, CheckInvariants(doc))

	doc.Summary.Set("ghost", "g")
	err := CheckInvariants(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary entries without task: ghost")
}

func TestCheckPlanned(t *testing.T) {
	doc := snapshot.New()
	plan := Diff([]task.Task{task.New("1", "A", "a")}, doc.Summary)
	require.NoError(t, Apply(plan.Commands, doc))
	assert.NoError(t, checkPlanned(doc, plan))

	plan.Next.Set("1", "different")
	assert.True(t, syncerrors.HasCode(checkPlanned(doc, plan), syncerrors.CodeInvariantViolation))
}
