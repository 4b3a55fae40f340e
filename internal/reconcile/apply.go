package reconcile

import (
	"fmt"
	"strings"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
	"github.com/randalmurphal/todosync/internal/snapshot"
)

// Apply executes commands against doc in order.
//
// add and update replace the stored task entirely and set its summary entry
// to the new description. remove deletes the id from both; removing an id
// that is not there is a no-op. A malformed command or a key-set mismatch
// afterwards is an INVARIANT_VIOLATION error, and doc must then be discarded.
func Apply(commands []Command, doc *snapshot.Document) error {
	for i, cmd := range commands {
		switch cmd.Kind {
		case KindAdd, KindUpdate:
			if cmd.Task == nil {
				return syncerrors.ErrInvariant(fmt.Sprintf("command %d (%s %s) has no task", i, cmd.Kind, cmd.TaskID))
			}
			if cmd.Task.ID != cmd.TaskID {
				return syncerrors.ErrInvariant(fmt.Sprintf("command %d targets %q but carries task %q", i, cmd.TaskID, cmd.Task.ID))
			}
			doc.PutTask(*cmd.Task)
			doc.Summary.Set(cmd.TaskID, cmd.Task.Description)
		case KindRemove:
			doc.DeleteTask(cmd.TaskID)
			doc.Summary.Delete(cmd.TaskID)
		default:
			return syncerrors.ErrInvariant(fmt.Sprintf("command %d has unknown kind %q", i, cmd.Kind))
		}
	}
	return CheckInvariants(doc)
}

// CheckInvariants verifies that the task ids and summary keys of doc are the
// same set.
func CheckInvariants(doc *snapshot.Document) error {
	onlyTasks, onlySummary := doc.KeyMismatch()
	if len(onlyTasks) == 0 && len(onlySummary) == 0 {
		return nil
	}

	var parts []string
	if len(onlyTasks) > 0 {
		parts = append(parts, "tasks without summary entry: "+strings.Join(onlyTasks, ", "))
	}
	if len(onlySummary) > 0 {
		parts = append(parts, "summary entries without task: "+strings.Join(onlySummary, ", "))
	}
	return syncerrors.ErrInvariant(strings.Join(parts, "; "))
}

// checkPlanned verifies that applying a plan left exactly the planned
// summary behind.
func checkPlanned(doc *snapshot.Document, plan Plan) error {
	got := doc.Summary.Map()
	want := plan.Next.Map()
	if len(got) != len(want) {
		return syncerrors.ErrInvariant(fmt.Sprintf("summary has %d entries after apply, plan expected %d", len(got), len(want)))
	}
	for id, desc := range want {
		if got[id] != desc {
			return syncerrors.ErrInvariant(fmt.Sprintf("summary entry %q differs from plan after apply", id))
		}
	}
	return nil
}
