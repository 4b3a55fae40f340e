package reconcile

import (
	"github.com/randalmurphal/todosync/internal/snapshot"
	"github.com/randalmurphal/todosync/internal/task"
)

// Diff compares validated candidates with the previous summary.
//
// A candidate whose id is new is added; one whose description changed is
// updated; one with the same description produces nothing. Every previous
// id missing from candidates is removed, so the candidate list is
// authoritative. When an id appears more than once the last occurrence
// wins and only it is considered, at its own position.
//
// Diff is pure: prev is not modified.
func Diff(candidates []task.Task, prev *snapshot.Summary) Plan {
	if prev == nil {
		prev = snapshot.NewSummary()
	}

	last := make(map[string]int, len(candidates))
	for i, t := range candidates {
		last[t.ID] = i
	}

	next := prev.Clone()
	var commands []Command

	for i, t := range candidates {
		if last[t.ID] != i {
			continue
		}
		prevDesc, tracked := prev.Get(t.ID)
		switch {
		case !tracked:
			commands = append(commands, Add(t))
		case prevDesc != t.Description:
			commands = append(commands, Update(t))
		}
		next.Set(t.ID, t.Description)
	}

	for _, id := range prev.Keys() {
		if _, present := last[id]; !present {
			commands = append(commands, Remove(id))
			next.Delete(id)
		}
	}

	return Plan{Commands: commands, Next: next}
}
