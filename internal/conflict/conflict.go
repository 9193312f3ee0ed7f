// Package conflict detects overlaps between scheduled tasks and busy intervals.
package conflict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/dayplan/internal/models"
)

// Result contains all detected conflicts
type Result struct {
	Conflicts []models.Conflict
}

// HasConflicts returns true if there are any conflicts
func (r Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Strings renders every conflict in its display form.
func (r Result) Strings() []string {
	return Strings(r.Conflicts)
}

// FormatReport returns a human-readable report of all conflicts
func (r Result) FormatReport() string {
	if !r.HasConflicts() {
		return "No conflicts detected."
	}
	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	return b.String()
}

func Strings(conflicts []models.Conflict) []string {
	out := make([]string, len(conflicts))
	for i, c := range conflicts {
		out[i] = c.String()
	}
	return out
}

type item struct {
	iv    models.Interval
	task  *models.Task // nil for external intervals
	order int
}

// Detect reports every overlapping pair among the resolved tasks and between
// a resolved task and an external busy interval. Each unordered pair appears
// once, ordered by the start of its overlap window.
func Detect(tasks []models.Task, busy []models.Interval) Result {
	items := make([]item, 0, len(tasks)+len(busy))
	for i := range tasks {
		iv, ok := tasks[i].Interval()
		if !ok {
			continue
		}
		items = append(items, item{iv: iv, task: &tasks[i], order: len(items)})
	}
	for _, b := range busy {
		items = append(items, item{iv: b, order: len(items)})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].iv.Start.Equal(items[j].iv.Start) {
			return items[i].iv.Start.Before(items[j].iv.Start)
		}
		return items[i].order < items[j].order
	})

	var found []models.Conflict
	var active []item
	for _, cur := range items {
		// drop intervals that ended at or before cur starts
		kept := active[:0]
		for _, a := range active {
			if a.iv.End.After(cur.iv.Start) {
				kept = append(kept, a)
			}
		}
		active = kept

		for _, a := range active {
			if a.task == nil && cur.task == nil {
				continue
			}
			window, ok := a.iv.Overlap(cur.iv)
			if !ok {
				continue
			}
			found = append(found, pair(a, cur, window))
		}
		active = append(active, cur)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Window.Start.Before(found[j].Window.Start)
	})
	return Result{Conflicts: found}
}

func pair(a, b item, window models.Interval) models.Conflict {
	// keep the task first when one side is external
	if a.task == nil {
		a, b = b, a
	}
	c := models.Conflict{
		A:      a.task.ID,
		AName:  a.task.Name,
		B:      b.iv.Ref,
		BName:  b.iv.Label,
		Window: window,
	}
	if b.task == nil {
		c.Kind = models.ConflictTaskExternal
		if !a.task.IsFixed {
			c.Displace = a.task.ID
		}
		return c
	}

	c.Kind = models.ConflictTaskTask
	c.Displace = displace(*a.task, *b.task)
	return c
}

// displace picks the party to move: never a fixed task, otherwise the lower
// scored one, ties going to the higher ID.
func displace(a, b models.Task) string {
	switch {
	case a.IsFixed && b.IsFixed:
		return ""
	case a.IsFixed:
		return b.ID
	case b.IsFixed:
		return a.ID
	case a.PriorityScore < b.PriorityScore:
		return a.ID
	case b.PriorityScore < a.PriorityScore:
		return b.ID
	case a.ID > b.ID:
		return a.ID
	default:
		return b.ID
	}
}

// Unscheduled builds the conflict entry for a task that could not be placed.
func Unscheduled(t models.Task) models.Conflict {
	return models.Conflict{
		Kind:     models.ConflictUnscheduled,
		A:        t.ID,
		AName:    t.Name,
		Displace: t.ID,
	}
}
