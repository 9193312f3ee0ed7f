package scheduler

import (
	"sort"

	"github.com/julianstephens/dayplan/internal/models"
)

// Strategy names a task ordering used by the fallback packer.
type Strategy string

const (
	StrategyPriority Strategy = "priority"
	StrategyDeadline Strategy = "deadline"
	StrategyBalanced Strategy = "balanced"
	StrategyReasoner Strategy = "reasoner"
	StrategyModified Strategy = "modified"
)

var fallbackStrategies = []Strategy{StrategyPriority, StrategyDeadline, StrategyBalanced}

// baseLess orders by score descending, fixed first, earlier due date (none
// last), then ID.
func baseLess(a, b models.Task) bool {
	if a.PriorityScore != b.PriorityScore {
		return a.PriorityScore > b.PriorityScore
	}
	if a.IsFixed != b.IsFixed {
		return a.IsFixed
	}
	if c := compareDue(a, b); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

func compareDue(a, b models.Task) int {
	switch {
	case a.Due == nil && b.Due == nil:
		return 0
	case a.Due == nil:
		return 1
	case b.Due == nil:
		return -1
	case a.Due.Before(*b.Due):
		return -1
	case b.Due.Before(*a.Due):
		return 1
	}
	return 0
}

// order returns a sorted copy of tasks for the strategy.
func order(tasks []models.Task, s Strategy) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool { return baseLess(out[i], out[j]) })

	switch s {
	case StrategyDeadline:
		sort.SliceStable(out, func(i, j int) bool {
			if c := compareDue(out[i], out[j]); c != 0 {
				return c < 0
			}
			return baseLess(out[i], out[j])
		})
	case StrategyBalanced:
		out = roundRobin(out)
	}
	return out
}

// roundRobin interleaves target groups, keyed by each task's first target.
// Groups take turns in the order their best task appears.
func roundRobin(sorted []models.Task) []models.Task {
	var keys []string
	groups := make(map[string][]models.Task)
	for _, t := range sorted {
		key := ""
		if len(t.Targets) > 0 {
			key = t.Targets[0]
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], t)
	}

	out := make([]models.Task, 0, len(sorted))
	for len(out) < len(sorted) {
		for _, k := range keys {
			if len(groups[k]) == 0 {
				continue
			}
			out = append(out, groups[k][0])
			groups[k] = groups[k][1:]
		}
	}
	return out
}

func describe(s Strategy) string {
	switch s {
	case StrategyDeadline:
		return "Tasks with the nearest due dates are placed first, then by priority."
	case StrategyBalanced:
		return "Goal targets take turns so no single target crowds out the others."
	default:
		return "Highest priority tasks are placed first in the earliest free gaps."
	}
}
