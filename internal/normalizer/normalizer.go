// Package normalizer converts the three input sheets into canonical tasks.
package normalizer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/utils"
)

// taskNamespace seeds the deterministic task IDs.
var taskNamespace = uuid.MustParse("6f1c3a52-8a7e-4d1b-9c59-2f0e4b7d9a10")

// Normalizer turns sheet rows into tasks for a single plan date.
type Normalizer struct {
	// Date is the plan day. Only its calendar date is used.
	Date     time.Time
	Location *time.Location
	// UnderservedTargets overrides the targets derived from the input rows.
	UnderservedTargets []string
}

func New(date time.Time, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{Date: utils.StartOfDay(date.In(loc)), Location: loc}
}

func (n *Normalizer) location() *time.Location {
	if n.Location != nil {
		return n.Location
	}
	return time.Local
}

func (n *Normalizer) planDate() time.Time {
	return utils.StartOfDay(n.Date.In(n.location()))
}

// NormalizeRows converts raw sheet rows into items and normalizes them.
func (n *Normalizer) NormalizeRows(fixed, priority, incomplete []models.Row) []models.Task {
	fixedItems := make([]models.FixedItem, len(fixed))
	for i, r := range fixed {
		fixedItems[i] = models.FixedItemFromRow(i, r)
	}
	priorityItems := make([]models.PriorityItem, len(priority))
	for i, r := range priority {
		priorityItems[i] = models.PriorityItemFromRow(i, r)
	}
	incompleteItems := make([]models.IncompleteItem, len(incomplete))
	for i, r := range incomplete {
		incompleteItems[i] = models.IncompleteItemFromRow(i, r)
	}
	return n.Normalize(fixedItems, priorityItems, incompleteItems)
}

// Normalize returns one task per usable item. Malformed items are logged and
// skipped.
func (n *Normalizer) Normalize(fixed []models.FixedItem, priority []models.PriorityItem, incomplete []models.IncompleteItem) []models.Task {
	underserved := n.underserved(priority, incomplete)
	ids := make(map[string]bool)
	tasks := make([]models.Task, 0, len(fixed)+len(priority)+len(incomplete))

	add := func(t models.Task, index int) {
		t.ID = uniqueID(ids, n.planDate().Format(constants.DateFormat), t.Kind, index, t.Name)
		tasks = append(tasks, t)
	}

	for _, item := range fixed {
		t, err := n.fixedTask(item)
		if err != nil {
			logger.Warn("Skipping fixed row", "row", item.Index, "name", item.Name, "error", err)
			continue
		}
		add(t, item.Index)
	}
	for _, item := range priority {
		t, ok, err := n.priorityTask(item, underserved)
		if err != nil {
			logger.Warn("Skipping priority row", "row", item.Index, "name", item.Name, "error", err)
			continue
		}
		if !ok {
			logger.Debug("Recurring task not due", "row", item.Index, "name", item.Name)
			continue
		}
		add(t, item.Index)
	}
	for _, item := range incomplete {
		t, err := n.incompleteTask(item)
		if err != nil {
			logger.Warn("Skipping incomplete row", "row", item.Index, "name", item.Name, "error", err)
			continue
		}
		add(t, item.Index)
	}

	logger.Debug("Normalized tasks", "date", n.planDate().Format(constants.DateFormat), "count", len(tasks))
	return tasks
}

func (n *Normalizer) fixedTask(item models.FixedItem) (models.Task, error) {
	if item.Name == "" {
		return models.Task{}, fmt.Errorf("missing name")
	}
	if err := n.matchesDay(item.Day); err != nil {
		return models.Task{}, err
	}
	day := n.planDate()
	start, err := utils.ClockOn(day, item.StartTime)
	if err != nil {
		return models.Task{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := utils.ClockOn(day, item.EndTime)
	if err != nil {
		return models.Task{}, fmt.Errorf("end_time: %w", err)
	}
	if !end.After(start) {
		return models.Task{}, fmt.Errorf("end_time %s is not after start_time %s", item.EndTime, item.StartTime)
	}

	t := models.Task{
		Name:          item.Name,
		Kind:          models.TaskKindFixed,
		DurationMin:   int(end.Sub(start).Minutes()),
		PriorityScore: constants.FixedPriorityScore,
		Targets:       models.SplitTargets(item.Targets),
		IsFixed:       true,
		Source:        models.SourceExternalSheet,
		Policy:        models.PolicyDrop,
		Metadata: models.TaskMetadata{
			EstimatedEffort: parsePercent(item.Effort, 0),
			PriorityLabel:   models.PriorityCritical,
		},
	}
	return t.Placed(start), nil
}

// matchesDay accepts a YYYY-MM-DD date or a weekday name equal to the plan date.
func (n *Normalizer) matchesDay(day string) error {
	day = strings.TrimSpace(day)
	if day == "" {
		return fmt.Errorf("missing day")
	}
	plan := n.planDate()
	if d, err := utils.ParseDateInLocation(day, n.location()); err == nil {
		if !d.Equal(plan) {
			return fmt.Errorf("row is for %s", day)
		}
		return nil
	}
	wd, ok := utils.ParseWeekday(day)
	if !ok {
		return fmt.Errorf("invalid day %q", day)
	}
	if wd != plan.Weekday() {
		return fmt.Errorf("row is for %s", wd)
	}
	return nil
}

func (n *Normalizer) priorityTask(item models.PriorityItem, underserved map[string]bool) (models.Task, bool, error) {
	if item.Name == "" {
		return models.Task{}, false, fmt.Errorf("missing name")
	}
	label := parseLabel(item.Priority)
	targets := models.SplitTargets(item.Targets)

	due, err := n.parseDue(item.DueDate)
	if err != nil {
		logger.Warn("Ignoring malformed due date", "row", item.Index, "due_date", item.DueDate, "error", err)
		due = nil
	}

	kind := models.TaskKindFlexible
	rec, err := utils.ParseRecurrence(item.Recurrence, item.LastDone)
	if err != nil {
		return models.Task{}, false, fmt.Errorf("recurrence: %w", err)
	}
	if rec != nil {
		if !rec.DueOn(n.planDate()) {
			return models.Task{}, false, nil
		}
		kind = models.TaskKindRecurring
	}

	return models.Task{
		Name:          item.Name,
		Kind:          kind,
		DurationMin:   parseDuration(item.EstimatedDuration),
		PriorityScore: FlexibleScore(label, n.planDate(), due, targets, underserved),
		Targets:       targets,
		Source:        models.SourceExternalSheet,
		Policy:        models.PolicyPush,
		Metadata: models.TaskMetadata{
			EstimatedEffort: parsePercent(item.Effort, 0),
			PriorityLabel:   label,
		},
		Due:        due,
		Recurrence: rec,
	}, true, nil
}

func (n *Normalizer) incompleteTask(item models.IncompleteItem) (models.Task, error) {
	if item.Name == "" {
		return models.Task{}, fmt.Errorf("missing name")
	}
	label := parseLabel(item.Priority)
	remaining := parseDuration(item.RemainingDuration)
	original := remaining
	if v, err := strconv.Atoi(strings.TrimSpace(item.OriginalDuration)); err == nil && v > 0 {
		original = v
	}

	return models.Task{
		Name:          item.Name,
		Kind:          models.TaskKindIncomplete,
		DurationMin:   remaining,
		PriorityScore: IncompleteScore(label),
		Targets:       models.SplitTargets(item.Targets),
		Source:        models.SourceExternalSheet,
		Policy:        models.PolicySplit,
		Metadata: models.TaskMetadata{
			ProgressPercent: parsePercent(item.Progress, 0),
			PriorityLabel:   label,
		},
		Carryover: &models.Carryover{
			OriginalDurationMin: original,
			SourceDate:          item.SourceDate,
			Reason:              item.Reason,
		},
	}, nil
}

func (n *Normalizer) parseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if d, err := utils.ParseDateInLocation(s, n.location()); err == nil {
		return &d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	d = d.In(n.location())
	return &d, nil
}

// underserved returns the explicit targets, or those whose planned minutes
// across the priority and incomplete rows fall below the mean.
func (n *Normalizer) underserved(priority []models.PriorityItem, incomplete []models.IncompleteItem) map[string]bool {
	out := make(map[string]bool)
	if n.UnderservedTargets != nil {
		for _, t := range n.UnderservedTargets {
			if t = strings.TrimSpace(t); t != "" {
				out[t] = true
			}
		}
		return out
	}

	minutes := make(map[string]int)
	for _, p := range priority {
		for _, t := range models.SplitTargets(p.Targets) {
			minutes[t] += parseDuration(p.EstimatedDuration)
		}
	}
	for _, in := range incomplete {
		for _, t := range models.SplitTargets(in.Targets) {
			minutes[t] += parseDuration(in.RemainingDuration)
		}
	}
	if len(minutes) < 2 {
		return out
	}

	total := 0
	for _, m := range minutes {
		total += m
	}
	mean := float64(total) / float64(len(minutes))
	for t, m := range minutes {
		if float64(m) < mean {
			out[t] = true
		}
	}
	return out
}

func uniqueID(seen map[string]bool, date string, kind models.TaskKind, index int, name string) string {
	key := fmt.Sprintf("%s|%s|%d|%s", date, kind, index, name)
	id := uuid.NewSHA1(taskNamespace, []byte(key)).String()
	for seen[id] {
		key += "'"
		id = uuid.NewSHA1(taskNamespace, []byte(key)).String()
	}
	seen[id] = true
	return id
}

func parseLabel(s string) models.PriorityLabel {
	if l, ok := models.ParsePriorityLabel(s); ok {
		return l
	}
	return models.PriorityMedium
}

// parseDuration falls back to the default when s is missing, non-numeric or
// not positive.
func parseDuration(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return constants.DefaultTaskDurationMin
	}
	return v
}

func parsePercent(s string, def int) int {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return clamp(v, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SortedTargets returns the distinct targets of tasks in lexical order.
func SortedTargets(tasks []models.Task) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tasks {
		for _, tg := range t.Targets {
			if !seen[tg] {
				seen[tg] = true
				out = append(out, tg)
			}
		}
	}
	sort.Strings(out)
	return out
}
