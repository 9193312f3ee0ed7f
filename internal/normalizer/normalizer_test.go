package normalizer

import (
	"testing"
	"time"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/models"
)

// 2024-03-15 is a Friday.
var planDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestNormalizeFixed(t *testing.T) {
	n := New(planDate, time.UTC)
	fixed := []models.FixedItem{
		{Index: 0, Name: "Algorithms", Day: "2024-03-15", StartTime: "09:00", EndTime: "10:30"},
		{Index: 1, Name: "Standup", Day: "Friday", StartTime: "11:00", EndTime: "11:15"},
		{Index: 2, Name: "Other day", Day: "2024-03-16", StartTime: "09:00", EndTime: "10:00"},
		{Index: 3, Name: "Wrong weekday", Day: "mon", StartTime: "09:00", EndTime: "10:00"},
		{Index: 4, Name: "Missing day", StartTime: "09:00", EndTime: "10:00"},
		{Index: 5, Name: "Bad time", Day: "fri", StartTime: "9am", EndTime: "10:00"},
		{Index: 6, Name: "Backwards", Day: "fri", StartTime: "10:00", EndTime: "09:00"},
		{Index: 7, Day: "fri", StartTime: "12:00", EndTime: "13:00"},
	}

	tasks := n.Normalize(fixed, nil, nil)
	if len(tasks) != 2 {
		t.Fatalf("Normalize() returned %d tasks, want 2", len(tasks))
	}

	alg := tasks[0]
	if alg.Kind != models.TaskKindFixed || !alg.IsFixed || alg.Policy != models.PolicyDrop {
		t.Errorf("fixed task has kind=%s is_fixed=%v policy=%s", alg.Kind, alg.IsFixed, alg.Policy)
	}
	if alg.PriorityScore != constants.FixedPriorityScore {
		t.Errorf("fixed score = %v, want %v", alg.PriorityScore, constants.FixedPriorityScore)
	}
	wantStart := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	if !alg.Start.Equal(wantStart) || alg.DurationMin != 90 {
		t.Errorf("fixed task start=%v duration=%d", alg.Start, alg.DurationMin)
	}
	if !alg.End.Equal(wantStart.Add(90 * time.Minute)) {
		t.Errorf("fixed task end = %v", alg.End)
	}
}

func TestNormalizePriorityDefaults(t *testing.T) {
	n := New(planDate, time.UTC)
	priority := []models.PriorityItem{
		{Index: 0, Name: "Missing duration", Priority: "high"},
		{Index: 1, Name: "Text duration", Priority: "low", EstimatedDuration: "a while"},
		{Index: 2, Name: "Negative duration", Priority: "low", EstimatedDuration: "-30"},
		{Index: 3, Name: "Explicit", Priority: "urgent-ish", EstimatedDuration: "45", Targets: "thesis, ,thesis;fitness"},
	}

	tasks := n.Normalize(nil, priority, nil)
	if len(tasks) != 4 {
		t.Fatalf("Normalize() returned %d tasks, want 4", len(tasks))
	}
	for _, task := range tasks[:3] {
		if task.DurationMin != constants.DefaultTaskDurationMin {
			t.Errorf("%s duration = %d, want default", task.Name, task.DurationMin)
		}
	}
	explicit := tasks[3]
	if explicit.DurationMin != 45 {
		t.Errorf("explicit duration = %d, want 45", explicit.DurationMin)
	}
	if explicit.Metadata.PriorityLabel != models.PriorityMedium {
		t.Errorf("unknown label mapped to %q, want medium", explicit.Metadata.PriorityLabel)
	}
	if len(explicit.Targets) != 2 || explicit.Targets[0] != "thesis" || explicit.Targets[1] != "fitness" {
		t.Errorf("targets = %q", explicit.Targets)
	}
	for _, task := range tasks {
		if task.IsResolved() {
			t.Errorf("%s should be unresolved", task.Name)
		}
		if task.Policy != models.PolicyPush {
			t.Errorf("%s policy = %s, want push", task.Name, task.Policy)
		}
	}
}

func TestPriorityMonotonicity(t *testing.T) {
	due := "2024-03-17"
	labels := []string{"critical", "high", "medium", "low"}

	for _, withDue := range []bool{false, true} {
		items := make([]models.PriorityItem, len(labels))
		for i, l := range labels {
			items[i] = models.PriorityItem{Index: i, Name: l, Priority: l, Targets: "thesis"}
			if withDue {
				items[i].DueDate = due
			}
		}
		tasks := New(planDate, time.UTC).Normalize(nil, items, nil)
		for i := 1; i < len(tasks); i++ {
			if tasks[i-1].PriorityScore <= tasks[i].PriorityScore {
				t.Errorf("withDue=%v: %s score %v not above %s score %v", withDue,
					tasks[i-1].Name, tasks[i-1].PriorityScore, tasks[i].Name, tasks[i].PriorityScore)
			}
		}
		for _, task := range tasks {
			if task.PriorityScore >= constants.FixedPriorityScore {
				t.Errorf("%s score %v reaches fixed score", task.Name, task.PriorityScore)
			}
		}
	}
}

func TestDeadlineUrgency(t *testing.T) {
	day := func(offset int) *time.Time {
		d := planDate.AddDate(0, 0, offset)
		return &d
	}
	tests := []struct {
		name string
		due  *time.Time
		want float64
	}{
		{"absent", nil, 0},
		{"far away", day(30), 0},
		{"within a week", day(7), 5},
		{"within three days", day(3), 10},
		{"tomorrow", day(1), 15},
		{"today", day(0), 20},
		{"overdue", day(-2), 25},
	}
	prev := -1.0
	for i := len(tests) - 1; i >= 0; i-- {
		tt := tests[i]
		got := DeadlineUrgency(planDate, tt.due)
		if got != tt.want {
			t.Errorf("%s: DeadlineUrgency() = %v, want %v", tt.name, got, tt.want)
		}
		if prev >= 0 && got > prev {
			t.Errorf("%s: urgency %v exceeds closer deadline %v", tt.name, got, prev)
		}
		prev = got
	}
}

func TestNormalizeIncomplete(t *testing.T) {
	n := New(planDate, time.UTC)
	items := []models.IncompleteItem{
		{Index: 0, Name: "Essay", Priority: "medium", RemainingDuration: "60", OriginalDuration: "120", Progress: "50", SourceDate: "2024-03-14"},
		{Index: 1, Name: "Reading", Priority: "low", Progress: "150"},
	}

	tasks := n.Normalize(nil, nil, items)
	if len(tasks) != 2 {
		t.Fatalf("Normalize() returned %d tasks, want 2", len(tasks))
	}
	essay := tasks[0]
	if essay.Kind != models.TaskKindIncomplete || essay.Policy != models.PolicySplit {
		t.Errorf("incomplete task kind=%s policy=%s", essay.Kind, essay.Policy)
	}
	if essay.PriorityScore != BaseScore(models.PriorityMedium)+constants.CarryoverBonus {
		t.Errorf("incomplete score = %v", essay.PriorityScore)
	}
	if essay.DurationMin != 60 || essay.Metadata.ProgressPercent != 50 {
		t.Errorf("essay duration=%d progress=%d", essay.DurationMin, essay.Metadata.ProgressPercent)
	}
	if essay.Carryover == nil || essay.Carryover.OriginalDurationMin != 120 || essay.Carryover.SourceDate != "2024-03-14" {
		t.Errorf("essay carryover = %+v", essay.Carryover)
	}
	reading := tasks[1]
	if reading.DurationMin != constants.DefaultTaskDurationMin {
		t.Errorf("reading duration = %d, want default", reading.DurationMin)
	}
	if reading.Metadata.ProgressPercent != 100 {
		t.Errorf("reading progress = %d, want clamped 100", reading.Metadata.ProgressPercent)
	}
}

func TestNormalizeRecurring(t *testing.T) {
	n := New(planDate, time.UTC)
	items := []models.PriorityItem{
		{Index: 0, Name: "Gym", Priority: "medium", Recurrence: "weekly:mon,fri"},
		{Index: 1, Name: "Laundry", Priority: "low", Recurrence: "weekly:sun"},
		{Index: 2, Name: "Broken", Priority: "low", Recurrence: "sometimes"},
	}

	tasks := n.Normalize(nil, items, nil)
	if len(tasks) != 1 {
		t.Fatalf("Normalize() returned %d tasks, want 1", len(tasks))
	}
	if tasks[0].Kind != models.TaskKindRecurring || tasks[0].Recurrence == nil {
		t.Errorf("gym kind=%s recurrence=%v", tasks[0].Kind, tasks[0].Recurrence)
	}
}

func TestNormalizeUniqueDeterministicIDs(t *testing.T) {
	fixed := []models.FixedItem{{Index: 0, Name: "Same", Day: "fri", StartTime: "09:00", EndTime: "10:00"}}
	priority := []models.PriorityItem{{Index: 0, Name: "Same"}, {Index: 1, Name: "Same"}}
	incomplete := []models.IncompleteItem{{Index: 0, Name: "Same"}}

	first := New(planDate, time.UTC).Normalize(fixed, priority, incomplete)
	second := New(planDate, time.UTC).Normalize(fixed, priority, incomplete)

	seen := make(map[string]bool)
	for i, task := range first {
		if seen[task.ID] {
			t.Errorf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
		if task.ID != second[i].ID {
			t.Errorf("id for %d not deterministic: %s vs %s", i, task.ID, second[i].ID)
		}
		if task.DurationMin <= 0 {
			t.Errorf("task %s has non-positive duration", task.ID)
		}
	}
}

func TestUnderservedTargets(t *testing.T) {
	priority := []models.PriorityItem{
		{Index: 0, Name: "Thesis A", Priority: "medium", EstimatedDuration: "120", Targets: "thesis"},
		{Index: 1, Name: "Thesis B", Priority: "medium", EstimatedDuration: "120", Targets: "thesis"},
		{Index: 2, Name: "Run", Priority: "medium", EstimatedDuration: "30", Targets: "fitness"},
	}

	tasks := New(planDate, time.UTC).Normalize(nil, priority, nil)
	if tasks[2].PriorityScore <= tasks[0].PriorityScore {
		t.Errorf("under-served fitness task score %v not above thesis %v", tasks[2].PriorityScore, tasks[0].PriorityScore)
	}

	n := New(planDate, time.UTC)
	n.UnderservedTargets = []string{"thesis"}
	tasks = n.Normalize(nil, priority, nil)
	if tasks[0].PriorityScore <= tasks[2].PriorityScore {
		t.Errorf("explicit under-served thesis score %v not above fitness %v", tasks[0].PriorityScore, tasks[2].PriorityScore)
	}
}
