package reasoner

import (
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/dayplan/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	fixed := models.Task{ID: "f1", Name: "Algorithms", Kind: models.TaskKindFixed, IsFixed: true, DurationMin: 90}.
		Placed(day.Add(9 * time.Hour))
	flex := models.Task{ID: "p1", Name: "Essay", Kind: models.TaskKindFlexible, DurationMin: 120, PriorityScore: 44}

	prompt := BuildPrompt(PromptInput{
		Date:         day,
		WorkingStart: day.Add(8 * time.Hour),
		WorkingEnd:   day.Add(18 * time.Hour),
		BreakMin:     15,
		Count:        3,
		Tasks:        []models.Task{fixed, flex},
		Busy:         []models.Interval{{Start: day.Add(12 * time.Hour), End: day.Add(13 * time.Hour), Label: "Lunch"}},
	})

	for _, want := range []string{
		"date: 2024-03-15 (Friday)",
		"working_hours: 08:00-18:00",
		"break_minutes: 15",
		`"task_id": "f1"`,
		`"start": "09:00"`,
		`"end": "10:30"`,
		`"name": "Lunch"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
