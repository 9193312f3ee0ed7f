package reasoner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/models"
)

// PromptInput is everything the reasoning service sees for one generation.
type PromptInput struct {
	Date              time.Time
	WorkingStart      time.Time
	WorkingEnd        time.Time
	BreakMin          int
	MaxConsecutiveMin int
	Count             int
	Tasks             []models.Task
	Busy              []models.Interval
}

type promptTask struct {
	TaskID        string   `json:"task_id"`
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	DurationMin   int      `json:"duration_minutes"`
	PriorityScore float64  `json:"priority_score"`
	Priority      string   `json:"priority,omitempty"`
	Targets       []string `json:"targets,omitempty"`
	Fixed         bool     `json:"is_fixed"`
	Start         string   `json:"start,omitempty"`
	End           string   `json:"end,omitempty"`
	Due           string   `json:"due_date,omitempty"`
	Progress      int      `json:"progress_percent,omitempty"`
}

type promptBusy struct {
	Name  string `json:"name,omitempty"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func toPromptTasks(tasks []models.Task, loc *time.Location) []promptTask {
	out := make([]promptTask, 0, len(tasks))
	for _, t := range tasks {
		pt := promptTask{
			TaskID:        t.ID,
			Name:          t.Name,
			Kind:          string(t.Kind),
			DurationMin:   t.DurationMin,
			PriorityScore: t.PriorityScore,
			Priority:      string(t.Metadata.PriorityLabel),
			Targets:       t.Targets,
			Fixed:         t.IsFixed,
			Progress:      t.Metadata.ProgressPercent,
		}
		if t.IsResolved() {
			pt.Start = t.Start.In(loc).Format(constants.TimeFormat)
			pt.End = t.End.In(loc).Format(constants.TimeFormat)
		}
		if t.Due != nil {
			pt.Due = t.Due.Format(constants.DateFormat)
		}
		out = append(out, pt)
	}
	return out
}

func toPromptBusy(busy []models.Interval, loc *time.Location) []promptBusy {
	out := make([]promptBusy, 0, len(busy))
	for _, b := range busy {
		out = append(out, promptBusy{
			Name:  b.Label,
			Start: b.Start.In(loc).Format(constants.TimeFormat),
			End:   b.End.In(loc).Format(constants.TimeFormat),
		})
	}
	return out
}

func writeJSON(b *strings.Builder, label string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte("[]")
	}
	b.WriteString(label)
	b.WriteString(":\n")
	b.Write(data)
	b.WriteString("\n")
}

// BuildPrompt serializes a generation request into the prompt text.
func BuildPrompt(in PromptInput) string {
	loc := in.Date.Location()
	var b strings.Builder

	fmt.Fprintf(&b, "date: %s (%s)\n", in.Date.Format(constants.DateFormat), in.Date.Weekday())
	fmt.Fprintf(&b, "timezone: %s\n", loc)
	fmt.Fprintf(&b, "working_hours: %s-%s\n",
		in.WorkingStart.In(loc).Format(constants.TimeFormat), in.WorkingEnd.In(loc).Format(constants.TimeFormat))
	fmt.Fprintf(&b, "break_minutes: %d\n", in.BreakMin)
	if in.MaxConsecutiveMin > 0 {
		fmt.Fprintf(&b, "max_consecutive_minutes: %d\n", in.MaxConsecutiveMin)
	}
	fmt.Fprintf(&b, "candidates_requested: %d\n", in.Count)

	writeJSON(&b, "tasks", toPromptTasks(in.Tasks, loc))
	writeJSON(&b, "busy_intervals", toPromptBusy(in.Busy, loc))
	return b.String()
}

// BuildModifyPrompt serializes the current plan and the user's change request.
func BuildModifyPrompt(current models.SchedulePayload, loc *time.Location, request string, busy []models.Interval) string {
	var b strings.Builder
	fmt.Fprintf(&b, "date: %s\n", current.Date)
	fmt.Fprintf(&b, "timezone: %s\n", loc)
	fmt.Fprintf(&b, "request: %s\n", strings.TrimSpace(request))
	writeJSON(&b, "current_plan", toPromptTasks(current.Tasks, loc))
	writeJSON(&b, "busy_intervals", toPromptBusy(busy, loc))
	return b.String()
}

// SystemPrompt returns the instructions sent with generation prompts.
func SystemPrompt() string { return schedulingSystemPrompt }

// ModifySystemPrompt returns the instructions sent with modification prompts.
func ModifySystemPrompt() string { return modifySystemPrompt }
