package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/normalizer"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func baseRequest(tasks []models.Task) Request {
	return Request{
		Tasks:             tasks,
		Date:              day,
		Location:          time.UTC,
		WorkingHours:      WorkingHours{Start: at(8, 0), End: at(18, 0)},
		BreakMin:          15,
		MaxConsecutiveMin: 120,
		Count:             3,
	}
}

func exampleTasks() []models.Task {
	n := normalizer.New(day, time.UTC)
	return n.Normalize(
		[]models.FixedItem{{Index: 0, Name: "Algorithms", Day: "2024-03-15", StartTime: "09:00", EndTime: "10:30"}},
		[]models.PriorityItem{{Index: 0, Name: "Project", Priority: "high", EstimatedDuration: "120"}},
		[]models.IncompleteItem{{Index: 0, Name: "Essay", Priority: "medium", RemainingDuration: "60", Progress: "50"}},
	)
}

type fakeReasoner struct {
	reply string
	err   error
	calls int
}

func (f *fakeReasoner) GenerateCandidates(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func assertNoUnreportedOverlap(t *testing.T, c models.ScheduleCandidate) {
	t.Helper()
	for i := range c.Payload.Tasks {
		a, ok := c.Payload.Tasks[i].Interval()
		if !ok {
			continue
		}
		for j := i + 1; j < len(c.Payload.Tasks); j++ {
			b, ok := c.Payload.Tasks[j].Interval()
			if !ok || !a.Overlaps(b) {
				continue
			}
			reported := false
			for _, d := range c.Details {
				if (d.A == a.Ref && d.B == b.Ref) || (d.A == b.Ref && d.B == a.Ref) {
					reported = true
				}
			}
			if !reported {
				t.Errorf("%s: %s and %s overlap without a conflict entry", c.Strategy, a.Label, b.Label)
			}
		}
	}
}

func TestGenerateExampleScenario(t *testing.T) {
	tasks := exampleTasks()
	g := &Generator{Now: func() time.Time { return day }}

	cands := g.Generate(context.Background(), baseRequest(tasks))
	if len(cands) != 3 {
		t.Fatalf("Generate() returned %d candidates, want 3", len(cands))
	}

	var priority models.ScheduleCandidate
	for _, c := range cands {
		if c.Strategy == string(StrategyPriority) {
			priority = c
		}
		assertNoUnreportedOverlap(t, c)
	}

	byName := map[string]models.Task{}
	for _, task := range priority.Payload.Tasks {
		byName[task.Name] = task
	}

	alg := byName["Algorithms"]
	if !alg.Start.Equal(at(9, 0)) || !alg.End.Equal(at(10, 30)) {
		t.Errorf("Algorithms moved to %v-%v", alg.Start, alg.End)
	}
	project, essay := byName["Project"], byName["Essay"]
	if !project.IsResolved() || !essay.IsResolved() {
		t.Fatalf("expected both flexible tasks placed: project=%v essay=%v", project.Start, essay.Start)
	}
	if project.PriorityScore <= essay.PriorityScore {
		t.Fatalf("expected project score %v above essay score %v", project.PriorityScore, essay.PriorityScore)
	}
	if essay.Start.Before(*project.Start) {
		t.Errorf("lower scored essay (%v) placed before project (%v)", essay.Start, project.Start)
	}
	if !project.Start.Equal(at(10, 45)) || !essay.Start.Equal(at(13, 0)) {
		t.Errorf("project at %v, essay at %v; want 10:45 and 13:00", project.Start, essay.Start)
	}
	if len(priority.Conflicts) != 0 || priority.Score != 100 {
		t.Errorf("conflicts=%v score=%v", priority.Conflicts, priority.Score)
	}
}

func TestGenerateNoOverlapAndFixedImmovable(t *testing.T) {
	var tasks []models.Task
	for i := 0; i < 4; i++ {
		start := at(9+2*i, 30)
		tasks = append(tasks, models.Task{
			ID: fmt.Sprintf("fixed-%d", i), Name: fmt.Sprintf("Fixed %d", i), Kind: models.TaskKindFixed,
			IsFixed: true, PriorityScore: 100, DurationMin: 45,
		}.Placed(start))
	}
	for i := 0; i < 12; i++ {
		tasks = append(tasks, models.Task{
			ID: fmt.Sprintf("flex-%02d", i), Name: fmt.Sprintf("Flex %d", i), Kind: models.TaskKindFlexible,
			PriorityScore: float64(10 + (i*7)%40), DurationMin: 20 + (i*17)%70,
			Targets: []string{[]string{"thesis", "fitness", "admin"}[i%3]},
		})
	}
	req := baseRequest(tasks)
	req.Count = 6
	req.BreakMin = 5
	req.MaxConsecutiveMin = 90
	req.Busy = []models.Interval{{Start: at(12, 0), End: at(13, 0), Label: "Lunch", Ref: "e1"}}

	cands := (&Generator{}).Generate(context.Background(), req)
	if len(cands) != 6 {
		t.Fatalf("Generate() returned %d candidates, want 6", len(cands))
	}
	for _, c := range cands {
		assertNoUnreportedOverlap(t, c)
		for _, task := range c.Payload.Tasks {
			if task.IsFixed {
				var orig models.Task
				for _, in := range tasks {
					if in.ID == task.ID {
						orig = in
					}
				}
				if !task.Start.Equal(*orig.Start) || !task.End.Equal(*orig.End) {
					t.Errorf("%s: fixed task %s moved", c.Strategy, task.ID)
				}
				continue
			}
			if !task.IsResolved() {
				continue
			}
			iv, _ := task.Interval()
			if iv.Overlaps(req.Busy[0]) {
				t.Errorf("%s: %s overlaps busy interval", c.Strategy, task.ID)
			}
			if task.Start.Before(req.WorkingHours.Start) || task.End.After(req.WorkingHours.End) {
				t.Errorf("%s: %s outside working hours", c.Strategy, task.ID)
			}
			if int(task.End.Sub(*task.Start).Minutes()) != task.DurationMin {
				t.Errorf("%s: %s end does not match duration", c.Strategy, task.ID)
			}
		}
	}
}

func TestGenerateDoesNotMutateInput(t *testing.T) {
	tasks := exampleTasks()
	before := make([]models.Task, len(tasks))
	for i, task := range tasks {
		before[i] = task.Clone()
	}

	(&Generator{}).Generate(context.Background(), baseRequest(tasks))

	for i := range tasks {
		if tasks[i].IsResolved() != before[i].IsResolved() {
			t.Errorf("task %s resolution changed", tasks[i].Name)
		}
	}
}

func TestGenerateUnschedulable(t *testing.T) {
	tasks := []models.Task{
		{ID: "a", Name: "First", DurationMin: 60, PriorityScore: 50, Metadata: models.TaskMetadata{PriorityLabel: models.PriorityHigh}},
		{ID: "b", Name: "Second", DurationMin: 60, PriorityScore: 40, Metadata: models.TaskMetadata{PriorityLabel: models.PriorityHigh}},
	}
	req := baseRequest(tasks)
	req.WorkingHours = WorkingHours{Start: at(8, 0), End: at(10, 0)}
	req.Count = 1

	c := (&Generator{}).Generate(context.Background(), req)[0]

	if len(c.Payload.Tasks) != 2 {
		t.Fatalf("unscheduled task was dropped: %d tasks", len(c.Payload.Tasks))
	}
	last := c.Payload.Tasks[1]
	if last.ID != "b" || last.IsResolved() {
		t.Errorf("expected Second unresolved and last, got %+v", last)
	}
	if len(c.Conflicts) != 1 || !strings.Contains(c.Conflicts[0], "could not be scheduled") {
		t.Errorf("conflicts = %v", c.Conflicts)
	}
	if c.Score != 75 {
		t.Errorf("score = %v, want 75", c.Score)
	}
}

func TestGenerateForcesBreak(t *testing.T) {
	var tasks []models.Task
	for i := 0; i < 3; i++ {
		tasks = append(tasks, models.Task{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("T%d", i), DurationMin: 30, PriorityScore: float64(30 - i)})
	}
	req := baseRequest(tasks)
	req.BreakMin = 0
	req.MaxConsecutiveMin = 60
	req.Count = 1

	c := (&Generator{}).Generate(context.Background(), req)[0]
	want := []time.Time{at(8, 0), at(8, 30), at(9, 15)}
	for i, task := range c.Payload.Tasks {
		if !task.Start.Equal(want[i]) {
			t.Errorf("%s starts %v, want %v", task.Name, task.Start, want[i])
		}
	}
}

func TestGenerateFallbackGuarantee(t *testing.T) {
	tests := []struct {
		name     string
		reasoner *fakeReasoner
	}{
		{"reasoner errors", &fakeReasoner{err: errors.New("connection refused")}},
		{"reply is prose", &fakeReasoner{reply: "Sorry, I can't do that."}},
		{"reply has no candidates", &fakeReasoner{reply: `{"candidates":[]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.reasoner)
			cands := g.Generate(context.Background(), baseRequest(exampleTasks()))
			if len(cands) == 0 {
				t.Fatal("Generate() returned no candidates")
			}
			if tt.reasoner.calls != 1 {
				t.Errorf("reasoner called %d times", tt.reasoner.calls)
			}
			for _, c := range cands {
				if c.Strategy == string(StrategyReasoner) {
					t.Errorf("unexpected reasoner candidate")
				}
			}
		})
	}
}

func TestGenerateSanitizesReasonerCandidates(t *testing.T) {
	tasks := exampleTasks()
	ids := map[string]string{}
	for _, task := range tasks {
		ids[task.Name] = task.ID
	}
	reply := fmt.Sprintf(`{"explanation":"ai plan","candidates":[{"explanation":"morning focus","tasks":[
		{"task_id":%q,"start":"13:00"},
		{"task_id":%q,"start":"11:00","end":"11:05"},
		{"task_id":"made-up","start":"08:00"}
	]}]}`, ids["Algorithms"], ids["Project"])

	g := New(&fakeReasoner{reply: reply})
	cands := g.Generate(context.Background(), baseRequest(tasks))
	if len(cands) != 3 {
		t.Fatalf("Generate() returned %d candidates, want 3 after top-up", len(cands))
	}

	var ai *models.ScheduleCandidate
	for i := range cands {
		if cands[i].Strategy == string(StrategyReasoner) {
			ai = &cands[i]
		}
	}
	if ai == nil {
		t.Fatal("reasoner candidate missing")
	}
	if ai.Explanation != "morning focus" {
		t.Errorf("explanation = %q", ai.Explanation)
	}
	if len(ai.Payload.Tasks) != 3 {
		t.Fatalf("payload has %d tasks, want 3", len(ai.Payload.Tasks))
	}
	for _, task := range ai.Payload.Tasks {
		switch task.Name {
		case "Algorithms":
			if !task.Start.Equal(at(9, 0)) {
				t.Errorf("fixed task moved to %v", task.Start)
			}
		case "Project":
			if !task.Start.Equal(at(11, 0)) || !task.End.Equal(at(13, 0)) {
				t.Errorf("project at %v-%v, want 11:00-13:00", task.Start, task.End)
			}
		case "Essay":
			if task.IsResolved() {
				t.Errorf("omitted task should be unresolved")
			}
		default:
			t.Errorf("unexpected task %q", task.Name)
		}
	}
	if len(ai.Conflicts) != 1 || !strings.Contains(ai.Conflicts[0], `"Essay" could not be scheduled`) {
		t.Errorf("conflicts = %v", ai.Conflicts)
	}
}

func TestGenerateRanksByScore(t *testing.T) {
	cands := (&Generator{}).Generate(context.Background(), baseRequest(exampleTasks()))
	for i := 1; i < len(cands); i++ {
		if cands[i].Score > cands[i-1].Score {
			t.Errorf("candidate %d score %v above candidate %d score %v", i, cands[i].Score, i-1, cands[i-1].Score)
		}
	}
}

func TestOrderStrategies(t *testing.T) {
	due := func(d int) *time.Time {
		v := day.AddDate(0, 0, d)
		return &v
	}
	tasks := []models.Task{
		{ID: "a", PriorityScore: 50, Targets: []string{"thesis"}},
		{ID: "b", PriorityScore: 40, Targets: []string{"thesis"}, Due: due(1)},
		{ID: "c", PriorityScore: 30, Targets: []string{"fitness"}},
		{ID: "d", PriorityScore: 50, Targets: []string{"admin"}, Due: due(5)},
	}
	ids := func(ts []models.Task) string {
		var out []string
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return strings.Join(out, ",")
	}

	tests := []struct {
		strategy Strategy
		want     string
	}{
		{StrategyPriority, "d,a,b,c"},
		{StrategyDeadline, "b,d,a,c"},
		{StrategyBalanced, "d,a,c,b"},
	}
	for _, tt := range tests {
		if got := ids(order(tasks, tt.strategy)); got != tt.want {
			t.Errorf("order(%s) = %s, want %s", tt.strategy, got, tt.want)
		}
	}
}

func TestScoreClamped(t *testing.T) {
	if got := Score(0, 0); got != 100 {
		t.Errorf("Score(0,0) = %v", got)
	}
	if got := Score(20, 3); got != 0 {
		t.Errorf("Score(20,3) = %v", got)
	}
}

func TestModify(t *testing.T) {
	tasks := exampleTasks()
	cands := (&Generator{}).Generate(context.Background(), baseRequest(tasks))
	current := cands[0].Payload

	if _, err := New(&fakeReasoner{}).Modify(context.Background(), nil, "move it", nil); !errors.Is(err, ErrNoCurrentSchedule) {
		t.Errorf("nil current: error = %v", err)
	}
	if _, err := (&Generator{}).Modify(context.Background(), &current, "move it", nil); !errors.Is(err, ErrReasonerUnavailable) {
		t.Errorf("no reasoner: error = %v", err)
	}
	if _, err := New(&fakeReasoner{reply: "no"}).Modify(context.Background(), &current, "move it", nil); !errors.Is(err, ErrReasonerUnavailable) {
		t.Errorf("bad reply: error = %v", err)
	}

	var essayID string
	for _, task := range current.Tasks {
		if task.Name == "Essay" {
			essayID = task.ID
		}
	}
	reply := fmt.Sprintf(`{"candidates":[{"explanation":"essay first","tasks":[{"task_id":%q,"start":"08:00"}]}]}`, essayID)
	cand, err := New(&fakeReasoner{reply: reply}).Modify(context.Background(), &current, "do the essay first thing", nil)
	if err != nil {
		t.Fatalf("Modify() error = %v", err)
	}
	if cand.Strategy != string(StrategyModified) {
		t.Errorf("strategy = %s", cand.Strategy)
	}
	essay, ok := cand.Payload.FindTask(essayID)
	if !ok || !essay.Start.Equal(at(8, 0)) {
		t.Errorf("essay = %+v", essay)
	}
	if _, ok := cand.Payload.FindTask(current.Tasks[0].ID); !ok {
		t.Error("modified plan lost a task")
	}
}
