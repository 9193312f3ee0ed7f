// Package scheduler generates ranked schedule candidates for a day.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/dayplan/internal/conflict"
	"github.com/julianstephens/dayplan/internal/constants"
	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/reasoner"
	"github.com/julianstephens/dayplan/internal/utils"
)

var (
	ErrNoCurrentSchedule   = apperrors.ErrNoCurrentSchedule
	ErrReasonerUnavailable = apperrors.ErrReasonerUnavailable
)

// Reasoner proposes schedules from a structured prompt.
type Reasoner interface {
	GenerateCandidates(ctx context.Context, prompt string) (string, error)
}

// Modifier is implemented by reasoners that take a dedicated instruction set
// for editing an existing plan.
type Modifier interface {
	ModifySchedule(ctx context.Context, prompt string) (string, error)
}

type WorkingHours struct {
	Start time.Time
	End   time.Time
}

// Request is the input of one generation. Tasks are never mutated.
type Request struct {
	Tasks             []models.Task
	Busy              []models.Interval
	Date              time.Time
	Location          *time.Location
	WorkingHours      WorkingHours
	BreakMin          int
	MaxConsecutiveMin int
	Count             int
	UserID            string
}

func (r Request) withDefaults() Request {
	if r.Location == nil {
		r.Location = r.Date.Location()
	}
	r.Date = utils.StartOfDay(r.Date.In(r.Location))
	if r.Count <= 0 {
		r.Count = constants.DefaultCandidateCount
	}
	if r.BreakMin < 0 {
		r.BreakMin = 0
	}
	if r.MaxConsecutiveMin < 0 {
		r.MaxConsecutiveMin = 0
	}
	if r.WorkingHours.Start.IsZero() {
		r.WorkingHours.Start, _ = utils.ClockOn(r.Date, constants.DefaultDayStart)
	}
	if r.WorkingHours.End.IsZero() {
		r.WorkingHours.End, _ = utils.ClockOn(r.Date, constants.DefaultDayEnd)
	}
	if r.UserID == "" {
		r.UserID = constants.DefaultUserID
	}
	return r
}

type Generator struct {
	Reasoner Reasoner
	Now      func() time.Time
}

func New(r Reasoner) *Generator {
	return &Generator{Reasoner: r, Now: time.Now}
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Generate returns exactly req.Count candidates ranked by score. Reasoner
// failures fall back to the greedy packer and are never returned.
func (g *Generator) Generate(ctx context.Context, req Request) []models.ScheduleCandidate {
	req = req.withDefaults()
	tasks := make([]models.Task, len(req.Tasks))
	for i, t := range req.Tasks {
		tasks[i] = t.Clone()
	}

	var out []models.ScheduleCandidate
	if g.Reasoner != nil {
		out = g.fromReasoner(ctx, req, tasks)
		if len(out) > req.Count {
			out = out[:req.Count]
		}
	}

	for i := 0; len(out) < req.Count; i++ {
		out = append(out, g.fallback(req, tasks, i))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	logger.Info("Generated schedule candidates", "date", req.Date.Format(constants.DateFormat),
		"count", len(out), "best_score", out[0].Score)
	return out
}

// fallback builds the variant-th greedy candidate. Variants cycle through the
// strategies and widen the break on every full cycle.
func (g *Generator) fallback(req Request, tasks []models.Task, variant int) models.ScheduleCandidate {
	strategy := fallbackStrategies[variant%len(fallbackStrategies)]
	padding := time.Duration(variant/len(fallbackStrategies)) * 5 * time.Minute

	packed := pack(req, order(tasks, strategy), padding)

	explanation := describe(strategy)
	if padding > 0 {
		explanation += fmt.Sprintf(" Breaks are widened by %d minutes.", int(padding.Minutes()))
	}
	return g.finalize(req, packed, string(strategy), constants.AgentVersion, explanation)
}

func (g *Generator) fromReasoner(ctx context.Context, req Request, tasks []models.Task) []models.ScheduleCandidate {
	prompt := reasoner.BuildPrompt(reasoner.PromptInput{
		Date:              req.Date,
		WorkingStart:      req.WorkingHours.Start,
		WorkingEnd:        req.WorkingHours.End,
		BreakMin:          req.BreakMin,
		MaxConsecutiveMin: req.MaxConsecutiveMin,
		Count:             req.Count,
		Tasks:             tasks,
		Busy:              req.Busy,
	})

	raw, err := g.Reasoner.GenerateCandidates(ctx, prompt)
	if err != nil {
		logger.Warn("Reasoner unavailable, using fallback", "error", err)
		return nil
	}
	reply, err := reasoner.ParseReply(raw)
	if err != nil {
		logger.Warn("Reasoner reply unusable, using fallback", "error", err)
		return nil
	}

	out := make([]models.ScheduleCandidate, 0, len(reply.Candidates))
	for _, rc := range reply.Candidates {
		explanation := rc.Explanation
		if explanation == "" {
			explanation = reply.Explanation
		}
		placed := sanitize(req, tasks, rc.Entries())
		out = append(out, g.finalize(req, placed, string(StrategyReasoner), constants.ReasonerVersion, explanation))
	}
	return out
}

func (g *Generator) finalize(req Request, tasks []models.Task, strategy, agent, explanation string) models.ScheduleCandidate {
	now := g.now()
	payload := models.SchedulePayload{
		UserID:         req.UserID,
		Date:           req.Date.Format(constants.DateFormat),
		Timezone:       req.Location.String(),
		Tasks:          tasks,
		GeneratedAt:    now,
		AgentVersion:   agent,
		Explainability: explanation,
	}
	payload.SortTasks()

	details := conflict.Detect(payload.Tasks, req.Busy).Conflicts
	unmetHigh := 0
	for _, t := range payload.Unscheduled() {
		details = append(details, conflict.Unscheduled(t))
		if t.Metadata.PriorityLabel.IsHigh() {
			unmetHigh++
		}
	}

	return models.ScheduleCandidate{
		ID:          uuid.NewString(),
		Score:       Score(len(details), unmetHigh),
		Explanation: explanation,
		Conflicts:   conflict.Strings(details),
		Details:     details,
		Strategy:    strategy,
		Payload:     payload,
		CreatedAt:   now,
	}
}

// Score blends conflict freedom and coverage of high priority work.
func Score(conflicts, unmetHigh int) float64 {
	s := 100 - constants.ConflictPenalty*float64(conflicts) - constants.UnmetHighPriorityPenalty*float64(unmetHigh)
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
