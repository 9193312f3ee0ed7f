package scheduler

import (
	"context"
	"fmt"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/reasoner"
	"github.com/julianstephens/dayplan/internal/utils"
)

// Modify asks the reasoner to apply a free-text change to the current plan and
// returns the result as a single sanitized candidate.
func (g *Generator) Modify(ctx context.Context, current *models.SchedulePayload, request string, busy []models.Interval) (models.ScheduleCandidate, error) {
	if current == nil {
		return models.ScheduleCandidate{}, ErrNoCurrentSchedule
	}
	if g.Reasoner == nil {
		return models.ScheduleCandidate{}, ErrReasonerUnavailable
	}

	loc, err := utils.LoadLocation(current.Timezone)
	if err != nil {
		logger.Warn("Unknown schedule timezone, using local", "timezone", current.Timezone)
		loc, _ = utils.LoadLocation("")
	}
	date, err := utils.ParseDateInLocation(current.Date, loc)
	if err != nil {
		return models.ScheduleCandidate{}, fmt.Errorf("invalid schedule date %q: %w", current.Date, err)
	}

	prompt := reasoner.BuildModifyPrompt(*current, loc, request, busy)
	var raw string
	if m, ok := g.Reasoner.(Modifier); ok {
		raw, err = m.ModifySchedule(ctx, prompt)
	} else {
		raw, err = g.Reasoner.GenerateCandidates(ctx, prompt)
	}
	if err != nil {
		return models.ScheduleCandidate{}, fmt.Errorf("%w: %v", ErrReasonerUnavailable, err)
	}
	reply, err := reasoner.ParseReply(raw)
	if err != nil {
		return models.ScheduleCandidate{}, fmt.Errorf("%w: %v", ErrReasonerUnavailable, err)
	}

	req := Request{Date: date, Location: loc, Busy: busy, UserID: current.UserID}.withDefaults()
	rc := reply.Candidates[0]
	explanation := rc.Explanation
	if explanation == "" {
		explanation = reply.Explanation
	}
	tasks := sanitize(req, current.Tasks, rc.Entries())

	cand := g.finalize(req, tasks, string(StrategyModified), constants.ReasonerVersion, explanation)
	logger.Info("Schedule modification proposed", "candidate", cand.ID, "conflicts", len(cand.Conflicts))
	return cand, nil
}
