package scheduler

import (
	"strings"
	"time"

	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/reasoner"
	"github.com/julianstephens/dayplan/internal/utils"
)

// sanitize maps reasoner placements back onto the known tasks. Fixed tasks keep
// their normalized interval, unknown IDs are dropped, ends are re-derived from
// the duration and tasks the reply omitted come back unresolved.
func sanitize(req Request, tasks []models.Task, entries []reasoner.ReplyTask) []models.Task {
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	seen := make(map[string]bool, len(tasks))
	out := make([]models.Task, 0, len(tasks))
	for _, e := range entries {
		t, ok := byID[e.TaskID]
		if !ok {
			logger.Debug("Dropping unknown task from reasoner reply", "task_id", e.TaskID)
			continue
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		if t.IsFixed {
			out = append(out, t.Clone())
			continue
		}
		start, err := parseStart(req.Date, e.Start)
		if err != nil {
			logger.Debug("Reasoner gave unusable start", "task_id", t.ID, "start", e.Start, "error", err)
			out = append(out, t.Unplaced())
			continue
		}
		out = append(out, t.Placed(start))
	}

	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		if t.IsFixed {
			out = append(out, t.Clone())
		} else {
			out = append(out, t.Unplaced())
		}
	}
	return out
}

// parseStart accepts an HH:MM clock time on day or a full RFC3339 timestamp.
func parseStart(day time.Time, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(day.Location()), nil
	}
	return utils.ClockOn(day, s)
}
