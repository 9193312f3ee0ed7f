package plans

import (
	"fmt"
	"time"

	"github.com/julianstephens/dayplan/internal/applier"
	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/models"
)

func printTasks(tasks []models.Task, loc *time.Location) {
	for _, t := range tasks {
		if !t.IsResolved() {
			continue
		}
		fmt.Printf("  %s-%s  %-30s  %3d min  %s\n",
			t.Start.In(loc).Format(constants.TimeFormat), t.End.In(loc).Format(constants.TimeFormat),
			t.Name, t.DurationMin, t.ID)
	}
	if unplaced := (models.SchedulePayload{Tasks: tasks}).Unscheduled(); len(unplaced) > 0 {
		fmt.Println("\n  Unscheduled:")
		for _, t := range unplaced {
			fmt.Printf("    %-30s  %3d min  %s\n", t.Name, t.DurationMin, t.ID)
		}
	}
}

func printCandidate(rank int, c models.ScheduleCandidate, loc *time.Location) {
	fmt.Printf("#%d  score %.1f  [%s]  %s\n", rank, c.Score, c.Strategy, c.ID)
	if c.Explanation != "" {
		fmt.Printf("  %s\n", c.Explanation)
	}
	fmt.Println()
	printTasks(c.Payload.Tasks, loc)
	if len(c.Conflicts) > 0 {
		fmt.Println("\n  ⚠️  Conflicts:")
		for _, s := range c.Conflicts {
			fmt.Printf("    - %s\n", s)
		}
	}
	fmt.Println()
}

func printResult(res applier.Result) {
	fmt.Printf("✓ Applied schedule for %s: %d events, %d tracked tasks, %d notifications armed\n",
		res.Payload.Date, res.Events, res.Tracked, res.Armed)
	if res.Cancelled > 0 {
		fmt.Printf("  %d notifications of the previous schedule cancelled\n", res.Cancelled)
	}
	if len(res.Failures) > 0 {
		fmt.Println("  ⚠️  Some external writes failed:")
		for _, f := range res.Failures {
			fmt.Printf("    - %s %s: %s\n", f.Op, f.TaskID, f.Err)
		}
	}
}

func label(c models.ScheduleCandidate) string {
	placed := len(c.Payload.Tasks) - len(c.Payload.Unscheduled())
	return fmt.Sprintf("%-9s score %.1f  %d/%d placed  %d conflicts", c.Strategy,
		c.Score, placed, len(c.Payload.Tasks), len(c.Conflicts))
}
