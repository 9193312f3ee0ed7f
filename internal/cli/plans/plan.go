package plans

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/dayplan/internal/cli"
	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/normalizer"
)

type PlanCmd struct {
	Date   string `arg:"" optional:"" default:"today" help:"Plan date (YYYY-MM-DD, today or tomorrow)."`
	Apply  int    `help:"Apply the candidate with this rank (1 is best)."`
	Select bool   `short:"s" help:"Pick the candidate to apply interactively."`
}

func (c *PlanCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}

	cands, err := svc.Generate(bg, c.Date)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		fmt.Println("No candidates could be generated.")
		return nil
	}

	loc := svc.Location()
	fmt.Printf("Candidates for %s:\n\n", cands[0].Payload.Date)
	for i, cand := range cands {
		printCandidate(i+1, cand, loc)
	}

	rank := c.Apply
	if c.Select {
		if rank, err = choose(cands); err != nil {
			return err
		}
	}
	if rank == 0 {
		fmt.Printf("Apply one with: dayplan plan %s --apply N\n", c.Date)
		return nil
	}

	res, err := svc.Select(bg, c.Date, rank)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

// choose returns the picked rank, or 0 when the user declined.
func choose(cands []models.ScheduleCandidate) (int, error) {
	opts := []huh.Option[int]{huh.NewOption("Don't apply anything", 0)}
	for i, cand := range cands {
		opts = append(opts, huh.NewOption(fmt.Sprintf("#%d %s", i+1, label(cand)), i+1))
	}

	rank := 1
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Apply which schedule?").
				Options(opts...).
				Value(&rank),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 0, nil
		}
		return 0, err
	}
	return rank, nil
}

type CandidatesCmd struct {
	Date string `arg:"" optional:"" default:"today" help:"Plan date (YYYY-MM-DD, today or tomorrow)."`
}

func (c *CandidatesCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}
	cands, err := svc.Candidates(bg, c.Date)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		fmt.Printf("No candidates stored. Run 'dayplan plan %s' first.\n", c.Date)
		return nil
	}
	for i, cand := range cands {
		printCandidate(i+1, cand, svc.Location())
	}
	return nil
}

type ApplyCmd struct {
	CandidateID string `arg:"" help:"Id of a stored candidate."`
}

func (c *ApplyCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}
	res, err := svc.Apply(bg, c.CandidateID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("no candidate %s", c.CandidateID)
	}
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

type ShowCmd struct{}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	svc, err := ctx.Service(context.Background(), false)
	if err != nil {
		return err
	}
	p, ok := svc.Current()
	if !ok {
		return apperrors.ErrNoCurrentSchedule
	}
	fmt.Printf("Schedule for %s (%s, %s):\n\n", p.Date, p.Timezone, p.AgentVersion)
	printTasks(p.Tasks, svc.Location())
	if targets := normalizer.SortedTargets(p.Tasks); len(targets) > 0 {
		fmt.Printf("\nTargets: %s\n", strings.Join(targets, ", "))
	}
	if p.Explainability != "" {
		fmt.Printf("\n%s\n", p.Explainability)
	}
	return nil
}

type ModifyCmd struct {
	Request string `arg:"" help:"What to change, in plain words."`
	Accept  bool   `help:"Apply the modified schedule right away."`
}

func (c *ModifyCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}
	cand, err := svc.Modify(bg, c.Request)
	if err != nil {
		return err
	}
	printCandidate(1, cand, svc.Location())

	if !c.Accept {
		fmt.Printf("Apply it with: dayplan apply %s\n", cand.ID)
		return nil
	}
	res, err := svc.Apply(bg, cand.ID)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}
