package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/models"
)

var (
	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)

	taskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	fixedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("109"))

	nowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type Model struct {
	viewport viewport.Model
	Plan     *models.SchedulePayload
	Now      time.Time
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Plan == nil {
		return "No schedule applied. Press 'g' to generate one for today."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

func (m *Model) SetPlan(p models.SchedulePayload) {
	m.Plan = &p
	m.Render()
}

// SetNow moves the marker of the running task.
func (m *Model) SetNow(now time.Time) {
	m.Now = now
	m.Render()
}

func (m *Model) Render() {
	m.viewport.SetContent(Render(m.Plan, m.Now))
}

// Render lays out a schedule, one placed task per line, followed by the tasks
// that did not fit.
func Render(p *models.SchedulePayload, now time.Time) string {
	if p == nil {
		return "No schedule loaded."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", labelStyle.Render(p.Date+"  "+p.AgentVersion))
	for _, t := range p.Tasks {
		iv, ok := t.Interval()
		if !ok {
			continue
		}
		span := fmt.Sprintf("%s - %s", iv.Start.Format(constants.TimeFormat), iv.End.Format(constants.TimeFormat))
		name := taskStyle.Render(t.Name)
		switch {
		case !now.IsZero() && !now.Before(iv.Start) && now.Before(iv.End):
			name = nowStyle.Render("▶ " + t.Name)
		case t.IsFixed:
			name = fixedStyle.Render(t.Name)
		}
		fmt.Fprintf(&b, "%s %s %s\n", timeStyle.Render(span), name, labelStyle.Render(string(t.Metadata.PriorityLabel)))
	}

	if rest := p.Unscheduled(); len(rest) > 0 {
		b.WriteString("\nUnscheduled:\n")
		for _, t := range rest {
			fmt.Fprintf(&b, "  %s %s\n", t.Name, labelStyle.Render(fmt.Sprintf("%d min", t.DurationMin)))
		}
	}
	return b.String()
}
