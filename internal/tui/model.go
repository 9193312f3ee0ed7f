// Package tui is the terminal watcher: the current schedule, live
// notifications and their actions.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/dayplan/internal/applier"
	"github.com/julianstephens/dayplan/internal/engine"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/timer"
	"github.com/julianstephens/dayplan/internal/tui/components/notifications"
	"github.com/julianstephens/dayplan/internal/tui/components/plan"
)

// Service is what the watcher needs from engine.Service.
type Service interface {
	Current() (models.SchedulePayload, bool)
	Notifications(ctx context.Context, pendingOnly bool) ([]models.NotificationConfig, error)
	NotificationAction(ctx context.Context, id, actionID string, in engine.ActionInput) (models.NotificationConfig, *models.IncompleteRecord, error)
	Subscribe(fn timer.Listener) func()
	Generate(ctx context.Context, date string) ([]models.ScheduleCandidate, error)
	Select(ctx context.Context, date string, rank int) (applier.Result, error)
}

type SessionState int

const (
	StateSchedule SessionState = iota
	StateNotifications
)

var tabTitles = []string{"Schedule", "Notifications"}

const tickInterval = 30 * time.Second

type (
	deliveredMsg models.NotificationConfig
	tickMsg      time.Time
	refreshedMsg struct {
		plan          *models.SchedulePayload
		notifications []models.NotificationConfig
		err           error
	}
	actionDoneMsg struct {
		cfg models.NotificationConfig
		rec *models.IncompleteRecord
		err error
	}
	generatedMsg struct {
		res applier.Result
		err error
	}
)

type Model struct {
	ctx         context.Context
	svc         Service
	now         func() time.Time
	state       SessionState
	keys        KeyMap
	help        help.Model
	planModel   plan.Model
	notifModel  notifications.Model
	deliveries  chan models.NotificationConfig
	unsubscribe func()
	banner      string
	err         error
	quitting    bool
	width       int
	height      int
}

func NewModel(ctx context.Context, svc Service, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	m := Model{
		ctx:        ctx,
		svc:        svc,
		now:        now,
		state:      StateSchedule,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		planModel:  plan.New(0, 0),
		notifModel: notifications.New(nil, 0, 0),
		deliveries: make(chan models.NotificationConfig, 32),
	}
	m.unsubscribe = svc.Subscribe(func(cfg models.NotificationConfig) {
		select {
		case m.deliveries <- cfg:
		default:
			logger.Warn("Watcher is behind, dropping notification", "id", cfg.ID)
		}
	})
	return m
}

// Close stops listening for deliveries. Call it once the program has exited.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Tab, m.keys.Generate, m.keys.Refresh, m.keys.Quit, m.keys.Help}
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down}
	actions := []key.Binding{m.keys.Generate, m.keys.Refresh}
	if m.state == StateNotifications {
		k := notifications.DefaultKeyMap()
		actions = append(actions, k.Snooze, k.StartNow, k.Complete, k.Partial, k.NotDone)
	}
	return [][]key.Binding{global, navigation, actions}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), waitForDelivery(m.deliveries), tick())
}

func waitForDelivery(ch <-chan models.NotificationConfig) tea.Cmd {
	return func() tea.Msg {
		return deliveredMsg(<-ch)
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		var msg refreshedMsg
		if p, ok := svc.Current(); ok {
			msg.plan = &p
		}
		msg.notifications, msg.err = svc.Notifications(ctx, false)
		return msg
	}
}

func (m Model) runAction(a notifications.ActionMsg) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		cfg, rec, err := svc.NotificationAction(ctx, a.ID, a.Action, engine.ActionInput{})
		return actionDoneMsg{cfg: cfg, rec: rec, err: err}
	}
}

func (m Model) generate() tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		if _, err := svc.Generate(ctx, "today"); err != nil {
			return generatedMsg{err: err}
		}
		res, err := svc.Select(ctx, "today", 1)
		return generatedMsg{res: res, err: err}
	}
}
