package notifications

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/models"
)

// ActionMsg asks the parent to run an action on a notification.
type ActionMsg struct {
	ID     string
	Action string
}

type Item struct {
	Notification models.NotificationConfig
}

func (i Item) Title() string {
	return i.Notification.Title
}

func (i Item) Description() string {
	return fmt.Sprintf("%s | %s | %s", i.Notification.Kind, i.Notification.State,
		i.Notification.ScheduledTime.Local().Format(constants.TimeFormat))
}

func (i Item) FilterValue() string { return i.Notification.Title }

type KeyMap struct {
	Snooze     key.Binding
	StartNow   key.Binding
	Complete   key.Binding
	Partial    key.Binding
	NotDone    key.Binding
	actionByID map[string]key.Binding
}

func DefaultKeyMap() KeyMap {
	k := KeyMap{
		Snooze: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "snooze"),
		),
		StartNow: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "start now"),
		),
		Complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "completed"),
		),
		Partial: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "partial"),
		),
		NotDone: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "not completed"),
		),
	}
	k.actionByID = map[string]key.Binding{
		constants.ActionSnooze:             k.Snooze,
		constants.ActionStartNow:           k.StartNow,
		constants.ActionCompleted:          k.Complete,
		constants.ActionPartiallyCompleted: k.Partial,
		constants.ActionNotCompleted:       k.NotDone,
	}
	return k
}

func (k KeyMap) bindings() []key.Binding {
	return []key.Binding{k.Snooze, k.StartNow, k.Complete, k.Partial, k.NotDone}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(cfgs []models.NotificationConfig, width, height int) Model {
	l := list.New(items(cfgs), list.NewDefaultDelegate(), width, height)
	l.Title = "Notifications"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	return Model{list: l, keys: keys}
}

func items(cfgs []models.NotificationConfig) []list.Item {
	out := make([]list.Item, len(cfgs))
	for i, cfg := range cfgs {
		out[i] = Item{Notification: cfg}
	}
	return out
}

func (m *Model) SetNotifications(cfgs []models.NotificationConfig) {
	m.list.SetItems(items(cfgs))
}

// Selected returns the highlighted notification.
func (m Model) Selected() (models.NotificationConfig, bool) {
	if i, ok := m.list.SelectedItem().(Item); ok {
		return i.Notification, true
	}
	return models.NotificationConfig{}, false
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		if cfg, ok := m.Selected(); ok {
			for _, a := range cfg.Actions {
				if b, ok := m.keys.actionByID[a.ID]; ok && key.Matches(msg, b) {
					id, action := cfg.ID, a.ID
					return m, func() tea.Msg { return ActionMsg{ID: id, Action: action} }
				}
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No notifications yet."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
