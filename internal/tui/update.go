package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/dayplan/internal/tui/components/notifications"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		bodyHeight := msg.Height - 6
		if bodyHeight < 1 {
			bodyHeight = 1
		}
		m.planModel.SetSize(msg.Width-4, bodyHeight)
		m.notifModel.SetSize(msg.Width-4, bodyHeight)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + SessionState(len(tabTitles))) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Generate):
			m.banner = "Planning today..."
			return m, m.generate()
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refresh()
		}

	case notifications.ActionMsg:
		return m, m.runAction(msg)

	case deliveredMsg:
		m.banner = "🔔 " + msg.Title
		return m, tea.Batch(m.refresh(), waitForDelivery(m.deliveries))

	case tickMsg:
		m.planModel.SetNow(m.now())
		return m, tick()

	case refreshedMsg:
		m.err = msg.err
		if msg.plan != nil {
			m.planModel.SetPlan(*msg.plan)
		}
		m.planModel.SetNow(m.now())
		if msg.err == nil {
			m.notifModel.SetNotifications(msg.notifications)
		}
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.banner = fmt.Sprintf("%s: %s", msg.cfg.Title, msg.cfg.State)
		if msg.rec != nil {
			m.banner = fmt.Sprintf("%q moved to tomorrow (%d min left)", msg.rec.Name, msg.rec.RemainingDuration)
		}
		return m, m.refresh()

	case generatedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.banner = ""
			return m, nil
		}
		m.err = nil
		m.banner = fmt.Sprintf("Applied schedule: %d notifications armed", msg.res.Armed)
		if n := len(msg.res.Failures); n > 0 {
			m.banner += fmt.Sprintf(", %d external writes failed", n)
		}
		return m, m.refresh()
	}

	switch m.state {
	case StateSchedule:
		m.planModel, cmd = m.planModel.Update(msg)
	case StateNotifications:
		m.notifModel, cmd = m.notifModel.Update(msg)
	}
	return m, cmd
}
