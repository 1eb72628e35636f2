package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/engine"
	"github.com/sandeepkv93/schedd/internal/reminder"
)

func waitForReminderCmd(ch <-chan reminder.Due) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		due, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderDueMsg{Due: due}
	}
}

func (m *Model) applyReminder(due reminder.Due) {
	d := due
	m.LastReminder = &d
	body := fmt.Sprintf("%s (%s)", due.Reminder.Title, due.TriggerAt.In(m.Location).Format("15:04"))
	m.Status = StatusBar{Text: "reminder: " + body}
	m.notify("Reminder", body, string(due.Reminder.Channel))
}

// snoozeLast pushes the most recently delivered reminder back by the
// engine's default snooze.
func (m Model) snoozeLast() (tea.Model, tea.Cmd) {
	if m.LastReminder == nil {
		m.Status = StatusBar{Text: "no reminder to snooze", IsError: true}
		return m, nil
	}
	if m.Engine == nil {
		return m, nil
	}
	id := m.LastReminder.Reminder.ID
	title := m.LastReminder.Reminder.Title
	m.LastReminder = nil
	m.Busy = true
	d := m.Engine
	return m, func() tea.Msg {
		res := d.Dispatch(context.Background(), engine.Request{
			Action: string(commands.IntentReminderSnooze),
			ID:     id,
		})
		return ResultMsg{Query: "snooze " + title, Result: res}
	}
}
