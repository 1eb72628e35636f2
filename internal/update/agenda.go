package update

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/engine"
	"github.com/sandeepkv93/schedd/internal/model"
)

func (m Model) today() model.Date {
	return model.DateOf(m.Now().In(m.Location))
}

func (m *Model) loadAgendaCmd(day model.Date) tea.Cmd {
	if m.Engine == nil {
		return nil
	}
	m.Agenda.Loading = true
	d := m.Engine
	return func() tea.Msg {
		res := d.Dispatch(context.Background(), engine.Request{
			Action: string(commands.IntentRetrieve),
			Date:   day.String(),
		})
		return AgendaMsg{Day: day, Result: res}
	}
}

func (m *Model) applyAgenda(msg AgendaMsg) {
	if msg.Day != m.Agenda.Day {
		return
	}
	m.Agenda.Loading = false
	if msg.Result.Error != nil {
		m.Status = StatusBar{Text: "agenda: " + msg.Result.Error.Message, IsError: true}
		return
	}
	m.Agenda.Items = msg.Result.Appointments
	m.syncBubbleData()
}

func (m Model) shiftAgenda(days int) (tea.Model, tea.Cmd) {
	if days == 0 {
		return m, nil
	}
	m.Agenda.Day = m.Agenda.Day.AddDays(days)
	m.Agenda.Items = nil
	m.syncBubbleData()
	cmd := m.loadAgendaCmd(m.Agenda.Day)
	return m, cmd
}
