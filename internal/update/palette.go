package update

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/schedd/internal/engine"
	"github.com/sandeepkv93/schedd/internal/model"
)

func (m Model) submit(raw string) (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(raw)
	if query == "" {
		m.Status = StatusBar{Text: "type a request first", IsError: true}
		return m, nil
	}
	if m.Busy {
		m.Status = StatusBar{Text: "still working on the previous request", IsError: true}
		return m, nil
	}
	m.remember(query)
	m.input.SetValue("")
	m.Busy = true
	m.Status = StatusBar{Text: "working: " + query}
	return m, tea.Batch(m.spinner.Tick, dispatchCmd(m.Engine, query))
}

func dispatchCmd(d Dispatcher, query string) tea.Cmd {
	if d == nil {
		return nil
	}
	return func() tea.Msg {
		return ResultMsg{Query: query, Result: d.Dispatch(context.Background(), engine.Request{Query: query})}
	}
}

func (m Model) applyResult(msg ResultMsg) (tea.Model, tea.Cmd) {
	m.Busy = false
	res := msg.Result
	entry := Entry{Query: msg.Query, Result: res}
	entry.Text = m.markdown("**> "+escapeMarkdown(msg.Query)+"**\n\n"+FormatResult(res, m.Location), m.log.Width)
	m.Entries = append(m.Entries, entry)
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	m.log.GotoBottom()

	if res.Error != nil {
		m.Status = StatusBar{Text: res.Error.Kind + ": " + res.Error.Message, IsError: true}
		m.notify("Request Failed", res.Error.Message, "error")
	} else {
		m.Status = StatusBar{Text: summary(res)}
	}
	m.syncBubbleData()

	if day, ok := focusDay(res); ok {
		m.Agenda.Day = day
		cmd := m.loadAgendaCmd(day)
		return m, cmd
	}
	if mutated(res) {
		cmd := m.loadAgendaCmd(m.Agenda.Day)
		return m, cmd
	}
	return m, nil
}

// focusDay picks the day a successful booking landed on so the agenda
// follows it.
func focusDay(res engine.Result) (model.Date, bool) {
	if res.Error != nil {
		return model.Date{}, false
	}
	if res.Appointment != nil {
		return res.Appointment.Date, true
	}
	switch n := len(res.Created); {
	case n == 1:
		return res.Created[0].Date, true
	case n == 2 && res.Created[1].LinkedID == res.Created[0].ID:
		return res.Created[0].Date, true
	}
	return model.Date{}, false
}

func mutated(res engine.Result) bool {
	return len(res.Created) > 0 || len(res.Updated) > 0 || len(res.Deleted) > 0
}

func (m *Model) remember(query string) {
	if n := len(m.History.Items); n == 0 || m.History.Items[n-1] != query {
		m.History.Items = append(m.History.Items, query)
	}
	if len(m.History.Items) > maxHistory {
		m.History.Items = m.History.Items[len(m.History.Items)-maxHistory:]
	}
	m.History.Cursor = len(m.History.Items)
	if err := m.persistHistory(); err != nil {
		m.LastError = err
	}
}

func (m *Model) browseHistory(step int) {
	if len(m.History.Items) == 0 {
		return
	}
	next := m.History.Cursor + step
	if next < 0 {
		next = 0
	}
	if next >= len(m.History.Items) {
		m.History.Cursor = len(m.History.Items)
		m.input.SetValue("")
		return
	}
	m.History.Cursor = next
	m.input.SetValue(m.History.Items[next])
	m.input.CursorEnd()
}
