package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/schedd/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.loadAgendaCmd(m.Agenda.Day),
		waitForReminderCmd(m.Reminders),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case tea.WindowSizeMsg:
		w := typed.Width/2 - 4
		if w > 20 {
			m.log.Width = w
			m.input.Width = typed.Width - 6
		}
		if h := typed.Height - 10; h > 5 {
			m.log.Height = h
			m.agenda.SetHeight(h - 2)
		}
		return m, nil
	case spinner.TickMsg:
		if m.Busy || m.Agenda.Loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case SubmitMsg:
		return m.submit(typed.Query)
	case ResultMsg:
		return m.applyResult(typed)
	case AgendaMsg:
		m.applyAgenda(typed)
		return m, nil
	case ReminderDueMsg:
		m.applyReminder(typed.Due)
		return m, waitForReminderCmd(m.Reminders)
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.Keys.Quit:
		_ = m.persistHistory()
		return m, tea.Quit
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case m.Keys.Submit:
		return m.submit(m.input.Value())
	case m.Keys.Clear:
		m.input.SetValue("")
		m.History.Cursor = len(m.History.Items)
		m.Status = StatusBar{}
		return m, nil
	case m.Keys.HistBack:
		m.browseHistory(-1)
		return m, nil
	case m.Keys.HistFwd:
		m.browseHistory(1)
		return m, nil
	case m.Keys.PrevDay:
		return m.shiftAgenda(-1)
	case m.Keys.NextDay:
		return m.shiftAgenda(1)
	case m.Keys.Today:
		return m.shiftAgenda(m.Agenda.Day.DaysUntil(m.today()))
	case m.Keys.Snooze:
		return m.snoozeLast()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := fmt.Sprintf("schedd | %s | %d request(s)", m.Now().In(m.Location).Format("Mon 2006-01-02 15:04"), len(m.Entries))

	left := views.RenderAgendaPanel(views.AgendaPanelData{
		Day:       m.Agenda.Day.String(),
		Weekday:   m.Agenda.Day.Weekday().String()[:3],
		Count:     len(m.Agenda.Items),
		TableView: m.agenda.View(),
		Loading:   m.Agenda.Loading,
	})
	right := views.RenderLogPanel(views.LogPanelData{
		Entries:      len(m.Entries),
		ViewportView: m.log.View(),
	})
	if m.HelpVisible {
		right = m.renderHelpView()
	}

	status := m.Status.Text
	if status == "" {
		status = "ready"
	}

	notification := ""
	if n := len(m.Notifications); n > 0 && m.Notifications[n-1].Title == "Reminder" {
		last := m.Notifications[n-1]
		notification = views.RenderNotification(last.Level, last.Body)
	}

	return views.RenderApp(views.AppData{
		Header:       header,
		LeftPane:     left,
		RightPane:    right,
		Prompt:       views.RenderPrompt(m.Busy, m.spinner.View(), m.input.View()),
		StatusLine:   status,
		StatusError:  m.Status.IsError,
		Notification: notification,
		Footer:       m.footer(),
		PaneWidth:    m.log.Width,
	})
}

func (m Model) footer() string {
	parts := make([]string, 0, len(m.globalBindings()))
	for _, kb := range m.globalBindings() {
		parts = append(parts, kb.Key+" "+kb.Action)
	}
	return strings.Join(parts, " | ")
}
