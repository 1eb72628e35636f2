// Package update is the interactive console: a bubbletea model that sends
// typed requests to the engine, shows the day's agenda and surfaces due
// reminders as they arrive.
package update

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sandeepkv93/schedd/internal/engine"
	"github.com/sandeepkv93/schedd/internal/model"
	"github.com/sandeepkv93/schedd/internal/reminder"
	"github.com/sandeepkv93/schedd/internal/views"
)

const (
	maxNotifications = 40
	maxEntries       = 200
	paneWidth        = 58
	logHeight        = 18
)

// Dispatcher runs one request. *engine.Engine satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req engine.Request) engine.Result
}

type StatusBar struct {
	Text    string
	IsError bool
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

// Entry is one request and its rendered answer in the results log.
type Entry struct {
	Query  string
	Result engine.Result
	Text   string
}

type AgendaState struct {
	Day     model.Date
	Items   []model.Appointment
	Loading bool
}

type HistoryState struct {
	Items []string
	// Cursor indexes Items while browsing; len(Items) means a fresh line.
	Cursor int
}

type KeyMap struct {
	Submit   string
	Clear    string
	PrevDay  string
	NextDay  string
	Today    string
	Snooze   string
	Help     string
	Quit     string
	HistBack string
	HistFwd  string
}

type Model struct {
	Engine    Dispatcher
	Reminders <-chan reminder.Due
	Location  *time.Location
	Now       func() time.Time

	Agenda        AgendaState
	Entries       []Entry
	History       HistoryState
	Status        StatusBar
	Notifications []Notification
	LastReminder  *reminder.Due
	LastError     error
	Busy          bool
	HelpVisible   bool
	Keys          KeyMap

	DesktopEnabled bool
	notifier       DesktopNotifier
	historyPath    string
	markdown       func(md string, width int) string

	input     textinput.Model
	log       viewport.Model
	agenda    table.Model
	spinner   spinner.Model
	helpModel help.Model
}

type Config struct {
	Location    *time.Location
	Now         func() time.Time
	Reminders   <-chan reminder.Due
	HistoryPath string
	Notify      bool
	Notifier    DesktopNotifier
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// ResultMsg carries the answer to a submitted request.
type ResultMsg struct {
	Query  string
	Result engine.Result
}

// AgendaMsg carries the appointments of one day.
type AgendaMsg struct {
	Day    model.Date
	Result engine.Result
}

type ReminderDueMsg struct {
	Due reminder.Due
}

// SubmitMsg sends a request as if it had been typed.
type SubmitMsg struct {
	Query string
}

func NewModel(d Dispatcher, cfg Config) Model {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	m := Model{
		Engine:         d,
		Reminders:      cfg.Reminders,
		Location:       loc,
		Now:            now,
		DesktopEnabled: cfg.Notify,
		notifier:       NoopDesktopNotifier{},
		historyPath:    strings.TrimSpace(cfg.HistoryPath),
		markdown:       views.RenderMarkdown,
		Keys: KeyMap{
			Submit:   "enter",
			Clear:    "esc",
			PrevDay:  "ctrl+p",
			NextDay:  "ctrl+n",
			Today:    "ctrl+t",
			Snooze:   "ctrl+s",
			Help:     "f1",
			Quit:     "ctrl+c",
			HistBack: "up",
			HistFwd:  "down",
		},
	}
	if cfg.Notifier != nil {
		m.notifier = cfg.Notifier
	}
	m.Agenda.Day = model.DateOf(now().In(loc))
	if m.historyPath != "" {
		if items, err := loadHistory(m.historyPath); err == nil {
			m.History.Items = items
		}
	}
	m.History.Cursor = len(m.History.Items)
	m.initBubbleComponents()
	m.syncBubbleData()
	return m
}

func (m *Model) initBubbleComponents() {
	m.input = textinput.New()
	m.input.Placeholder = "schedule dentist tomorrow at 3pm"
	m.input.Prompt = "> "
	m.input.CharLimit = 512
	m.input.Width = 2*paneWidth - 2
	m.input.Focus()

	m.log = viewport.New(paneWidth, logHeight)

	cols := []table.Column{
		{Title: "Time", Width: 11},
		{Title: "Title", Width: 28},
		{Title: "Label", Width: 12},
	}
	m.agenda = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithHeight(logHeight-2))

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot

	m.helpModel = help.New()
}

func (m *Model) syncBubbleData() {
	rows := make([]table.Row, 0, len(m.Agenda.Items))
	for _, a := range m.Agenda.Items {
		rows = append(rows, table.Row{
			model.FormatClock(a.Start) + "-" + model.FormatClock(a.Span().End),
			a.Title,
			a.Label,
		})
	}
	m.agenda.SetRows(rows)

	var parts []string
	for _, e := range m.Entries {
		parts = append(parts, e.Text)
	}
	atBottom := m.log.AtBottom()
	m.log.SetContent(strings.Join(parts, "\n\n"))
	if atBottom {
		m.log.GotoBottom()
	}
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	n := Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    m.Now().UTC(),
	}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
	if m.DesktopEnabled && m.notifier != nil {
		_ = m.notifier.Send(n)
	}
}
