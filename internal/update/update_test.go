package update

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/engine"
	"github.com/sandeepkv93/schedd/internal/model"
	"github.com/sandeepkv93/schedd/internal/reminder"
)

var fixedNow = time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC)

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []engine.Request
	reply    func(engine.Request) engine.Result
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req engine.Request) engine.Result {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(req)
	}
	return engine.Result{}
}

func (f *fakeDispatcher) last() engine.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return engine.Request{}
	}
	return f.requests[len(f.requests)-1]
}

type recordingNotifier struct {
	sent []Notification
}

func (r *recordingNotifier) Send(n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func newTestModel(d Dispatcher, cfg Config) Model {
	cfg.Location = time.UTC
	cfg.Now = func() time.Time { return fixedNow }
	m := NewModel(d, cfg)
	m.markdown = func(md string, _ int) string { return md }
	return m
}

// run executes cmd and flattens batches, skipping commands that would block.
func run(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(t, c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if typed, ok := msg.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

func dentist(d model.Date) model.Appointment {
	return model.Appointment{ID: "a1", Date: d, Start: 15 * 60, End: 16 * 60, Title: "Dentist", Label: "health"}
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(nil, Config{})
	if m.Agenda.Day != model.NewDate(2025, time.October, 1) {
		t.Fatalf("expected agenda on today, got %s", m.Agenda.Day)
	}
	if m.Keys.Quit != "ctrl+c" {
		t.Fatalf("expected quit key ctrl+c, got %q", m.Keys.Quit)
	}
	if m.Busy || m.HelpVisible {
		t.Fatalf("unexpected initial flags: busy=%v help=%v", m.Busy, m.HelpVisible)
	}
}

func TestSubmitDispatchesQuery(t *testing.T) {
	tomorrow := model.NewDate(2025, time.October, 2)
	d := &fakeDispatcher{reply: func(req engine.Request) engine.Result {
		if req.Query != "" {
			appt := dentist(tomorrow)
			return engine.Result{Intent: commands.IntentCreate, Appointment: &appt, Created: []model.Appointment{appt}}
		}
		return engine.Result{Appointments: []model.Appointment{dentist(tomorrow)}}
	}}
	m := newTestModel(d, Config{})

	updated, cmd := m.Update(SubmitMsg{Query: "  schedule dentist tomorrow at 3pm "})
	next := updated.(Model)
	if !next.Busy {
		t.Fatalf("expected busy while dispatching")
	}
	res, ok := find[ResultMsg](run(t, cmd))
	if !ok {
		t.Fatalf("expected a ResultMsg from submit")
	}
	if got := d.last().Query; got != "schedule dentist tomorrow at 3pm" {
		t.Fatalf("expected trimmed query, got %q", got)
	}

	updated, cmd = next.Update(res)
	next = updated.(Model)
	if next.Busy {
		t.Fatalf("expected busy cleared after result")
	}
	if len(next.Entries) != 1 || !strings.Contains(next.Entries[0].Text, "Dentist") {
		t.Fatalf("expected one log entry mentioning Dentist, got %+v", next.Entries)
	}
	if next.Agenda.Day != tomorrow {
		t.Fatalf("expected agenda to follow booking to %s, got %s", tomorrow, next.Agenda.Day)
	}

	agenda, ok := find[AgendaMsg](run(t, cmd))
	if !ok {
		t.Fatalf("expected agenda reload after booking")
	}
	if req := d.last(); req.Action != string(commands.IntentRetrieve) || req.Date != "2025-10-02" {
		t.Fatalf("unexpected agenda request: %+v", req)
	}
	updated, _ = next.Update(agenda)
	next = updated.(Model)
	if len(next.Agenda.Items) != 1 || next.Agenda.Loading {
		t.Fatalf("expected one agenda item loaded, got %+v", next.Agenda)
	}
	if view := next.View(); !strings.Contains(view, "Dentist") || !strings.Contains(view, "2025-10-02") {
		t.Fatalf("expected view to show agenda, got:\n%s", view)
	}
}

func TestSubmitRejectsEmptyAndBusy(t *testing.T) {
	d := &fakeDispatcher{}
	m := newTestModel(d, Config{})
	updated, cmd := m.Update(SubmitMsg{Query: "   "})
	next := updated.(Model)
	if cmd != nil || !next.Status.IsError {
		t.Fatalf("expected empty submit to set an error status, got %+v", next.Status)
	}

	next.Busy = true
	updated, cmd = next.Update(SubmitMsg{Query: "show today"})
	next = updated.(Model)
	if cmd != nil || !strings.Contains(next.Status.Text, "still working") {
		t.Fatalf("expected busy rejection, got %+v", next.Status)
	}
	if len(d.requests) != 0 {
		t.Fatalf("expected no dispatch, got %d", len(d.requests))
	}
}

func TestErrorResultSetsStatus(t *testing.T) {
	m := newTestModel(&fakeDispatcher{}, Config{})
	res := engine.Result{Error: &engine.ErrorInfo{
		Kind:      string(commands.ErrCodeSchedulingConflict),
		Message:   "slot is taken",
		Proposals: []model.Span{{Date: model.NewDate(2025, time.October, 1), Start: 11 * 60, End: 12 * 60}},
	}}
	updated, cmd := m.Update(ResultMsg{Query: "book gym at 10", Result: res})
	next := updated.(Model)
	if cmd != nil {
		t.Fatalf("expected no agenda reload after a failure")
	}
	if !next.Status.IsError || next.Status.Text != "scheduling_conflict: slot is taken" {
		t.Fatalf("unexpected status: %+v", next.Status)
	}
	if len(next.Notifications) != 1 || next.Notifications[0].Level != "error" {
		t.Fatalf("expected an error notification, got %+v", next.Notifications)
	}
	if !strings.Contains(next.Entries[0].Text, "2025-10-01 11:00-12:00") {
		t.Fatalf("expected proposal in log, got %q", next.Entries[0].Text)
	}
}

func TestStaleAgendaIgnored(t *testing.T) {
	m := newTestModel(&fakeDispatcher{}, Config{})
	other := model.NewDate(2025, time.October, 5)
	updated, _ := m.Update(AgendaMsg{Day: other, Result: engine.Result{Appointments: []model.Appointment{dentist(other)}}})
	next := updated.(Model)
	if len(next.Agenda.Items) != 0 {
		t.Fatalf("expected agenda for another day to be ignored, got %+v", next.Agenda.Items)
	}
}

func TestAgendaNavigation(t *testing.T) {
	d := &fakeDispatcher{}
	m := newTestModel(d, Config{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	next := updated.(Model)
	if next.Agenda.Day != model.NewDate(2025, time.October, 2) || !next.Agenda.Loading {
		t.Fatalf("expected next day loading, got %+v", next.Agenda)
	}
	run(t, cmd)
	if d.last().Date != "2025-10-02" {
		t.Fatalf("expected retrieve for next day, got %+v", d.last())
	}

	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	next = updated.(Model)
	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	next = updated.(Model)
	if next.Agenda.Day != model.NewDate(2025, time.September, 30) {
		t.Fatalf("expected previous day, got %s", next.Agenda.Day)
	}

	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	next = updated.(Model)
	if next.Agenda.Day != model.NewDate(2025, time.October, 1) {
		t.Fatalf("expected agenda back on today, got %s", next.Agenda.Day)
	}
}

func TestReminderDueNotifiesAndWaits(t *testing.T) {
	ch := make(chan reminder.Due, 2)
	notifier := &recordingNotifier{}
	d := &fakeDispatcher{}
	m := newTestModel(d, Config{Reminders: ch, Notify: true, Notifier: notifier})

	first := reminder.Due{
		Reminder:  model.Reminder{ID: "r1", Title: "Stretch", Channel: model.Channel("push")},
		TriggerAt: fixedNow,
	}
	ch <- first
	msgs := run(t, waitForReminderCmd(ch))
	due, ok := find[ReminderDueMsg](msgs)
	if !ok {
		t.Fatalf("expected ReminderDueMsg, got %+v", msgs)
	}

	updated, cmd := m.Update(due)
	next := updated.(Model)
	if next.Status.Text != "reminder: Stretch (10:00)" {
		t.Fatalf("unexpected status: %q", next.Status.Text)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Title != "Reminder" {
		t.Fatalf("expected desktop notification, got %+v", notifier.sent)
	}
	if !strings.Contains(next.View(), "Stretch") {
		t.Fatalf("expected reminder shown in view")
	}

	ch <- reminder.Due{Reminder: model.Reminder{ID: "r2", Title: "Water"}, TriggerAt: fixedNow}
	again, ok := find[ReminderDueMsg](run(t, cmd))
	if !ok || again.Due.Reminder.ID != "r2" {
		t.Fatalf("expected runner channel to be read again, got %+v", again)
	}

	updated, cmd = next.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	next = updated.(Model)
	if next.LastReminder != nil {
		t.Fatalf("expected snoozed reminder to be cleared")
	}
	if _, ok := find[ResultMsg](run(t, cmd)); !ok {
		t.Fatalf("expected snooze dispatch result")
	}
	if req := d.last(); req.Action != string(commands.IntentReminderSnooze) || req.ID != "r1" {
		t.Fatalf("unexpected snooze request: %+v", req)
	}
}

func TestSnoozeWithoutReminder(t *testing.T) {
	m := newTestModel(&fakeDispatcher{}, Config{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	next := updated.(Model)
	if cmd != nil || !next.Status.IsError {
		t.Fatalf("expected snooze error without a reminder, got %+v", next.Status)
	}
}

func TestWaitForReminderClosedChannel(t *testing.T) {
	if waitForReminderCmd(nil) != nil {
		t.Fatalf("expected nil cmd for nil channel")
	}
	ch := make(chan reminder.Due)
	close(ch)
	if msg := waitForReminderCmd(ch)(); msg != nil {
		t.Fatalf("expected nil msg for closed channel, got %#v", msg)
	}
}

func TestHistoryPersistsAndBrowses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.json")
	d := &fakeDispatcher{}
	m := newTestModel(d, Config{HistoryPath: path})

	for _, q := range []string{"show today", "count meetings this week", "count meetings this week"} {
		updated, cmd := m.Update(SubmitMsg{Query: q})
		m = updated.(Model)
		res, _ := find[ResultMsg](run(t, cmd))
		updated, _ = m.Update(res)
		m = updated.(Model)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if strings.Count(string(raw), "count meetings this week") != 1 {
		t.Fatalf("expected repeated query stored once, got %s", raw)
	}

	reloaded := newTestModel(d, Config{HistoryPath: path})
	if len(reloaded.History.Items) != 2 {
		t.Fatalf("expected two history items, got %v", reloaded.History.Items)
	}
	updated, _ := reloaded.Update(tea.KeyMsg{Type: tea.KeyUp})
	next := updated.(Model)
	if next.input.Value() != "count meetings this week" {
		t.Fatalf("expected last query recalled, got %q", next.input.Value())
	}
	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyUp})
	next = updated.(Model)
	if next.input.Value() != "show today" {
		t.Fatalf("expected first query recalled, got %q", next.input.Value())
	}
	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyDown})
	next = updated.(Model)
	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyDown})
	next = updated.(Model)
	if next.input.Value() != "" {
		t.Fatalf("expected fresh line past the end, got %q", next.input.Value())
	}
}

func TestLoadHistoryMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	items, err := loadHistory(filepath.Join(dir, "missing.json"))
	if err != nil || items != nil {
		t.Fatalf("expected empty history for missing file, got %v %v", items, err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadHistory(bad); err == nil {
		t.Fatalf("expected error for corrupt history")
	}
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(nil, Config{})
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyF1})
	next := updated.(Model)
	if !next.HelpVisible || !strings.Contains(next.View(), "browse history") {
		t.Fatalf("expected help panel visible")
	}
}

func TestStatusMessages(t *testing.T) {
	m := newTestModel(nil, Config{})
	updated, _ := m.Update(SetStatusMsg{Text: "ready"})
	next := updated.(Model)
	if next.Status.Text != "ready" || next.Status.IsError {
		t.Fatalf("unexpected status: %+v", next.Status)
	}
	updated, _ = next.Update(AppErrorMsg{Err: context.DeadlineExceeded})
	next = updated.(Model)
	if next.LastError == nil || !next.Status.IsError {
		t.Fatalf("expected error status, got %+v", next.Status)
	}
	updated, _ = next.Update(ClearStatusMsg{})
	next = updated.(Model)
	if next.Status.Text != "" {
		t.Fatalf("expected cleared status, got %+v", next.Status)
	}
}

func TestFormatResultSections(t *testing.T) {
	day := model.NewDate(2025, time.October, 1)
	at := fixedNow.Add(30 * time.Minute)
	count := 3
	res := engine.Result{
		Message:   "Found 3",
		Count:     &count,
		FreeSlots: []model.FreeSlot{{Span: model.Span{Date: day, Start: 13 * 60, End: 14 * 60}}},
		Deleted:   []string{"x", "y"},
		Reminders: []engine.ReminderView{{
			Reminder: model.Reminder{Title: "Call mom"},
			State:    reminder.StateScheduled,
			FiresAt:  &at,
		}},
		Templates: []string{"pitch_prep"},
	}
	out := FormatResult(res, time.UTC)
	for _, want := range []string{
		"Found 3",
		"count: **3**",
		"`2025-10-01 13:00-14:00` (60 min)",
		"deleted 2 appointment(s)",
		"Call mom at 2025-10-01 10:30",
		`pitch\_prep`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if FormatResult(engine.Result{}, time.UTC) != "done" {
		t.Fatalf("expected empty result to render as done")
	}
}
