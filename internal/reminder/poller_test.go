package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/schedd/internal/model"
)

var errMissing = errors.New("missing")

type memStore struct {
	mu        sync.Mutex
	reminders map[string]model.Reminder
	appts     map[string]model.Appointment
	updates   int
}

func newMemStore(rs ...model.Reminder) *memStore {
	s := &memStore{reminders: map[string]model.Reminder{}, appts: map[string]model.Appointment{}}
	for _, r := range rs {
		s.reminders[r.ID] = r
	}
	return s
}

func (s *memStore) ListReminders(context.Context) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) GetReminder(_ context.Context, id string) (model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return model.Reminder{}, errMissing
	}
	return r, nil
}

func (s *memStore) UpdateReminder(_ context.Context, r model.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[r.ID]; !ok {
		return errMissing
	}
	s.reminders[r.ID] = r
	s.updates++
	return nil
}

func (s *memStore) DeleteReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[id]; !ok {
		return errMissing
	}
	delete(s.reminders, id)
	return nil
}

func (s *memStore) AppointmentsByID(_ context.Context, ids []string) (map[string]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]model.Appointment{}
	for _, id := range ids {
		if a, ok := s.appts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

var now = time.Date(2025, time.October, 1, 10, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func absolute(id string, trigger time.Time) model.Reminder {
	return model.Reminder{ID: id, Title: id, TriggerAt: at(trigger), Channel: model.ChannelInApp, Active: true}
}

func TestDueRemindersFiltersByState(t *testing.T) {
	appt := model.Appointment{ID: "a1", Date: model.NewDate(2025, time.October, 1), Start: 10*60 + 10, End: 11 * 60, Title: "Dentist"}
	reminders := []model.Reminder{
		absolute("past", now.Add(-time.Minute)),
		absolute("exact", now),
		absolute("future", now.Add(time.Minute)),
		{ID: "inactive", TriggerAt: at(now.Add(-time.Hour)), Channel: model.ChannelInApp},
		{ID: "delivered", TriggerAt: at(now.Add(-time.Hour)), Channel: model.ChannelInApp, Active: true, Delivered: true},
		{ID: "lead", AppointmentID: "a1", LeadMinutes: 15, Channel: model.ChannelInApp, Active: true},
		{ID: "orphan", AppointmentID: "gone", LeadMinutes: 15, Channel: model.ChannelInApp, Active: true},
	}
	due := DueReminders(reminders, map[string]model.Appointment{"a1": appt}, now, time.UTC)

	got := map[string]bool{}
	for _, d := range due {
		got[d.Reminder.ID] = true
	}
	for _, id := range []string{"past", "exact", "lead"} {
		if !got[id] {
			t.Fatalf("expected %s to be due, got %v", id, got)
		}
	}
	if len(due) != 3 {
		t.Fatalf("expected 3 due reminders, got %d", len(due))
	}
	if due[0].Reminder.ID != "lead" {
		t.Fatalf("expected earliest trigger first, got %s", due[0].Reminder.ID)
	}
}

func TestStateOf(t *testing.T) {
	r := absolute("r", now.Add(time.Minute))
	if s := StateOf(r, nil, now, time.UTC); s != StateScheduled {
		t.Fatalf("state = %s, want scheduled", s)
	}
	if s := StateOf(r, nil, now.Add(time.Minute), time.UTC); s != StateDue {
		t.Fatalf("state = %s, want due", s)
	}
	r.Delivered = true
	if s := StateOf(r, nil, now.Add(time.Hour), time.UTC); s != StateDelivered {
		t.Fatalf("state = %s, want delivered", s)
	}
	r.Active = false
	if s := StateOf(r, nil, now.Add(time.Hour), time.UTC); s != StateInactive {
		t.Fatalf("state = %s, want inactive", s)
	}
}

func TestSnoozeHidesReminderUntilOffset(t *testing.T) {
	store := newMemStore(absolute("r1", now.Add(-5*time.Minute)))
	p := NewPoller(store, time.UTC)
	ctx := context.Background()

	due, err := p.Due(ctx, now)
	if err != nil || len(due) != 1 {
		t.Fatalf("expected one due reminder, got %d err=%v", len(due), err)
	}

	snoozed, err := p.Snooze(ctx, "r1", 10, now)
	if err != nil {
		t.Fatalf("snooze failed: %v", err)
	}
	if !snoozed.TriggerAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("trigger = %s", snoozed.TriggerAt)
	}

	due, _ = p.Due(ctx, now)
	if len(due) != 0 {
		t.Fatalf("snoozed reminder should not be due, got %d", len(due))
	}
	due, _ = p.Due(ctx, now.Add(10*time.Minute))
	if len(due) != 1 {
		t.Fatalf("snoozed reminder should be due after the offset, got %d", len(due))
	}

	if _, err := p.Snooze(ctx, "r1", 0, now); !errors.Is(err, ErrInvalidSnooze) {
		t.Fatalf("expected ErrInvalidSnooze, got %v", err)
	}
}

func TestSnoozeClearsDelivered(t *testing.T) {
	r := absolute("r1", now.Add(-time.Hour))
	r.Delivered = true
	store := newMemStore(r)
	p := NewPoller(store, time.UTC)

	got, err := p.Snooze(context.Background(), "r1", 5, now)
	if err != nil {
		t.Fatalf("snooze failed: %v", err)
	}
	if got.Delivered || !got.Active {
		t.Fatalf("snooze should make the reminder pending again: %+v", got)
	}
}

func TestSnoozeLeavesPausedReminderInactive(t *testing.T) {
	store := newMemStore(absolute("r1", now.Add(-time.Minute)))
	p := NewPoller(store, time.UTC)
	ctx := context.Background()

	off := false
	if _, err := p.Toggle(ctx, "r1", &off, now); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	got, err := p.Snooze(ctx, "r1", 10, now)
	if err != nil {
		t.Fatalf("snooze failed: %v", err)
	}
	if got.Active {
		t.Fatalf("snooze must not re-enable a paused reminder: %+v", got)
	}
	if !got.TriggerAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("trigger = %s", got.TriggerAt)
	}
	due, _ := p.Due(ctx, now.Add(11*time.Minute))
	if len(due) != 0 {
		t.Fatalf("paused reminder should never be due, got %d", len(due))
	}
}

func TestToggle(t *testing.T) {
	store := newMemStore(absolute("r1", now))
	p := NewPoller(store, time.UTC)
	ctx := context.Background()

	r, err := p.Toggle(ctx, "r1", nil, now)
	if err != nil || r.Active {
		t.Fatalf("flip should deactivate: %+v err=%v", r, err)
	}
	on := true
	r, err = p.Toggle(ctx, "r1", &on, now)
	if err != nil || !r.Active {
		t.Fatalf("explicit toggle should activate: %+v err=%v", r, err)
	}
	r, _ = p.Toggle(ctx, "r1", &on, now)
	if !r.Active {
		t.Fatal("explicit toggle should be idempotent")
	}
}

func TestDeleteOrphan(t *testing.T) {
	store := newMemStore(model.Reminder{ID: "orphan", AppointmentID: "gone", LeadMinutes: 10, Channel: model.ChannelInApp, Active: true})
	p := NewPoller(store, time.UTC)
	if err := p.Delete(context.Background(), "orphan"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(store.reminders) != 0 {
		t.Fatal("expected reminder to be gone")
	}
	if err := p.Delete(context.Background(), "orphan"); !errors.Is(err, errMissing) {
		t.Fatalf("expected store error, got %v", err)
	}
}
