// Package reminder decides which reminders are due and applies the explicit
// state changes: delivery, snooze, toggle and delete.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sandeepkv93/schedd/internal/model"
)

var ErrInvalidSnooze = errors.New("reminder: snooze minutes must be positive")

type State string

const (
	StateScheduled State = "scheduled"
	StateDue       State = "due"
	StateDelivered State = "delivered"
	StateInactive  State = "inactive"
)

// Store is the persistence the poller needs. AppointmentsByID omits ids that
// no longer exist.
type Store interface {
	ListReminders(ctx context.Context) ([]model.Reminder, error)
	GetReminder(ctx context.Context, id string) (model.Reminder, error)
	UpdateReminder(ctx context.Context, r model.Reminder) error
	DeleteReminder(ctx context.Context, id string) error
	AppointmentsByID(ctx context.Context, ids []string) (map[string]model.Appointment, error)
}

// Due is a reminder whose trigger has passed.
type Due struct {
	Reminder  model.Reminder `json:"reminder"`
	TriggerAt time.Time      `json:"trigger_at"`
}

// Trigger resolves when r fires. A lead-based reminder whose appointment is
// missing has no trigger.
func Trigger(r model.Reminder, appt *model.Appointment, loc *time.Location) (time.Time, bool) {
	if r.TriggerAt != nil {
		return *r.TriggerAt, true
	}
	if appt == nil {
		return time.Time{}, false
	}
	start := appt.Date.At(appt.Start, loc)
	return start.Add(-time.Duration(r.LeadMinutes) * time.Minute), true
}

func StateOf(r model.Reminder, appt *model.Appointment, now time.Time, loc *time.Location) State {
	switch {
	case !r.Active:
		return StateInactive
	case r.Delivered:
		return StateDelivered
	}
	at, ok := Trigger(r, appt, loc)
	if ok && !at.After(now) {
		return StateDue
	}
	return StateScheduled
}

// DueReminders filters reminders to those due at now, earliest trigger first.
func DueReminders(reminders []model.Reminder, appts map[string]model.Appointment, now time.Time, loc *time.Location) []Due {
	var out []Due
	for _, r := range reminders {
		var appt *model.Appointment
		if a, ok := appts[r.AppointmentID]; ok {
			appt = &a
		}
		if StateOf(r, appt, now, loc) != StateDue {
			continue
		}
		at, _ := Trigger(r, appt, loc)
		out = append(out, Due{Reminder: r, TriggerAt: at})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TriggerAt.Before(out[j].TriggerAt) })
	return out
}

type Poller struct {
	store Store
	loc   *time.Location
}

func NewPoller(store Store, loc *time.Location) *Poller {
	if loc == nil {
		loc = time.Local
	}
	return &Poller{store: store, loc: loc}
}

func (p *Poller) Location() *time.Location { return p.loc }

// Due reads the store and reports what is due at now. It changes nothing.
func (p *Poller) Due(ctx context.Context, now time.Time) ([]Due, error) {
	reminders, appts, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return DueReminders(reminders, appts, now, p.loc), nil
}

// States reports every reminder with its current state.
func (p *Poller) States(ctx context.Context, now time.Time) (map[string]State, error) {
	reminders, appts, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]State, len(reminders))
	for _, r := range reminders {
		var appt *model.Appointment
		if a, ok := appts[r.AppointmentID]; ok {
			appt = &a
		}
		out[r.ID] = StateOf(r, appt, now, p.loc)
	}
	return out, nil
}

func (p *Poller) load(ctx context.Context) ([]model.Reminder, map[string]model.Appointment, error) {
	reminders, err := p.store.ListReminders(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list reminders: %w", err)
	}
	var ids []string
	for _, r := range reminders {
		if r.AppointmentID != "" {
			ids = append(ids, r.AppointmentID)
		}
	}
	appts := map[string]model.Appointment{}
	if len(ids) > 0 {
		appts, err = p.store.AppointmentsByID(ctx, ids)
		if err != nil {
			return nil, nil, fmt.Errorf("load reminder appointments: %w", err)
		}
	}
	return reminders, appts, nil
}

func (p *Poller) MarkDelivered(ctx context.Context, now time.Time, ids ...string) error {
	for _, id := range ids {
		r, err := p.store.GetReminder(ctx, id)
		if err != nil {
			return err
		}
		r.Delivered = true
		r.UpdatedAt = now
		if err := p.store.UpdateReminder(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Snooze moves the trigger to now+minutes and clears Delivered. Active is
// left alone, so a paused reminder stays out of due checks.
func (p *Poller) Snooze(ctx context.Context, id string, minutes int, now time.Time) (model.Reminder, error) {
	if minutes <= 0 {
		return model.Reminder{}, ErrInvalidSnooze
	}
	r, err := p.store.GetReminder(ctx, id)
	if err != nil {
		return model.Reminder{}, err
	}
	at := now.Add(time.Duration(minutes) * time.Minute)
	r.TriggerAt = &at
	r.Delivered = false
	r.UpdatedAt = now
	if err := p.store.UpdateReminder(ctx, r); err != nil {
		return model.Reminder{}, err
	}
	return r, nil
}

// Toggle sets Active to *active, or flips it when active is nil.
func (p *Poller) Toggle(ctx context.Context, id string, active *bool, now time.Time) (model.Reminder, error) {
	r, err := p.store.GetReminder(ctx, id)
	if err != nil {
		return model.Reminder{}, err
	}
	if active != nil {
		r.Active = *active
	} else {
		r.Active = !r.Active
	}
	r.UpdatedAt = now
	if err := p.store.UpdateReminder(ctx, r); err != nil {
		return model.Reminder{}, err
	}
	return r, nil
}

// Delete removes by id only, so orphaned reminders can always be cleared.
func (p *Poller) Delete(ctx context.Context, id string) error {
	return p.store.DeleteReminder(ctx, id)
}
