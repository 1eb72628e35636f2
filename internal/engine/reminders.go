package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/match"
	"github.com/sandeepkv93/schedd/internal/model"
	"github.com/sandeepkv93/schedd/internal/reminder"
	"github.com/sandeepkv93/schedd/internal/storage"
)

const clockLayout = "2006-01-02 15:04"

func (e *Engine) createReminder(ctx context.Context, cmd commands.Command) (Result, error) {
	if cmd.AppointmentID != "" || cmd.AppointmentTitle != "" {
		cmd.Selector = commands.Selector{ID: cmd.AppointmentID, Title: cmd.AppointmentTitle}
		return e.createAppointmentReminder(ctx, cmd)
	}
	if cmd.TriggerAt == nil {
		return Result{}, invalid("reminder needs a trigger time or an appointment")
	}
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		title = "Reminder"
	}
	r, err := e.store.CreateReminder(ctx, model.Reminder{
		Title:       title,
		Description: cmd.Description,
		TriggerAt:   cmd.TriggerAt,
		Channel:     channelOr(cmd.Channel),
		Active:      true,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Reminder: &r,
		Message:  fmt.Sprintf("Reminder %q set for %s", r.Title, r.TriggerAt.In(e.opts.Location).Format(clockLayout)),
	}, nil
}

// createAppointmentReminder attaches a lead-based reminder to one booking.
func (e *Engine) createAppointmentReminder(ctx context.Context, cmd commands.Command) (Result, error) {
	sel := cmd.Selector
	if sel.Empty() {
		sel = commands.Selector{ID: cmd.AppointmentID, Title: cmd.AppointmentTitle}
	}
	lead := e.opts.DefaultLead
	if cmd.Lead != nil {
		lead = *cmd.Lead
	}

	var res Result
	err := e.store.Atomic(ctx, func(tx storage.Repository) error {
		b, err := e.resolve(ctx, tx, sel)
		if err != nil {
			return err
		}
		title := strings.TrimSpace(cmd.Title)
		if title == "" {
			title = b.first.Title
		}
		r, err := tx.CreateReminder(ctx, model.Reminder{
			AppointmentID: b.first.ID,
			Title:         title,
			Description:   cmd.Description,
			LeadMinutes:   lead,
			Channel:       channelOr(cmd.Channel),
			Active:        true,
		})
		if err != nil {
			return err
		}
		res.Reminder = &r
		res.Message = fmt.Sprintf("Reminder %d minute(s) before %q", lead, b.first.Title)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func ambiguousReminder(n int) error {
	msg := "no reminder matches the selector"
	if n > 1 {
		msg = fmt.Sprintf("%d reminders match the selector", n)
	}
	return &commands.CommandError{
		Code:    commands.ErrCodeAmbiguousSelector,
		Message: msg,
		Hint:    "name the reminder by id or title",
		Matches: n,
	}
}

// resolveReminder picks one reminder by id or title. With neither, the
// single due reminder is chosen.
func (e *Engine) resolveReminder(ctx context.Context, sel commands.Selector) (model.Reminder, error) {
	if sel.ID != "" {
		r, err := e.store.GetReminder(ctx, sel.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return model.Reminder{}, commands.Errorf(commands.ErrCodeNotFound, "reminder %s not found", sel.ID)
		}
		return r, err
	}
	if sel.Title == "" {
		due, err := e.poller.Due(ctx, e.now())
		if err != nil {
			return model.Reminder{}, err
		}
		if len(due) != 1 {
			return model.Reminder{}, ambiguousReminder(len(due))
		}
		return due[0].Reminder, nil
	}

	all, err := e.store.ListReminders(ctx)
	if err != nil {
		return model.Reminder{}, err
	}
	var hits []model.Reminder
	for _, r := range all {
		if match.Title(sel.Title, r.Title) {
			hits = append(hits, r)
		}
	}
	if len(hits) > 1 {
		var exact []model.Reminder
		for _, r := range hits {
			if match.Normalize(r.Title) == match.Normalize(sel.Title) {
				exact = append(exact, r)
			}
		}
		if len(exact) == 1 {
			hits = exact
		}
	}
	if len(hits) != 1 {
		return model.Reminder{}, ambiguousReminder(len(hits))
	}
	return hits[0], nil
}

func (e *Engine) views(ctx context.Context, list []model.Reminder) ([]ReminderView, error) {
	var ids []string
	for _, r := range list {
		if r.AppointmentID != "" {
			ids = append(ids, r.AppointmentID)
		}
	}
	appts, err := e.store.AppointmentsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := e.now()
	out := make([]ReminderView, 0, len(list))
	for _, r := range list {
		var appt *model.Appointment
		if a, ok := appts[r.AppointmentID]; ok {
			appt = &a
		}
		view := ReminderView{Reminder: r, State: reminder.StateOf(r, appt, now, e.opts.Location)}
		if at, ok := reminder.Trigger(r, appt, e.opts.Location); ok {
			view.FiresAt = &at
		}
		out = append(out, view)
	}
	return out, nil
}

func (e *Engine) listReminders(ctx context.Context, cmd commands.Command) (Result, error) {
	list, err := e.store.QueryReminders(ctx, storage.ReminderFilter{Active: cmd.Active, Limit: cmd.Limit})
	if err != nil {
		return Result{}, err
	}
	views, err := e.views(ctx, list)
	if err != nil {
		return Result{}, err
	}
	if cmd.DueOnly {
		due := views[:0]
		for _, v := range views {
			if v.State == reminder.StateDue {
				due = append(due, v)
			}
		}
		views = due
	}
	res := Result{Reminders: views}
	if len(views) == 0 {
		res.Message = "No reminders"
	}
	return res, nil
}

func (e *Engine) dueReminders(ctx context.Context, _ commands.Command) (Result, error) {
	due, err := e.poller.Due(ctx, e.now())
	if err != nil {
		return Result{}, err
	}
	views := make([]ReminderView, 0, len(due))
	for _, d := range due {
		at := d.TriggerAt
		views = append(views, ReminderView{Reminder: d.Reminder, State: reminder.StateDue, FiresAt: &at})
	}
	res := Result{Reminders: views}
	if len(views) == 0 {
		res.Message = "No reminders are due"
	}
	return res, nil
}

func (e *Engine) updateReminder(ctx context.Context, cmd commands.Command) (Result, error) {
	r, err := e.resolveReminder(ctx, cmd.Selector)
	if err != nil {
		return Result{}, err
	}
	switch {
	case cmd.NewTitle != "":
		r.Title = cmd.NewTitle
	case cmd.Title != "":
		r.Title = cmd.Title
	}
	if cmd.Description != "" {
		r.Description = cmd.Description
	}
	if cmd.Lead != nil {
		r.LeadMinutes = *cmd.Lead
		if r.AppointmentID != "" {
			r.TriggerAt = nil
		}
		r.Delivered = false
	}
	if cmd.TriggerAt != nil {
		at := *cmd.TriggerAt
		r.TriggerAt = &at
		r.Delivered = false
	}
	if cmd.Channel != "" {
		r.Channel = cmd.Channel
	}
	if cmd.Active != nil {
		r.Active = *cmd.Active
	}
	r.UpdatedAt = e.now()
	if err := e.store.UpdateReminder(ctx, r); err != nil {
		return Result{}, err
	}
	return Result{Reminder: &r, Message: fmt.Sprintf("Updated reminder %q", r.Title)}, nil
}

func (e *Engine) snoozeReminder(ctx context.Context, cmd commands.Command) (Result, error) {
	r, err := e.resolveReminder(ctx, cmd.Selector)
	if err != nil {
		return Result{}, err
	}
	minutes := cmd.Minutes
	if minutes == 0 {
		minutes = e.opts.SnoozeMinutes
	}
	updated, err := e.poller.Snooze(ctx, r.ID, minutes, e.now())
	if err != nil {
		return Result{}, err
	}
	return Result{
		Reminder: &updated,
		Message:  fmt.Sprintf("Snoozed %q until %s", updated.Title, updated.TriggerAt.In(e.opts.Location).Format(clockLayout)),
	}, nil
}

func (e *Engine) toggleReminder(ctx context.Context, cmd commands.Command) (Result, error) {
	r, err := e.resolveReminder(ctx, cmd.Selector)
	if err != nil {
		return Result{}, err
	}
	updated, err := e.poller.Toggle(ctx, r.ID, cmd.Active, e.now())
	if err != nil {
		return Result{}, err
	}
	state := "paused"
	if updated.Active {
		state = "active"
	}
	return Result{Reminder: &updated, Message: fmt.Sprintf("Reminder %q is %s", updated.Title, state)}, nil
}

func (e *Engine) deleteReminder(ctx context.Context, cmd commands.Command) (Result, error) {
	r, err := e.resolveReminder(ctx, cmd.Selector)
	if err != nil {
		return Result{}, err
	}
	if err := e.poller.Delete(ctx, r.ID); err != nil {
		return Result{}, err
	}
	return Result{Deleted: []string{r.ID}, Message: fmt.Sprintf("Deleted reminder %q", r.Title)}, nil
}

func (e *Engine) markDelivered(ctx context.Context, cmd commands.Command) (Result, error) {
	if len(cmd.IDs) == 0 {
		return Result{}, invalid("no reminder ids given")
	}
	if err := e.poller.MarkDelivered(ctx, e.now(), cmd.IDs...); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("Marked %d reminder(s) delivered", len(cmd.IDs))}, nil
}
