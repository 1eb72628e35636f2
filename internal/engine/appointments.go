package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/conflict"
	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/match"
	"github.com/sandeepkv93/schedd/internal/model"
	"github.com/sandeepkv93/schedd/internal/storage"
	"github.com/sandeepkv93/schedd/internal/templates"
)

const defaultTitle = "Appointment"

var (
	earliest = model.NewDate(1, 1, 1)
	latest   = model.NewDate(9999, 12, 31)
)

// booking is a stored appointment with the second half of a cross-midnight pair.
type booking struct {
	first  model.Appointment
	second *model.Appointment
}

func (b booking) span() model.Span {
	end := b.first.End % model.MinutesPerDay
	if b.second != nil {
		end = b.second.End % model.MinutesPerDay
	}
	return model.Span{Date: b.first.Date, Start: b.first.Start, End: end}
}

func (b booking) rows() []model.Appointment {
	if b.second == nil {
		return []model.Appointment{b.first}
	}
	return []model.Appointment{b.first, *b.second}
}

func (b booking) ids() []string {
	out := []string{b.first.ID}
	if b.second != nil {
		out = append(out, b.second.ID)
	}
	return out
}

func (e *Engine) booking(ctx context.Context, repo storage.Repository, a model.Appointment) (booking, error) {
	if a.LinkedID != "" {
		first, err := repo.GetAppointment(ctx, a.LinkedID)
		if errors.Is(err, storage.ErrNotFound) {
			return booking{first: a}, nil
		}
		if err != nil {
			return booking{}, err
		}
		return booking{first: first, second: &a}, nil
	}
	linked, err := repo.LinkedAppointments(ctx, a.ID)
	if err != nil {
		return booking{}, err
	}
	b := booking{first: a}
	if len(linked) > 0 {
		b.second = &linked[0]
	}
	return b, nil
}

// resolve picks exactly one booking for sel.
func (e *Engine) resolve(ctx context.Context, repo storage.Repository, sel commands.Selector) (booking, error) {
	if sel.ID != "" {
		a, err := repo.GetAppointment(ctx, sel.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return booking{}, commands.Errorf(commands.ErrCodeNotFound, "appointment %s not found", sel.ID)
		}
		if err != nil {
			return booking{}, err
		}
		return e.booking(ctx, repo, a)
	}
	matches, err := e.candidates(ctx, repo, sel)
	if err != nil {
		return booking{}, err
	}
	if len(matches) != 1 {
		return booking{}, commands.Ambiguous(len(matches), sel)
	}
	return e.booking(ctx, repo, matches[0])
}

// candidates lists first halves selected by title, date and start.
func (e *Engine) candidates(ctx context.Context, repo storage.Repository, sel commands.Selector) ([]model.Appointment, error) {
	if sel.Title == "" && sel.Date == nil {
		return nil, invalid("selector needs an id, a title or a date")
	}
	today := e.today()
	from, to := today.AddDays(-searchBackDays), today.AddDays(searchAheadDays)
	if sel.Date != nil {
		from, to = *sel.Date, *sel.Date
	}

	var list []model.Appointment
	var err error
	if sel.Title != "" {
		list, err = repo.FindByTitle(ctx, sel.Title, from, to)
	} else {
		list, err = repo.ListAppointments(ctx, from, to)
	}
	if err != nil {
		return nil, err
	}

	out := list[:0:0]
	for _, a := range list {
		if a.LinkedID != "" {
			continue
		}
		if sel.Start != nil && a.Start != *sel.Start {
			continue
		}
		out = append(out, a)
	}
	if len(out) > 1 && sel.Title != "" {
		var exact []model.Appointment
		for _, a := range out {
			if match.Normalize(a.Title) == match.Normalize(sel.Title) {
				exact = append(exact, a)
			}
		}
		if len(exact) == 1 {
			return exact, nil
		}
	}
	return out, nil
}

func (e *Engine) occurrence(cmd commands.Command, span model.Span) model.Occurrence {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		title = defaultTitle
	}
	return model.Occurrence{
		Anchor:      span.Date,
		Start:       span.Start,
		End:         span.End,
		Title:       title,
		Description: cmd.Description,
		Location:    cmd.Location,
		Modality:    cmd.Modality,
		Label:       cmd.Label,
		Timezone:    cmd.Timezone,
	}
}

// insertChecked inserts occ unless it collides, in which case the conflict
// error carries proposals.
func (e *Engine) insertChecked(ctx context.Context, tx storage.Repository, occ model.Occurrence) ([]model.Appointment, error) {
	det := e.detector(tx)
	span := occ.Span()
	conflicts, err := det.Check(ctx, span)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		proposals, err := det.Propose(ctx, span, e.opts.ProposalCount)
		if err != nil {
			return nil, err
		}
		return nil, commands.Conflict(conflicts, proposals)
	}
	return tx.InsertOccurrence(ctx, occ)
}

func (e *Engine) create(ctx context.Context, cmd commands.Command) (Result, error) {
	if cmd.Span == nil {
		return Result{}, invalid("create needs a date and a start time")
	}
	span := *cmd.Span
	if err := span.Validate(); err != nil {
		return Result{}, invalid("%v", err)
	}
	occ := e.occurrence(cmd, span)

	var res Result
	err := e.store.Atomic(ctx, func(tx storage.Repository) error {
		created, err := e.insertChecked(ctx, tx, occ)
		if err != nil {
			return err
		}
		res.Created = created
		if cmd.Lead != nil {
			r, err := tx.CreateReminder(ctx, model.Reminder{
				AppointmentID: created[0].ID,
				Title:         created[0].Title,
				LeadMinutes:   *cmd.Lead,
				Channel:       channelOr(cmd.Channel),
				Active:        true,
			})
			if err != nil {
				return err
			}
			res.Reminder = &r
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Message = fmt.Sprintf("Created %q on %s", occ.Title, span)
	return res, nil
}

// createConstraint books the first free slot of the requested length.
func (e *Engine) createConstraint(ctx context.Context, cmd commands.Command) (Result, error) {
	date := e.today()
	if cmd.Date != nil {
		date = *cmd.Date
	}
	duration := e.orDefault(cmd.Duration)
	window := e.opts.WorkHours
	if cmd.Window != nil {
		window = *cmd.Window
	}
	if date == e.today() && window.Start < window.End {
		now := e.now()
		window.Start = max(window.Start, now.Hour()*60+now.Minute())
	}

	var res Result
	err := e.store.Atomic(ctx, func(tx storage.Repository) error {
		appts, err := tx.ListAppointments(ctx, date, date.AddDays(1))
		if err != nil {
			return err
		}
		span, ok := freeslot.Fit(freeslot.Busy(appts), date, window, duration, templates.DefaultGranularity)
		if !ok {
			proposals, err := e.detector(tx).Propose(ctx, model.SpanFor(date, window.Start%model.MinutesPerDay, duration), e.opts.ProposalCount)
			if err != nil {
				return err
			}
			return &commands.CommandError{
				Code:      commands.ErrCodeSchedulingConflict,
				Message:   fmt.Sprintf("no free %d-minute slot in %s on %s", duration, window, date),
				Proposals: proposals,
			}
		}
		created, err := tx.InsertOccurrence(ctx, e.occurrence(cmd, span))
		if err != nil {
			return err
		}
		res.Created = created
		res.Message = fmt.Sprintf("Booked %s", span)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (e *Engine) rename(ctx context.Context, cmd commands.Command) (Result, error) {
	if cmd.NewTitle == "" {
		return Result{}, invalid("rename needs a new title")
	}
	var res Result
	err := e.store.Atomic(ctx, func(tx storage.Repository) error {
		b, err := e.resolve(ctx, tx, cmd.Selector)
		if err != nil {
			return err
		}
		res.Updated, err = retitle(ctx, tx, b.rows(), cmd.NewTitle)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	res.Message = fmt.Sprintf("Renamed to %q", cmd.NewTitle)
	return res, nil
}

func retitle(ctx context.Context, tx storage.Repository, rows []model.Appointment, title string) ([]model.Appointment, error) {
	out := make([]model.Appointment, 0, len(rows))
	for _, a := range rows {
		a.Title = title
		if err := tx.UpdateAppointment(ctx, a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// target computes where a booking moves. A shift keeps the original
// duration; otherwise an explicit duration wins, then start and end, then
// the original length.
func target(cmd commands.Command, orig model.Span) (model.Span, bool) {
	dur := orig.Duration()
	if cmd.ShiftBy != 0 {
		return spanFromAbsolute(orig.Date, orig.Start+cmd.ShiftBy, dur), true
	}
	if cmd.Duration > 0 && cmd.End == nil {
		dur = cmd.Duration
	}
	if cmd.Date == nil && cmd.Start == nil && cmd.End == nil {
		return model.Span{}, false
	}
	date := orig.Date
	if cmd.Date != nil {
		date = *cmd.Date
	}
	switch {
	case cmd.Start != nil && cmd.End != nil:
		return model.Span{Date: date, Start: *cmd.Start, End: *cmd.End}, true
	case cmd.Start != nil:
		return model.SpanFor(date, *cmd.Start, dur), true
	case cmd.End != nil:
		end := *cmd.End
		if end == 0 {
			end = model.MinutesPerDay
		}
		return spanFromAbsolute(date, end-dur, dur), true
	default:
		return model.SpanFor(date, orig.Start, dur), true
	}
}

// spanFromAbsolute anchors minute, which may fall outside 0..1439, on the
// right day relative to d.
func spanFromAbsolute(d model.Date, minute, duration int) model.Span {
	days := minute / model.MinutesPerDay
	if minute < 0 && minute%model.MinutesPerDay != 0 {
		days--
	}
	return model.SpanFor(d.AddDays(days), minute-days*model.MinutesPerDay, duration)
}

func (e *Engine) reschedule(ctx context.Context, cmd commands.Command) (Result, error) {
	var res Result
	err := e.store.Atomic(ctx, func(tx storage.Repository) error {
		b, err := e.resolve(ctx, tx, cmd.Selector)
		if err != nil {
			return err
		}
		to, ok := target(cmd, b.span())
		if !ok {
			if cmd.NewTitle == "" {
				return invalid("reschedule needs a new date, time or shift")
			}
			res.Updated, err = retitle(ctx, tx, b.rows(), cmd.NewTitle)
			return err
		}
		if err := to.Validate(); err != nil {
			return invalid("%v", err)
		}

		det := e.detector(tx)
		conflicts, err := det.Check(ctx, to, b.ids()...)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			proposals, err := det.Propose(ctx, to, e.opts.ProposalCount, b.ids()...)
			if err != nil {
				return err
			}
			return commands.Conflict(conflicts, proposals)
		}
		if cmd.NewTitle != "" {
			b.first.Title = cmd.NewTitle
			if b.second != nil {
				b.second.Title = cmd.NewTitle
			}
		}
		res.Updated, err = move(ctx, tx, b, to)
		res.Message = fmt.Sprintf("Moved %q to %s", b.first.Title, to)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// move rewrites a booking onto to, creating or removing the second half
// when midnight crossing changes.
func move(ctx context.Context, tx storage.Repository, b booking, to model.Span) ([]model.Appointment, error) {
	segs := to.Segments()
	first := b.first
	first.Date, first.Start, first.End = segs[0].Date, segs[0].Start, segs[0].End
	if err := tx.UpdateAppointment(ctx, first); err != nil {
		return nil, err
	}
	out := []model.Appointment{first}

	switch {
	case len(segs) == 2 && b.second != nil:
		second := *b.second
		second.Date, second.Start, second.End = segs[1].Date, segs[1].Start, segs[1].End
		if err := tx.UpdateAppointment(ctx, second); err != nil {
			return nil, err
		}
		out = append(out, second)
	case len(segs) == 2:
		second := first
		second.ID = ""
		second.CreatedAt = first.UpdatedAt
		second.LinkedID = first.ID
		second.Date, second.Start, second.End = segs[1].Date, segs[1].Start, segs[1].End
		created, err := tx.CreateAppointment(ctx, second)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	case b.second != nil:
		if err := tx.DeleteAppointment(ctx, b.second.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Engine) delete(ctx context.Context, cmd commands.Command) (Result, error) {
	sel := cmd.Selector
	bulk := sel.ID == "" && (sel.All || cmd.Range != nil)

	var res Result
	err := e.store.Atomic(ctx, func(tx storage.Repository) error {
		var targets []booking
		if bulk {
			rg := e.scope(cmd.Range, sel.Date)
			list, err := tx.ListAppointments(ctx, rg.From, rg.To)
			if err != nil {
				return err
			}
			for _, a := range list {
				if a.LinkedID != "" {
					continue
				}
				if sel.Title != "" && !match.Title(sel.Title, a.Title) {
					continue
				}
				if sel.Start != nil && a.Start != *sel.Start {
					continue
				}
				b, err := e.booking(ctx, tx, a)
				if err != nil {
					return err
				}
				targets = append(targets, b)
			}
		} else {
			b, err := e.resolve(ctx, tx, sel)
			if err != nil {
				return err
			}
			targets = []booking{b}
		}

		for _, b := range targets {
			for _, id := range b.ids() {
				if err := tx.DeleteAppointment(ctx, id); err != nil {
					return err
				}
				res.Deleted = append(res.Deleted, id)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if len(res.Deleted) == 0 {
		res.Message = "Nothing matched; no appointments deleted"
	} else {
		res.Message = fmt.Sprintf("Deleted %d appointment(s)", len(res.Deleted))
	}
	return res, nil
}

// scope falls back from an explicit range to a single date to today.
func (e *Engine) scope(rg *model.DateRange, date *model.Date) model.DateRange {
	switch {
	case rg != nil:
		return *rg
	case date != nil:
		return model.DateRange{From: *date, To: *date}
	default:
		today := e.today()
		return model.DateRange{From: today, To: today}
	}
}

func (e *Engine) retrieve(ctx context.Context, cmd commands.Command) (Result, error) {
	rg := e.scope(cmd.Range, nil)
	list, err := e.store.QueryAppointments(ctx, storage.AppointmentFilter{From: &rg.From, To: &rg.To})
	if err != nil {
		return Result{}, err
	}
	out := list[:0:0]
	for _, a := range list {
		if cmd.Title != "" && !match.Title(cmd.Title, a.Title) {
			continue
		}
		if cmd.Window != nil && !inWindow(a, *cmd.Window) {
			continue
		}
		out = append(out, a)
	}
	if cmd.Limit > 0 && len(out) > cmd.Limit {
		out = out[:cmd.Limit]
	}
	res := Result{Appointments: out}
	if len(out) == 0 {
		res.Message = fmt.Sprintf("No appointments from %s to %s", rg.From, rg.To)
	}
	return res, nil
}

func inWindow(a model.Appointment, w freeslot.Window) bool {
	span := model.Span{Date: a.Date, Start: w.Start % model.MinutesPerDay, End: w.End % model.MinutesPerDay}
	for _, seg := range span.Segments() {
		if seg.Overlaps(a.Interval()) {
			return true
		}
	}
	return false
}

func (e *Engine) count(ctx context.Context, cmd commands.Command) (Result, error) {
	from, to := earliest, latest
	if cmd.Range != nil {
		from, to = cmd.Range.From, cmd.Range.To
	}
	var n int
	if cmd.Title != "" {
		list, err := e.store.FindByTitle(ctx, cmd.Title, from, to)
		if err != nil {
			return Result{}, err
		}
		n = len(list)
	} else {
		var err error
		if n, err = e.store.CountAppointments(ctx, from, to); err != nil {
			return Result{}, err
		}
	}
	return Result{Count: &n, Message: fmt.Sprintf("%d appointment(s)", n)}, nil
}

func (e *Engine) freeSlots(ctx context.Context, cmd commands.Command) (Result, error) {
	rg := e.scope(cmd.Range, nil)
	window := freeslot.FullDay
	if cmd.Window != nil {
		window = *cmd.Window
	}
	duration := cmd.Duration
	if duration <= 0 {
		duration = e.opts.MinFreeDuration
	}
	appts, err := e.store.ListAppointments(ctx, rg.From, rg.To.AddDays(1))
	if err != nil {
		return Result{}, err
	}
	slots := freeslot.Calculate(freeslot.Busy(appts), rg, window, duration)
	res := Result{FreeSlots: slots}
	if len(slots) == 0 {
		res.Message = fmt.Sprintf("No free %d-minute slot in %s", duration, window)
	}
	return res, nil
}

func (e *Engine) conflicts(ctx context.Context, cmd commands.Command) (Result, error) {
	rg := e.scope(cmd.Range, nil)
	appts, err := e.store.ListAppointments(ctx, rg.From, rg.To)
	if err != nil {
		return Result{}, err
	}
	pairs := conflict.PairsAmong(appts)
	res := Result{Conflicts: pairs}
	if len(pairs) == 0 {
		res.Message = "No overlapping appointments"
	}
	return res, nil
}

func channelOr(c model.Channel) model.Channel {
	if c == "" {
		return model.ChannelInApp
	}
	return c
}
