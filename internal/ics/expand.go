package ics

import (
	"log/slog"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"github.com/sandeepkv93/schedd/internal/model"
)

type ExpandOptions struct {
	Location *time.Location
	// From and To bound the occurrences, both inclusive.
	From, To model.Date
	// MaxPerEvent caps one event's instances; zero means model.MaxOccurrences.
	MaxPerEvent int
	Logger      *slog.Logger
}

// Report counts events Expand could not turn into occurrences.
type Report struct {
	BadRules    []string
	Unsupported []string
	Truncated   []string
}

// Expand turns parsed events into occurrences inside [From, To]. RRULEs are
// expanded with their EXDATEs; overrides replace the instance they name.
// Instants and events longer than a day are reported as unsupported.
func Expand(events []Event, opts ExpandOptions) ([]model.Occurrence, Report, error) {
	var rep Report
	if opts.To.Before(opts.From) {
		return nil, rep, errors.New("ics: expand range ends before it starts")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxPerEvent <= 0 {
		opts.MaxPerEvent = model.MaxOccurrences
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	lo := opts.From.In(opts.Location)
	hi := opts.To.AddDays(1).In(opts.Location)

	overrides := make(map[string][]Event)
	var bases []Event
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	var out []model.Occurrence
	emit := func(ev Event, start, end time.Time) {
		if !start.Before(hi) || start.Before(lo) && !end.After(lo) {
			return
		}
		occ, ok := occurrence(ev, start, end, opts.Location)
		if !ok {
			rep.Unsupported = append(rep.Unsupported, ev.UID)
			return
		}
		out = append(out, occ)
	}

	for _, ev := range bases {
		if ev.RRule == "" {
			emit(ev, ev.Start, ev.End)
			continue
		}
		starts, err := instances(ev, lo, hi)
		if err != nil {
			opts.Logger.Warn("ics rrule rejected", "uid", ev.UID, "rrule", ev.RRule, "err", err)
			rep.BadRules = append(rep.BadRules, ev.UID)
			continue
		}
		if len(starts) > opts.MaxPerEvent {
			starts = starts[:opts.MaxPerEvent]
			rep.Truncated = append(rep.Truncated, ev.UID)
		}
		length := ev.End.Sub(ev.Start)
		for _, s := range starts {
			if o, ok := overrideFor(overrides[ev.UID], s); ok {
				emit(o, o.Start, o.End)
				continue
			}
			emit(ev, s, s.Add(length))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Anchor.Compare(out[j].Anchor); c != 0 {
			return c < 0
		}
		return out[i].Start < out[j].Start
	})
	return out, rep, nil
}

func instances(ev Event, lo, hi time.Time) ([]time.Time, error) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, errors.Wrap(err, "ics: parse rrule")
	}
	r.DTStart(ev.Start)
	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}
	return set.Between(lo.In(ev.Start.Location()), hi.In(ev.Start.Location()), true), nil
}

func overrideFor(list []Event, start time.Time) (Event, bool) {
	for _, o := range list {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

// occurrence maps a concrete instance onto the local calendar. All-day
// events fill their whole date.
func occurrence(ev Event, start, end time.Time, loc *time.Location) (model.Occurrence, bool) {
	occ := model.Occurrence{
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Label:       ev.Categories,
		Modality:    ev.Modality,
		Rule:        ev.RRule,
	}
	if occ.Title == "" {
		occ.Title = "Imported event"
	}
	if ev.AllDay {
		occ.Anchor = model.DateOf(start)
		return occ, end.Sub(start) <= 24*time.Hour
	}
	s := start.In(loc)
	minutes := int(end.Sub(start) / time.Minute)
	if minutes <= 0 || minutes > model.MinutesPerDay {
		return occ, false
	}
	occ.Anchor = model.DateOf(s)
	occ.Start = s.Hour()*60 + s.Minute()
	occ.End = (occ.Start + minutes) % model.MinutesPerDay
	return occ, true
}
