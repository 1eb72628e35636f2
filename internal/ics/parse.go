// Package ics moves appointments in and out of iCalendar files.
package ics

import (
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	"github.com/sandeepkv93/schedd/internal/model"
)

// Event is a VEVENT reduced to what scheduling needs. Recurrences are kept
// raw and expanded by Expand.
type Event struct {
	UID         string
	Sequence    int
	Summary     string
	Description string
	Location    string
	Categories  string
	Modality    model.Modality

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time

	// RecurrenceID marks an override of one instance of UID.
	RecurrenceID *time.Time
}

// Parse reads every VEVENT from r. Events without a UID or a start are
// skipped; the count is returned alongside.
func Parse(r io.Reader, loc *time.Location) ([]Event, int, error) {
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, 0, errors.Wrap(err, "ics: parse calendar")
	}
	var out []Event
	skipped := 0
	for _, ve := range cal.Events() {
		ev, err := parseEvent(ve, loc)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, ev)
	}
	return out, skipped, nil
}

func parseEvent(ve *ical.VEvent, loc *time.Location) (Event, error) {
	var ev Event
	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || strings.TrimSpace(uid.Value) == "" {
		return ev, errors.New("ics: event without UID")
	}
	ev.UID = uid.Value
	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		ev.Sequence, _ = strconv.Atoi(strings.TrimSpace(p.Value))
	}
	ev.Summary = value(ve, ical.ComponentPropertySummary)
	ev.Description = value(ve, ical.ComponentPropertyDescription)
	ev.Location = value(ve, ical.ComponentPropertyLocation)
	ev.Categories = value(ve, ical.ComponentPropertyCategories)
	if m := model.Modality(value(ve, propModality)); m.IsValid() {
		ev.Modality = m
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.Errorf("ics: event %s has no DTSTART", ev.UID)
	}
	start, allDay, err := propTime(dtStart, loc)
	if err != nil {
		return ev, errors.Wrapf(err, "ics: event %s DTSTART", ev.UID)
	}
	ev.Start, ev.AllDay = start, allDay

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		if ev.End, _, err = propTime(dtEnd, loc); err != nil {
			return ev, errors.Wrapf(err, "ics: event %s DTEND", ev.UID)
		}
	} else if allDay {
		ev.End = ev.Start.AddDate(0, 0, 1)
	} else {
		ev.End = ev.Start
	}

	ev.RRule = value(ve, ical.ComponentPropertyRrule)
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, _, err := parseTime(part, paramLocation(p, loc)); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(propRecurrenceID); p != nil {
		if t, _, err := propTime(p, loc); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

const propRecurrenceID = ical.ComponentProperty("RECURRENCE-ID")

func value(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

func propTime(p *ical.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	return parseTime(p.Value, paramLocation(p, loc))
}

// paramLocation honours a TZID parameter that names a known zone.
func paramLocation(p *ical.IANAProperty, fallback *time.Location) *time.Location {
	if tz, ok := p.ICalParameters[string(ical.ParameterTzid)]; ok && len(tz) > 0 {
		if l, err := time.LoadLocation(tz[0]); err == nil {
			return l
		}
	}
	return fallback
}

// parseTime accepts UTC, floating and date-only forms.
func parseTime(v string, loc *time.Location) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		return t, false, err
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		return t, false, err
	default:
		t, err := time.ParseInLocation("20060102", v, loc)
		return t, true, err
	}
}
