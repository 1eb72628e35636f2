package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	"github.com/sandeepkv93/schedd/internal/model"
)

const (
	ProductID    = "-//schedd//schedd//EN"
	uidSuffix    = "@schedd"
	propSeries   = ical.ComponentProperty("X-SCHEDD-SERIES")
	propModality = ical.ComponentProperty("X-SCHEDD-MODALITY")
)

// Export writes appts as a VCALENDAR. The two rows of a cross-midnight
// booking become one VEVENT.
func Export(w io.Writer, appts []model.Appointment, loc *time.Location, now time.Time) error {
	if loc == nil {
		loc = time.Local
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	ids := make(map[string]bool, len(appts))
	seconds := make(map[string]model.Appointment)
	for _, a := range appts {
		ids[a.ID] = true
		if a.LinkedID != "" {
			seconds[a.LinkedID] = a
		}
	}
	for _, a := range appts {
		if a.LinkedID != "" && ids[a.LinkedID] {
			continue
		}
		span := a.Span()
		if second, ok := seconds[a.ID]; ok {
			span.End = second.End % model.MinutesPerDay
		}
		addEvent(cal, a, span, loc, now)
	}
	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return errors.Wrap(err, "ics: write calendar")
	}
	return nil
}

func addEvent(cal *ical.Calendar, a model.Appointment, span model.Span, loc *time.Location, now time.Time) {
	ev := cal.AddEvent(a.ID + uidSuffix)
	ev.SetDtStampTime(now.UTC())
	ev.SetCreatedTime(a.CreatedAt.UTC())
	ev.SetModifiedAt(a.UpdatedAt.UTC())
	ev.SetSummary(a.Title)
	if span.Start == 0 && span.End == 0 {
		ev.SetAllDayStartAt(span.Date.In(loc))
		ev.SetAllDayEndAt(span.Date.AddDays(1).In(loc))
	} else {
		ev.SetStartAt(span.StartTime(loc))
		ev.SetEndAt(span.EndTime(loc))
	}
	if a.Description != "" {
		ev.SetDescription(a.Description)
	}
	if a.Location != "" {
		ev.SetLocation(a.Location)
	}
	if a.Label != "" {
		ev.SetProperty(ical.ComponentPropertyCategories, a.Label)
	}
	if a.SeriesID != "" {
		ev.SetProperty(propSeries, a.SeriesID)
	}
	if a.Modality != model.ModalityNone {
		ev.SetProperty(propModality, string(a.Modality))
	}
}
