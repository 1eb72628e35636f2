package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/sandeepkv93/schedd/internal/model"
)

var toRRuleDay = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Option converts spec to an rrule option anchored in UTC.
func Option(spec model.RecurrenceSpec) rrule.ROption {
	days := make([]rrule.Weekday, 0, len(spec.Weekdays))
	for _, d := range spec.SortedWeekdays() {
		days = append(days, toRRuleDay[d])
	}
	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  spec.Interval,
		Byweekday: days,
		Dtstart:   spec.Earliest().At(spec.Start, time.UTC),
	}
	switch {
	case spec.Count > 0:
		opt.Count = spec.Count
	case spec.Until != nil:
		opt.Until = spec.Until.At(model.MinutesPerDay-1, time.UTC)
	case spec.Range != nil:
		opt.Until = spec.Range.To.At(model.MinutesPerDay-1, time.UTC)
	}
	return opt
}

// RRule renders the RFC 5545 RRULE value for spec.
func RRule(spec model.RecurrenceSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	opt := Option(spec)
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("recurrence: build rrule: %w", err)
	}
	return opt.RRuleString(), nil
}

// FromRRule builds a spec from an RRULE value. Only weekly rules are
// supported; a rule without BYDAY repeats on from's weekday.
func FromRRule(raw string, from model.Date, start, duration int, title string) (model.RecurrenceSpec, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "RRULE:")
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return model.RecurrenceSpec{}, fmt.Errorf("%w: %v", model.ErrInvalidRecurrence, err)
	}
	if opt.Freq != rrule.WEEKLY {
		return model.RecurrenceSpec{}, fmt.Errorf("%w: only weekly rules are supported", model.ErrInvalidRecurrence)
	}

	spec := model.RecurrenceSpec{
		Start:    start,
		Duration: duration,
		Interval: max(opt.Interval, 1),
		From:     from,
		Count:    opt.Count,
		Title:    title,
	}
	for i := range opt.Byweekday {
		// rrule numbers Monday as 0.
		spec.Weekdays = append(spec.Weekdays, time.Weekday((opt.Byweekday[i].Day()+1)%7))
	}
	if len(spec.Weekdays) == 0 {
		spec.Weekdays = []time.Weekday{from.Weekday()}
	}
	if !opt.Until.IsZero() {
		until := model.DateOf(opt.Until)
		spec.Until = &until
	}
	return spec, spec.Validate()
}
