package model

import (
	"errors"
	"testing"
	"time"
)

func validSpec() RecurrenceSpec {
	until := NewDate(2025, time.October, 15)
	return RecurrenceSpec{
		Weekdays: []time.Weekday{time.Thursday},
		Start:    19 * 60,
		Duration: 60,
		Interval: 1,
		From:     NewDate(2025, time.September, 1),
		Until:    &until,
		Title:    "Dance",
	}
}

func TestRecurrenceSpecValidateSuccess(t *testing.T) {
	if err := validSpec().Validate(); err != nil {
		t.Fatalf("expected valid spec, got %v", err)
	}
}

func TestRecurrenceSpecValidateFailures(t *testing.T) {
	rng := DateRange{From: NewDate(2025, time.October, 1), To: NewDate(2025, time.October, 31)}
	cases := []struct {
		name   string
		mutate func(*RecurrenceSpec)
		want   error
	}{
		{"no weekdays", func(s *RecurrenceSpec) { s.Weekdays = nil }, ErrNoWeekdays},
		{"zero duration", func(s *RecurrenceSpec) { s.Duration = 0 }, ErrDuration},
		{"full day duration", func(s *RecurrenceSpec) { s.Duration = MinutesPerDay }, ErrDuration},
		{"zero interval", func(s *RecurrenceSpec) { s.Interval = 0 }, ErrInterval},
		{"no termination", func(s *RecurrenceSpec) { s.Until = nil }, ErrTermination},
		{"two terminations", func(s *RecurrenceSpec) { s.Count = 3 }, ErrTermination},
		{"three terminations", func(s *RecurrenceSpec) { s.Count = 3; s.Range = &rng }, ErrTermination},
		{"count too large", func(s *RecurrenceSpec) { s.Until = nil; s.Count = MaxOccurrences + 1 }, ErrInvalidRecurrence},
		{"negative count", func(s *RecurrenceSpec) { s.Until = nil; s.Count = -2 }, ErrInvalidRecurrence},
		{"duplicate weekday", func(s *RecurrenceSpec) { s.Weekdays = []time.Weekday{time.Monday, time.Monday} }, ErrInvalidRecurrence},
		{"missing title", func(s *RecurrenceSpec) { s.Title = " " }, ErrInvalidRecurrence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := validSpec()
			tc.mutate(&spec)
			err := spec.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRecurrenceSpecEarliestPrefersLaterRangeStart(t *testing.T) {
	spec := validSpec()
	spec.Until = nil
	spec.Range = &DateRange{From: NewDate(2025, time.October, 1), To: NewDate(2025, time.October, 31)}
	if got := spec.Earliest(); got != spec.Range.From {
		t.Fatalf("expected range start, got %s", got)
	}
	spec.From = NewDate(2025, time.October, 10)
	if got := spec.Earliest(); got != spec.From {
		t.Fatalf("expected from date, got %s", got)
	}
}
