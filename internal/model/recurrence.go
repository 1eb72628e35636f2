package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxOccurrences bounds a single expansion.
const MaxOccurrences = 100

var (
	ErrInvalidRecurrence = errors.New("model: invalid recurrence")
	ErrNoWeekdays        = fmt.Errorf("%w: weekday set is empty", ErrInvalidRecurrence)
	ErrDuration          = fmt.Errorf("%w: duration must be between 1 and 1439 minutes", ErrInvalidRecurrence)
	ErrTermination       = fmt.Errorf("%w: exactly one of count, until or range is required", ErrInvalidRecurrence)
	ErrInterval          = fmt.Errorf("%w: interval must be at least 1", ErrInvalidRecurrence)
)

// RecurrenceSpec describes a weekly series. Exactly one of Count, Until and
// Range terminates it.
type RecurrenceSpec struct {
	Weekdays []time.Weekday `json:"weekdays"`
	Start    int            `json:"start"`
	Duration int            `json:"duration"`
	Interval int            `json:"interval"`
	From     Date           `json:"from"`
	Count    int            `json:"count,omitempty"`
	Until    *Date          `json:"until,omitempty"`
	Range    *DateRange     `json:"range,omitempty"`
	Title    string         `json:"title"`
}

func (r RecurrenceSpec) Validate() error {
	if len(r.Weekdays) == 0 {
		return ErrNoWeekdays
	}
	seen := map[time.Weekday]bool{}
	for _, d := range r.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d", ErrInvalidRecurrence, d)
		}
		if seen[d] {
			return fmt.Errorf("%w: duplicate weekday %s", ErrInvalidRecurrence, d)
		}
		seen[d] = true
	}
	if r.Duration <= 0 || r.Duration >= MinutesPerDay {
		return ErrDuration
	}
	if r.Start < 0 || r.Start >= MinutesPerDay {
		return fmt.Errorf("%w: start %d out of range", ErrInvalidRecurrence, r.Start)
	}
	if r.Interval < 1 {
		return ErrInterval
	}
	modes := 0
	if r.Count != 0 {
		modes++
		if r.Count < 1 || r.Count > MaxOccurrences {
			return fmt.Errorf("%w: count %d outside 1..%d", ErrInvalidRecurrence, r.Count, MaxOccurrences)
		}
	}
	if r.Until != nil {
		modes++
	}
	if r.Range != nil {
		modes++
		if r.Range.To.Before(r.Range.From) {
			return fmt.Errorf("%w: range ends before it starts", ErrInvalidRecurrence)
		}
	}
	if modes != 1 {
		return ErrTermination
	}
	if r.From.IsZero() && r.Range == nil {
		return fmt.Errorf("%w: start date is required", ErrInvalidRecurrence)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRecurrence)
	}
	return nil
}

// SortedWeekdays returns the weekday set in Sunday-first order.
func (r RecurrenceSpec) SortedWeekdays() []time.Weekday {
	out := append([]time.Weekday(nil), r.Weekdays...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r RecurrenceSpec) Has(d time.Weekday) bool {
	for _, w := range r.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// Earliest is the first date the series may produce.
func (r RecurrenceSpec) Earliest() Date {
	if r.Range != nil && (r.From.IsZero() || r.Range.From.After(r.From)) {
		return r.Range.From
	}
	return r.From
}
