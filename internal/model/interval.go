package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidInterval = errors.New("model: invalid time interval")

// TimeInterval is a single-day [Start, End) range in minutes of day.
type TimeInterval struct {
	Date  Date `json:"date"`
	Start int  `json:"start"`
	End   int  `json:"end"`
}

func (t TimeInterval) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInterval)
	}
	if t.Start < 0 || t.End > MinutesPerDay || t.Start >= t.End {
		return fmt.Errorf("%w: %s-%s", ErrInvalidInterval, FormatClock(t.Start), FormatClock(t.End))
	}
	return nil
}

func (t TimeInterval) Duration() int { return t.End - t.Start }

// Overlaps applies half-open semantics; touching endpoints do not overlap.
func (t TimeInterval) Overlaps(o TimeInterval) bool {
	if t.Date != o.Date {
		return false
	}
	return t.Start < o.End && o.Start < t.End
}

func (t TimeInterval) String() string {
	return fmt.Sprintf("%s %s-%s", t.Date, FormatClock(t.Start), FormatClock(t.End))
}

// Span is a requested range anchored on Date. End <= Start means the span
// crosses midnight into the following day.
type Span struct {
	Date  Date `json:"date"`
	Start int  `json:"start"`
	End   int  `json:"end"`
}

// SpanFor builds the span starting at start on d that lasts duration minutes.
func SpanFor(d Date, start, duration int) Span {
	return Span{Date: d, Start: start, End: (start + duration) % MinutesPerDay}
}

func (s Span) CrossesMidnight() bool {
	return s.End <= s.Start
}

// Segments returns the canonical one- or two-segment form of the span.
func (s Span) Segments() []TimeInterval {
	if !s.CrossesMidnight() {
		return []TimeInterval{{Date: s.Date, Start: s.Start, End: s.End}}
	}
	out := []TimeInterval{{Date: s.Date, Start: s.Start, End: MinutesPerDay}}
	if s.End > 0 {
		out = append(out, TimeInterval{Date: s.Date.AddDays(1), Start: 0, End: s.End})
	}
	return out
}

func (s Span) Duration() int {
	total := 0
	for _, seg := range s.Segments() {
		total += seg.Duration()
	}
	return total
}

func (s Span) Validate() error {
	if s.Start < 0 || s.Start >= MinutesPerDay || s.End < 0 || s.End > MinutesPerDay {
		return fmt.Errorf("%w: %s-%s", ErrInvalidInterval, FormatClock(s.Start), FormatClock(s.End))
	}
	for _, seg := range s.Segments() {
		if err := seg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Overlaps compares the two spans segment by segment.
func (s Span) Overlaps(o Span) bool {
	for _, a := range s.Segments() {
		for _, b := range o.Segments() {
			if a.Overlaps(b) {
				return true
			}
		}
	}
	return false
}

func (s Span) StartTime(loc *time.Location) time.Time {
	return s.Date.At(s.Start, loc)
}

func (s Span) EndTime(loc *time.Location) time.Time {
	return s.StartTime(loc).Add(time.Duration(s.Duration()) * time.Minute)
}

func (s Span) String() string {
	return fmt.Sprintf("%s %s-%s", s.Date, FormatClock(s.Start), FormatClock(s.End))
}

// FreeSlot is a span known to contain no existing appointment.
type FreeSlot struct {
	Span
}

// ConflictPair links a candidate with an existing appointment it overlaps.
type ConflictPair struct {
	Candidate Span        `json:"candidate"`
	Existing  Appointment `json:"existing"`
}
