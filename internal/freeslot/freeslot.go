// Package freeslot computes the gaps between busy intervals.
package freeslot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sandeepkv93/schedd/internal/model"
)

// Window is a daily range in minutes of day. End <= Start crosses midnight.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

var FullDay = Window{Start: 0, End: model.MinutesPerDay}

// Named windows used by plans and constraint bookings.
var Named = map[string]Window{
	"morning":   {Start: 8 * 60, End: 12 * 60},
	"afternoon": {Start: 12 * 60, End: 17 * 60},
	"evening":   {Start: 17 * 60, End: 21 * 60},
	"workday":   {Start: 9 * 60, End: 17 * 60},
	"anytime":   FullDay,
}

// ParseWindow accepts a named window or "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if w, ok := Named[s]; ok {
		return w, nil
	}
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return Window{}, fmt.Errorf("freeslot: invalid window %q", s)
	}
	start, err := model.ParseClock(strings.TrimSpace(from))
	if err != nil {
		return Window{}, err
	}
	end, err := model.ParseClock(strings.TrimSpace(to))
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}

func (w Window) on(d model.Date) model.Span {
	return model.Span{Date: d, Start: w.Start % model.MinutesPerDay, End: w.End % model.MinutesPerDay}
}

func (w Window) String() string {
	return model.FormatClock(w.Start) + "-" + model.FormatClock(w.End)
}

// Busy flattens appointments into their intervals.
func Busy(appts []model.Appointment) []model.TimeInterval {
	out := make([]model.TimeInterval, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.Interval())
	}
	return out
}

// Calculate returns, for every day in days, the maximal gaps inside window
// that are at least minDuration long. A cross-midnight window is evaluated
// as two linked segments and a gap spanning midnight is returned whole.
func Calculate(busy []model.TimeInterval, days model.DateRange, window Window, minDuration int) []model.FreeSlot {
	byDate := make(map[model.Date][]model.TimeInterval)
	for _, b := range busy {
		byDate[b.Date] = append(byDate[b.Date], b)
	}

	var out []model.FreeSlot
	for _, d := range days.Days() {
		for _, span := range daySlots(byDate, window.on(d)) {
			if span.Duration() >= minDuration && span.Duration() > 0 {
				out = append(out, model.FreeSlot{Span: span})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out
}

// Fit returns the earliest span of duration inside window on d that avoids
// busy, with the start aligned to granularity minutes.
func Fit(busy []model.TimeInterval, d model.Date, window Window, duration, granularity int) (model.Span, bool) {
	if granularity <= 0 {
		granularity = 1
	}
	for _, slot := range Calculate(busy, model.DateRange{From: d, To: d}, window, duration) {
		start := (slot.Start + granularity - 1) / granularity * granularity
		if start >= model.MinutesPerDay {
			continue
		}
		if slot.Duration()-(start-slot.Start) >= duration {
			return model.SpanFor(slot.Date, start, duration), true
		}
	}
	return model.Span{}, false
}

func daySlots(byDate map[model.Date][]model.TimeInterval, window model.Span) []model.Span {
	segs := window.Segments()
	first := gaps(segs[0], byDate[segs[0].Date])
	if len(segs) == 1 {
		return toSpans(first)
	}
	second := gaps(segs[1], byDate[segs[1].Date])
	if n := len(first); n > 0 && len(second) > 0 &&
		first[n-1].End == model.MinutesPerDay && second[0].Start == 0 {
		joined := model.Span{Date: first[n-1].Date, Start: first[n-1].Start, End: second[0].End % model.MinutesPerDay}
		out := toSpans(first[:n-1])
		out = append(out, joined)
		return append(out, toSpans(second[1:])...)
	}
	return append(toSpans(first), toSpans(second)...)
}

// gaps returns the complement of busy inside seg.
func gaps(seg model.TimeInterval, busy []model.TimeInterval) []model.TimeInterval {
	clipped := make([]model.TimeInterval, 0, len(busy))
	for _, b := range busy {
		if !b.Overlaps(seg) {
			continue
		}
		clipped = append(clipped, model.TimeInterval{
			Date:  seg.Date,
			Start: max(b.Start, seg.Start),
			End:   min(b.End, seg.End),
		})
	}
	sort.Slice(clipped, func(i, j int) bool { return clipped[i].Start < clipped[j].Start })

	var out []model.TimeInterval
	cursor := seg.Start
	for _, b := range clipped {
		if b.Start > cursor {
			out = append(out, model.TimeInterval{Date: seg.Date, Start: cursor, End: b.Start})
		}
		cursor = max(cursor, b.End)
	}
	if cursor < seg.End {
		out = append(out, model.TimeInterval{Date: seg.Date, Start: cursor, End: seg.End})
	}
	return out
}

func toSpans(in []model.TimeInterval) []model.Span {
	out := make([]model.Span, 0, len(in))
	for _, g := range in {
		out = append(out, model.Span{Date: g.Date, Start: g.Start, End: g.End % model.MinutesPerDay})
	}
	return out
}
