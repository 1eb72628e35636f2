// Package recurrence turns weekly series descriptions into concrete occurrences.
package recurrence

import (
	"github.com/sandeepkv93/schedd/internal/model"
)

// Expand lists the occurrences of spec in chronological order. A non-zero
// horizon truncates the series after that date; model.MaxOccurrences always
// bounds it.
func Expand(spec model.RecurrenceSpec, horizon model.Date) ([]model.Occurrence, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	first, ok := firstMatch(spec)
	if !ok {
		return nil, nil
	}

	end := (spec.Start + spec.Duration) % model.MinutesPerDay
	limit := model.MaxOccurrences
	if spec.Count > 0 {
		limit = spec.Count
	}

	out := make([]model.Occurrence, 0, min(limit, 16))
	step := 7 * spec.Interval
	for cycle := first; ; cycle = cycle.AddDays(step) {
		for offset := 0; offset < 7; offset++ {
			d := cycle.AddDays(offset)
			if !spec.Has(d.Weekday()) {
				continue
			}
			if pastEnd(spec, horizon, d) {
				return out, nil
			}
			out = append(out, model.Occurrence{
				Anchor: d,
				Start:  spec.Start,
				End:    end,
				Title:  spec.Title,
			})
			if len(out) == limit {
				return out, nil
			}
		}
	}
}

func firstMatch(spec model.RecurrenceSpec) (model.Date, bool) {
	d := spec.Earliest()
	for i := 0; i < 7; i++ {
		if spec.Has(d.Weekday()) {
			return d, true
		}
		d = d.AddDays(1)
	}
	return model.Date{}, false
}

func pastEnd(spec model.RecurrenceSpec, horizon, d model.Date) bool {
	switch {
	case spec.Until != nil && d.After(*spec.Until):
		return true
	case spec.Range != nil && d.After(spec.Range.To):
		return true
	case !horizon.IsZero() && d.After(horizon):
		return true
	}
	return false
}
