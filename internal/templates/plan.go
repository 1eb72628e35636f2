package templates

import (
	"fmt"
	"sort"

	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/model"
)

const (
	DefaultGranularity = 5
	defaultWindow      = "morning"
)

// DefaultWorkHours bounds every windowed step.
var DefaultWorkHours = freeslot.Window{Start: 8 * 60, End: 18 * 60}

type PlanOptions struct {
	WorkHours   freeslot.Window
	Granularity int
}

// Plan is the result of placing a template's steps.
type Plan struct {
	Template string             `json:"template"`
	Blocks   []model.Occurrence `json:"blocks"`
	Unplaced []Step             `json:"unplaced,omitempty"`
}

// Expand places the named template's steps relative to anchor. busy holds
// appointments already on the calendar; placed blocks, including their
// buffers, are added to it as the plan grows.
func (l *Library) Expand(name string, anchor model.Date, busy []model.TimeInterval, opts PlanOptions) (Plan, error) {
	t, ok := l.Get(name)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q (have %v)", ErrUnknownTemplate, name, l.Names())
	}
	if opts.WorkHours == (freeslot.Window{}) {
		opts.WorkHours = DefaultWorkHours
	}
	if opts.Granularity <= 0 {
		opts.Granularity = DefaultGranularity
	}

	plan := Plan{Template: t.Name}
	taken := append([]model.TimeInterval(nil), busy...)
	for _, s := range t.Steps {
		d := anchor.AddDays(s.DayOffset)
		start, ok := place(s, d, taken, opts)
		if !ok {
			plan.Unplaced = append(plan.Unplaced, s)
			continue
		}
		taken = append(taken, model.TimeInterval{Date: d, Start: start - s.BufferBefore, End: start + s.Duration + s.BufferAfter})
		plan.Blocks = append(plan.Blocks, occurrence(t, s, d, start))
	}

	sort.SliceStable(plan.Blocks, func(i, j int) bool {
		if plan.Blocks[i].Anchor != plan.Blocks[j].Anchor {
			return plan.Blocks[i].Anchor.Before(plan.Blocks[j].Anchor)
		}
		return plan.Blocks[i].Start < plan.Blocks[j].Start
	})
	return plan, nil
}

// place returns the start minute of s on d. A pinned step that collides is
// nudged forward within work hours; if nothing fits it keeps its pinned time
// and the bulk insert decides. A windowed step tries its window clipped to
// work hours, then the whole of work hours.
func place(s Step, d model.Date, taken []model.TimeInterval, opts PlanOptions) (int, bool) {
	total := s.BufferBefore + s.Duration + s.BufferAfter
	if s.At != "" {
		at, _ := model.ParseClock(s.At)
		if at-s.BufferBefore < 0 || at+s.Duration+s.BufferAfter > model.MinutesPerDay {
			return 0, false
		}
		block := model.TimeInterval{Date: d, Start: at - s.BufferBefore, End: at + s.Duration + s.BufferAfter}
		if !collides(block, taken) {
			return at, true
		}
		nudge := freeslot.Window{Start: block.Start, End: opts.WorkHours.End}
		if nudge.Start < nudge.End {
			if span, ok := freeslot.Fit(taken, d, nudge, total, opts.Granularity); ok {
				return span.Start + s.BufferBefore, true
			}
		}
		return at, true
	}

	name := s.Window
	if name == "" {
		name = defaultWindow
	}
	w, err := freeslot.ParseWindow(name)
	if err != nil {
		return 0, false
	}
	clipped := freeslot.Window{Start: max(w.Start, opts.WorkHours.Start), End: min(w.End, opts.WorkHours.End)}
	if clipped.Start < clipped.End {
		if span, ok := freeslot.Fit(taken, d, clipped, total, opts.Granularity); ok {
			return span.Start + s.BufferBefore, true
		}
	}
	if span, ok := freeslot.Fit(taken, d, opts.WorkHours, total, opts.Granularity); ok {
		return span.Start + s.BufferBefore, true
	}
	return 0, false
}

func collides(block model.TimeInterval, taken []model.TimeInterval) bool {
	for _, t := range taken {
		if block.Overlaps(t) {
			return true
		}
	}
	return false
}

func occurrence(t Template, s Step, d model.Date, start int) model.Occurrence {
	return model.Occurrence{
		Anchor:      d,
		Start:       start,
		End:         (start + s.Duration) % model.MinutesPerDay,
		Title:       s.Title,
		Description: s.Notes,
		Label:       firstNonEmpty(s.Label, t.Label),
		Location:    firstNonEmpty(s.Location, t.Location),
		Modality:    model.Modality(firstNonEmpty(string(s.Modality), string(t.Modality))),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
