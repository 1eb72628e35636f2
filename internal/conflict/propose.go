package conflict

import (
	"context"
	"sort"
	"time"

	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/model"
)

// Options tunes proposal generation.
type Options struct {
	// Days is how far either side of the requested date proposals may go.
	Days int
	// Window bounds proposals within each day.
	Window freeslot.Window
	// Step is the spacing of candidate starts inside a free gap.
	Step int
	// Now, when set, suppresses proposals that start in the past.
	Now      func() time.Time
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.Days < 0 {
		o.Days = 0
	}
	if o.Window == (freeslot.Window{}) {
		o.Window = freeslot.FullDay
	}
	if o.Step <= 0 {
		o.Step = 30
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

type candidate struct {
	span     model.Span
	distance int
	offset   int
}

// Propose returns up to n free spans with the same duration as span, closest
// to the requested start first. The requested day is searched first; nearby
// days are only consulted when it yields fewer than n.
func (d *Detector) Propose(ctx context.Context, span model.Span, n int, exclude ...string) ([]model.Span, error) {
	if n <= 0 {
		return nil, nil
	}
	duration := span.Duration()
	origin := span.Date
	existing, err := d.load(ctx, origin.AddDays(-d.opts.Days), origin.AddDays(d.opts.Days+1), exclude)
	if err != nil {
		return nil, err
	}
	busy := freeslot.Busy(existing)

	seen := map[model.Span]bool{span: true}
	var found []candidate
	collect := func(day model.Date) {
		for _, slot := range freeslot.Calculate(busy, model.DateRange{From: day, To: day}, d.opts.Window, duration) {
			for _, c := range d.positions(slot, origin, span.Start, duration) {
				if seen[c.span] || d.inPast(c.span) {
					continue
				}
				seen[c.span] = true
				found = append(found, c)
			}
		}
	}

	collect(origin)
	for offset := 1; offset <= d.opts.Days && len(found) < n; offset++ {
		collect(origin.AddDays(-offset))
		collect(origin.AddDays(offset))
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].distance != found[j].distance {
			return found[i].distance < found[j].distance
		}
		return found[i].offset < found[j].offset
	})
	if len(found) > n {
		found = found[:n]
	}
	out := make([]model.Span, 0, len(found))
	for _, c := range found {
		out = append(out, c.span)
	}

	d.logger.Debug("proposals generated", "requested", span.String(), "count", len(out))
	return out, nil
}

// positions lists candidate starts inside slot: the start nearest the
// requested time plus starts every Step minutes from the gap's beginning.
func (d *Detector) positions(slot model.FreeSlot, origin model.Date, requested, duration int) []candidate {
	base := origin.DaysUntil(slot.Date)*model.MinutesPerDay + slot.Start
	latest := base + slot.Duration() - duration
	if latest < base {
		return nil
	}
	target := requested
	starts := []int{min(max(target, base), latest)}
	for s := base; s <= latest; s += d.opts.Step {
		starts = append(starts, s)
	}

	out := make([]candidate, 0, len(starts))
	for _, abs := range starts {
		dayOffset := floorDiv(abs, model.MinutesPerDay)
		minute := abs - dayOffset*model.MinutesPerDay
		out = append(out, candidate{
			span:     model.SpanFor(origin.AddDays(dayOffset), minute, duration),
			distance: absInt(abs - target),
			offset:   abs,
		})
	}
	return out
}

func (d *Detector) inPast(span model.Span) bool {
	if d.opts.Now == nil {
		return false
	}
	return span.StartTime(d.opts.Location).Before(d.opts.Now())
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
