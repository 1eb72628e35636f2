// Package conflict enforces non-overlap between appointments and proposes
// alternatives when a request collides.
package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sandeepkv93/schedd/internal/model"
)

// Reader lists appointments whose date falls in [from, to].
type Reader interface {
	ListAppointments(ctx context.Context, from, to model.Date) ([]model.Appointment, error)
}

// Inserter persists one accepted occurrence.
type Inserter interface {
	InsertOccurrence(ctx context.Context, occ model.Occurrence) ([]model.Appointment, error)
}

type InserterFunc func(ctx context.Context, occ model.Occurrence) ([]model.Appointment, error)

func (f InserterFunc) InsertOccurrence(ctx context.Context, occ model.Occurrence) ([]model.Appointment, error) {
	return f(ctx, occ)
}

// Overlaps reports whether two spans share any minute after segmentation.
func Overlaps(a, b model.Span) bool {
	return a.Overlaps(b)
}

// FindConflicts returns a pair for every existing appointment that overlaps candidate.
func FindConflicts(candidate model.Span, existing []model.Appointment) []model.ConflictPair {
	var out []model.ConflictPair
	for _, appt := range existing {
		for _, seg := range candidate.Segments() {
			if seg.Overlaps(appt.Interval()) {
				out = append(out, model.ConflictPair{Candidate: candidate, Existing: appt})
				break
			}
		}
	}
	return out
}

// Overlap is a pair of stored appointments that collide.
type Overlap struct {
	First  model.Appointment `json:"first"`
	Second model.Appointment `json:"second"`
}

// PairsAmong lists every colliding pair in appts, ordered by the first
// appointment's start.
func PairsAmong(appts []model.Appointment) []Overlap {
	sorted := append([]model.Appointment(nil), appts...)
	sortAppointments(sorted)
	var out []Overlap
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Date != sorted[i].Date || sorted[j].Start >= sorted[i].End {
				break
			}
			if sorted[i].Interval().Overlaps(sorted[j].Interval()) {
				out = append(out, Overlap{First: sorted[i], Second: sorted[j]})
			}
		}
	}
	return out
}

type Skipped struct {
	Occurrence model.Occurrence     `json:"occurrence"`
	Conflicts  []model.ConflictPair `json:"conflicts"`
}

// BulkResult reports each occurrence exactly once: Created holds the first
// stored row of every accepted occurrence, Rows every row written.
type BulkResult struct {
	Created []model.Appointment `json:"created"`
	Skipped []Skipped           `json:"skipped,omitempty"`
	Rows    []model.Appointment `json:"-"`
}

// Detector runs conflict checks against a Reader. Callers hold the
// transaction that makes read-then-insert atomic.
type Detector struct {
	reader Reader
	opts   Options
	logger *slog.Logger
}

func NewDetector(reader Reader, opts Options, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{reader: reader, opts: opts.withDefaults(), logger: logger}
}

// Check returns the stored appointments overlapping span, ignoring the ids in exclude.
func (d *Detector) Check(ctx context.Context, span model.Span, exclude ...string) ([]model.ConflictPair, error) {
	existing, err := d.load(ctx, span.Date, span.Date.AddDays(1), exclude)
	if err != nil {
		return nil, err
	}
	return FindConflicts(span, existing), nil
}

// BulkInsert inserts occurrences in chronological order, skipping any that
// collide with stored appointments or with occurrences accepted earlier in
// the same call. It never stops at a conflict; only inserter or reader
// errors abort.
func (d *Detector) BulkInsert(ctx context.Context, occurrences []model.Occurrence, ins Inserter) (BulkResult, error) {
	var res BulkResult
	if len(occurrences) == 0 {
		return res, nil
	}

	ordered := append([]model.Occurrence(nil), occurrences...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Anchor != ordered[j].Anchor {
			return ordered[i].Anchor.Before(ordered[j].Anchor)
		}
		return ordered[i].Start < ordered[j].Start
	})

	from, to := ordered[0].Anchor, ordered[len(ordered)-1].Anchor.AddDays(1)
	existing, err := d.load(ctx, from, to, nil)
	if err != nil {
		return res, err
	}

	for _, occ := range ordered {
		conflicts := FindConflicts(occ.Span(), existing)
		if len(conflicts) > 0 {
			res.Skipped = append(res.Skipped, Skipped{Occurrence: occ, Conflicts: conflicts})
			continue
		}
		created, err := ins.InsertOccurrence(ctx, occ)
		if err != nil {
			return res, fmt.Errorf("conflict: insert %s: %w", occ.Span(), err)
		}
		if len(created) == 0 {
			return res, fmt.Errorf("conflict: insert %s: no rows stored", occ.Span())
		}
		res.Created = append(res.Created, created[0])
		res.Rows = append(res.Rows, created...)
		existing = append(existing, created...)
	}

	d.logger.Debug("bulk insert finished",
		"occurrences", len(ordered),
		"created", len(res.Created),
		"rows", len(res.Rows),
		"skipped", len(res.Skipped),
	)
	return res, nil
}

func (d *Detector) load(ctx context.Context, from, to model.Date, exclude []string) ([]model.Appointment, error) {
	appts, err := d.reader.ListAppointments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("conflict: list appointments: %w", err)
	}
	if len(exclude) == 0 {
		return appts, nil
	}
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	out := appts[:0:0]
	for _, a := range appts {
		if !skip[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func sortAppointments(appts []model.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date.Before(appts[j].Date)
		}
		if appts[i].Start != appts[j].Start {
			return appts[i].Start < appts[j].Start
		}
		return appts[i].End < appts[j].End
	})
}
