package engine

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/conflict"
	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/model"
	"github.com/sandeepkv93/schedd/internal/recurrence"
	"github.com/sandeepkv93/schedd/internal/storage"
	"github.com/sandeepkv93/schedd/internal/templates"
)

func (e *Engine) expand(cmd commands.Command) ([]model.Occurrence, error) {
	if cmd.Recurrence == nil {
		return nil, commands.InvalidRecurrence(fmt.Errorf("%w: no recurrence given", model.ErrInvalidRecurrence))
	}
	occs, err := recurrence.Expand(*cmd.Recurrence, model.Date{})
	if err != nil {
		return nil, commands.InvalidRecurrence(err)
	}
	return occs, nil
}

func (e *Engine) previewRecurrence(_ context.Context, cmd commands.Command) (Result, error) {
	occs, err := e.expand(cmd)
	if err != nil {
		return Result{}, err
	}
	return Result{Preview: occs, Message: fmt.Sprintf("%d occurrence(s) of %q", len(occs), cmd.Recurrence.Title)}, nil
}

func (e *Engine) createRecurrence(ctx context.Context, cmd commands.Command) (Result, error) {
	occs, err := e.expand(cmd)
	if err != nil {
		return Result{}, err
	}
	rule, err := recurrence.RRule(*cmd.Recurrence)
	if err != nil {
		return Result{}, commands.InvalidRecurrence(err)
	}
	series := ulid.Make().String()
	for i := range occs {
		occs[i].Rule = rule
		occs[i].SeriesID = series
		occs[i].Description = cmd.Description
		occs[i].Location = cmd.Location
		occs[i].Modality = cmd.Modality
		occs[i].Label = cmd.Label
		occs[i].Timezone = cmd.Timezone
	}

	bulk, err := e.bulkInsert(ctx, occs)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Created: bulk.Created,
		Skipped: bulk.Skipped,
		Message: fmt.Sprintf("Created %d of %d occurrence(s), skipped %d", len(occs)-len(bulk.Skipped), len(occs), len(bulk.Skipped)),
	}, nil
}

func (e *Engine) bulkInsert(ctx context.Context, occs []model.Occurrence) (conflict.BulkResult, error) {
	var out conflict.BulkResult
	err := e.store.Atomic(ctx, func(tx storage.Repository) error {
		var err error
		out, err = e.detector(tx).BulkInsert(ctx, occs, tx)
		return err
	})
	return out, err
}

// BulkInsert stores externally produced occurrences with skip-on-conflict.
func (e *Engine) BulkInsert(ctx context.Context, occs []model.Occurrence) (conflict.BulkResult, error) {
	return e.bulkInsert(ctx, occs)
}

func (e *Engine) createFromTemplate(ctx context.Context, cmd commands.Command) (Result, error) {
	if cmd.Template == "" {
		return Result{}, invalid("create_from_template needs a template name")
	}
	t, ok := e.opts.Templates.Get(cmd.Template)
	if !ok {
		return Result{}, commands.Errorf(commands.ErrCodeInvalidArgument, "unknown template %q", cmd.Template)
	}
	date := e.today()
	if cmd.Date != nil {
		date = *cmd.Date
	}
	lastOffset := 0
	for _, s := range t.Steps {
		lastOffset = max(lastOffset, s.DayOffset)
	}

	var res Result
	err := e.store.Atomic(ctx, func(tx storage.Repository) error {
		appts, err := tx.ListAppointments(ctx, date, date.AddDays(lastOffset+1))
		if err != nil {
			return err
		}
		plan, err := e.opts.Templates.Expand(t.Name, date, freeslot.Busy(appts), templates.PlanOptions{WorkHours: e.opts.WorkHours})
		if err != nil {
			return err
		}
		series := ulid.Make().String()
		for i := range plan.Blocks {
			plan.Blocks[i].SeriesID = series
		}
		bulk, err := e.detector(tx).BulkInsert(ctx, plan.Blocks, tx)
		if err != nil {
			return err
		}
		res.Created, res.Skipped, res.Unplaced = bulk.Created, bulk.Skipped, plan.Unplaced
		res.Message = fmt.Sprintf("Planned %s: %d block(s), %d skipped, %d unplaced",
			t.Name, len(plan.Blocks)-len(bulk.Skipped), len(bulk.Skipped), len(plan.Unplaced))
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (e *Engine) listTemplates(context.Context, commands.Command) (Result, error) {
	return Result{Templates: e.opts.Templates.Names()}, nil
}
