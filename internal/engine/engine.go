// Package engine is the single dispatch entry point. It turns free text or a
// structured request into a command, runs it against the store and returns a
// Result that never carries a Go error.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/conflict"
	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/metrics"
	"github.com/sandeepkv93/schedd/internal/model"
	"github.com/sandeepkv93/schedd/internal/reminder"
	"github.com/sandeepkv93/schedd/internal/storage"
	"github.com/sandeepkv93/schedd/internal/templates"
	"github.com/sandeepkv93/schedd/internal/temporal"
)

// Selector searches without a date look this far around today.
const (
	searchBackDays  = 45
	searchAheadDays = 60
)

// Resolver is consulted when no routing rule claims a query. Returning a nil
// request leaves the query unresolved.
type Resolver interface {
	ResolveUnresolved(ctx context.Context, text string) (*Request, error)
}

type Options struct {
	Location *time.Location
	Now      func() time.Time

	ProposalCount  int
	ProposalDays   int
	ProposalWindow freeslot.Window
	ProposalStep   int

	DefaultDuration int
	DefaultLead     int
	SnoozeMinutes   int
	MinFreeDuration int
	HorizonWeeks    int
	WorkHours       freeslot.Window

	Templates *templates.Library
	Resolver  Resolver
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ProposalCount <= 0 {
		o.ProposalCount = 5
	}
	if o.ProposalDays <= 0 {
		o.ProposalDays = 3
	}
	if o.ProposalWindow == (freeslot.Window{}) {
		o.ProposalWindow = freeslot.Window{Start: 8 * 60, End: 20 * 60}
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = 60
	}
	if o.DefaultLead <= 0 {
		o.DefaultLead = 15
	}
	if o.SnoozeMinutes <= 0 {
		o.SnoozeMinutes = 10
	}
	if o.MinFreeDuration <= 0 {
		o.MinFreeDuration = 30
	}
	if o.HorizonWeeks <= 0 {
		o.HorizonWeeks = 4
	}
	if o.WorkHours == (freeslot.Window{}) {
		o.WorkHours = templates.DefaultWorkHours
	}
	if o.Templates == nil {
		o.Templates = templates.Builtin()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type Engine struct {
	store    storage.Repository
	parser   *temporal.Parser
	router   *commands.Router
	poller   *reminder.Poller
	opts     Options
	logger   *slog.Logger
	handlers commands.Handlers[Result]
}

func New(store storage.Repository, opts Options) *Engine {
	opts = opts.withDefaults()
	parser := temporal.New(opts.Location, opts.Now)
	e := &Engine{
		store:  store,
		parser: parser,
		router: commands.NewRouter(parser, commands.Options{
			DefaultDuration: opts.DefaultDuration,
			MinFreeDuration: opts.MinFreeDuration,
			HorizonWeeks:    opts.HorizonWeeks,
			SnoozeMinutes:   opts.SnoozeMinutes,
			Templates:       opts.Templates.Names(),
		}),
		poller: reminder.NewPoller(store, opts.Location),
		opts:   opts,
		logger: opts.Logger,
	}
	e.handlers = commands.Handlers[Result]{
		commands.IntentCreate:                 e.create,
		commands.IntentCreateConstraint:       e.createConstraint,
		commands.IntentCreateFromPlan:         e.createFromTemplate,
		commands.IntentRename:                 e.rename,
		commands.IntentReschedule:             e.reschedule,
		commands.IntentDelete:                 e.delete,
		commands.IntentRetrieve:               e.retrieve,
		commands.IntentCount:                  e.count,
		commands.IntentFreeSlots:              e.freeSlots,
		commands.IntentConflicts:              e.conflicts,
		commands.IntentRecurrencePreview:      e.previewRecurrence,
		commands.IntentRecurrenceCreate:       e.createRecurrence,
		commands.IntentTemplateList:           e.listTemplates,
		commands.IntentReminderCreate:         e.createReminder,
		commands.IntentReminderForAppointment: e.createAppointmentReminder,
		commands.IntentReminderList:           e.listReminders,
		commands.IntentReminderUpdate:         e.updateReminder,
		commands.IntentReminderSnooze:         e.snoozeReminder,
		commands.IntentReminderToggle:         e.toggleReminder,
		commands.IntentReminderDelete:         e.deleteReminder,
		commands.IntentReminderMarkDelivered:  e.markDelivered,
		commands.IntentRemindersDue:           e.dueReminders,
	}
	return e
}

func (e *Engine) Router() *commands.Router { return e.router }
func (e *Engine) Poller() *reminder.Poller { return e.poller }
func (e *Engine) Location() *time.Location { return e.opts.Location }
func (e *Engine) today() model.Date        { return e.parser.Today() }
func (e *Engine) now() time.Time           { return e.parser.Now() }
func (e *Engine) Templates() []string      { return e.opts.Templates.Names() }

// Query dispatches free text.
func (e *Engine) Query(ctx context.Context, text string) Result {
	return e.Dispatch(ctx, Request{Query: text})
}

// Dispatch runs one request. Every failure is reported in Result.Error.
func (e *Engine) Dispatch(ctx context.Context, req Request) Result {
	started := time.Now()
	requestID := uuid.NewString()

	cmd, err := e.command(ctx, req)
	var res Result
	if err == nil {
		res, err = commands.Execute(ctx, cmd, e.handlers)
	}
	outcome := "ok"
	if err != nil {
		info := errorInfo(err)
		res = Result{Error: info}
		outcome = info.Kind
	}
	res.Intent = cmd.Intent
	res.RequestID = requestID

	elapsed := time.Since(started)
	e.opts.Metrics.ObserveDispatch(string(cmd.Intent), outcome, elapsed)
	e.opts.Metrics.AddSkipped(len(res.Skipped))

	attrs := []any{
		"request_id", requestID,
		"intent", string(cmd.Intent),
		"outcome", outcome,
		"duration", elapsed,
	}
	if err != nil {
		e.logger.Warn("dispatch failed", append(attrs, "error", err)...)
	} else {
		e.logger.Debug("dispatch finished", attrs...)
	}
	return res
}

func (e *Engine) command(ctx context.Context, req Request) (commands.Command, error) {
	if req.Query == "" {
		if req.Action == "" {
			return commands.Command{}, &commands.CommandError{Code: commands.ErrCodeEmptyInput, Message: "request has neither query nor action"}
		}
		return e.fromRequest(req)
	}

	cmd, err := e.router.Route(ctx, req.Query)
	if err == nil || !commands.IsCode(err, commands.ErrCodeUnresolved) || e.opts.Resolver == nil {
		return cmd, err
	}
	resolved, rerr := e.opts.Resolver.ResolveUnresolved(ctx, req.Query)
	if rerr != nil {
		e.logger.Warn("fallback resolver failed", "error", rerr)
		return commands.Command{}, err
	}
	if resolved == nil || resolved.Action == "" {
		return commands.Command{}, err
	}
	cmd, ferr := e.fromRequest(*resolved)
	if ferr != nil {
		return commands.Command{}, ferr
	}
	cmd.Raw = req.Query
	return cmd, nil
}

func (e *Engine) detector(r conflict.Reader) *conflict.Detector {
	return conflict.NewDetector(r, conflict.Options{
		Days:     e.opts.ProposalDays,
		Window:   e.opts.ProposalWindow,
		Step:     e.opts.ProposalStep,
		Now:      e.now,
		Location: e.opts.Location,
	}, e.logger)
}
