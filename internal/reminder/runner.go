package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrRunnerStopped = errors.New("reminder: runner stopped")

// PollObserver is told the outcome of every tick.
type PollObserver interface {
	ObservePoll(delivered, dropped int, err error)
}

// Runner polls on a cron schedule and hands due reminders to C. Delivery is
// non-blocking; a full buffer drops the reminder, which stays due for the
// next tick because only handed-off reminders are marked delivered.
type Runner struct {
	poller *Poller
	cron   *cron.Cron
	now    func() time.Time
	logger *slog.Logger
	obs    PollObserver

	mu      sync.Mutex
	tickMu  sync.Mutex
	out     chan Due
	started bool
	stopped bool
	dropped uint64
}

func NewRunner(poller *Poller, spec string, bufferSize int, logger *slog.Logger) (*Runner, error) {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		poller: poller,
		now:    time.Now,
		logger: logger,
		out:    make(chan Due, bufferSize),
	}
	cl := cronLogger{logger}
	r.cron = cron.New(
		cron.WithLocation(poller.Location()),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := r.cron.AddFunc(spec, func() {
		if _, err := r.Tick(context.Background()); err != nil {
			r.logger.Error("reminder poll failed", "err", err)
		}
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// Observe registers o for tick outcomes. Call before Start.
func (r *Runner) Observe(o PollObserver) {
	r.mu.Lock()
	r.obs = o
	r.mu.Unlock()
}

// SetClock replaces the clock ticks compare triggers against. Call before
// Start.
func (r *Runner) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Runner) C() <-chan Due {
	return r.out
}

func (r *Runner) Dropped() uint64 {
	return atomic.LoadUint64(&r.dropped)
}

func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	r.cron.Start()
}

// Stop waits for a running tick to finish and closes C.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.cron.Stop().Done()
	}
	r.tickMu.Lock()
	close(r.out)
	r.tickMu.Unlock()
}

// Tick runs one poll and returns how many reminders were handed off.
func (r *Runner) Tick(ctx context.Context) (delivered int, err error) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return 0, ErrRunnerStopped
	}
	obs := r.obs
	r.mu.Unlock()

	dropped := 0
	if obs != nil {
		defer func() { obs.ObservePoll(delivered, dropped, err) }()
	}

	now := r.now()
	due, err := r.poller.Due(ctx, now)
	if err != nil {
		return 0, err
	}
	handed := make([]string, 0, len(due))
	for _, d := range due {
		select {
		case r.out <- d:
			handed = append(handed, d.Reminder.ID)
		default:
			dropped++
			atomic.AddUint64(&r.dropped, 1)
			r.logger.Warn("reminder dropped", "reminder_id", d.Reminder.ID)
		}
	}
	if err := r.poller.MarkDelivered(ctx, now, handed...); err != nil {
		return len(handed), err
	}
	r.logger.Debug("reminder tick", "due", len(due), "delivered", len(handed))
	return len(handed), nil
}

type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"err", err}, keysAndValues...)...)
}
