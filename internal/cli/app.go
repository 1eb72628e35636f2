package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/schedd/internal/config"
	"github.com/sandeepkv93/schedd/internal/engine"
	"github.com/sandeepkv93/schedd/internal/fallback"
	"github.com/sandeepkv93/schedd/internal/metrics"
	"github.com/sandeepkv93/schedd/internal/reminder"
	"github.com/sandeepkv93/schedd/internal/storage"
	"github.com/sandeepkv93/schedd/internal/templates"
)

// app holds what one invocation builds from its flags and config.
type app struct {
	configPath string
	dbPath     string
	format     string
	now        func() time.Time

	cfg      config.Config
	location *time.Location
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    *storage.SQLiteRepository
	engine   *engine.Engine
}

func (a *app) load(cmd *cobra.Command) error {
	if a.format != formatJSON && a.format != formatText {
		return fmt.Errorf("unknown --format %q (want json or text)", a.format)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DB.Path = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.location = loc
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	a.registry = prometheus.NewRegistry()
	a.metrics, err = metrics.New(a.registry)
	return err
}

// open builds the store and engine on first use.
func (a *app) open() (*engine.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	if dir := filepath.Dir(a.cfg.DB.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	store, err := storage.Open(a.cfg.DB.Driver, a.cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	opts, err := a.engineOptions()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.store = store
	a.engine = engine.New(store, opts)
	a.logger.Debug("engine ready", "db", a.cfg.DB.Path, "driver", a.cfg.DB.Driver, "templates", len(opts.Templates.Names()))
	return a.engine, nil
}

func (a *app) engineOptions() (engine.Options, error) {
	proposals, err := a.cfg.ProposalWindow()
	if err != nil {
		return engine.Options{}, err
	}
	work, err := a.cfg.WorkWindow()
	if err != nil {
		return engine.Options{}, err
	}
	lib := templates.Builtin()
	if a.cfg.Templates.Path != "" {
		if lib, err = templates.LoadFile(a.cfg.Templates.Path); err != nil {
			return engine.Options{}, err
		}
	}
	opts := engine.Options{
		Location:        a.location,
		Now:             a.now,
		ProposalCount:   a.cfg.Proposals.Count,
		ProposalDays:    a.cfg.Proposals.Days,
		ProposalWindow:  proposals,
		DefaultDuration: a.cfg.Defaults.Duration,
		DefaultLead:     a.cfg.Defaults.Lead,
		SnoozeMinutes:   a.cfg.Defaults.Snooze,
		HorizonWeeks:    a.cfg.Defaults.HorizonWeeks,
		WorkHours:       work,
		Templates:       lib,
		Metrics:         a.metrics,
		Logger:          a.logger,
	}
	fb := fallback.Config{
		BaseURL:  a.cfg.Fallback.BaseURL,
		APIKey:   a.cfg.Fallback.APIKey,
		Model:    a.cfg.Fallback.Model,
		Location: a.location,
		Now:      a.now,
		Logger:   a.logger,
	}
	resolver, err := fallback.New(fb)
	switch {
	case errors.Is(err, fallback.ErrDisabled):
	case err != nil:
		return engine.Options{}, err
	default:
		opts.Resolver = resolver
	}
	return opts, nil
}

func (a *app) runner(eng *engine.Engine) (*reminder.Runner, error) {
	r, err := reminder.NewRunner(eng.Poller(), a.cfg.Poll.Spec, a.cfg.Poll.Buffer, a.logger)
	if err != nil {
		return nil, fmt.Errorf("poll.spec %q: %w", a.cfg.Poll.Spec, err)
	}
	r.SetClock(a.now)
	r.Observe(a.metrics)
	return r, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.engine = nil, nil
	return err
}
