// Package config layers defaults, an optional YAML file and SCHEDD_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/storage"
)

const EnvPrefix = "SCHEDD"

type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Timezone  string          `mapstructure:"timezone"`
	Poll      PollConfig      `mapstructure:"poll"`
	Proposals ProposalConfig  `mapstructure:"proposals"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	WorkHours string          `mapstructure:"work_hours"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
	Console   ConsoleConfig   `mapstructure:"console"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type DBConfig struct {
	Path   string `mapstructure:"path"`
	Driver string `mapstructure:"driver"`
}

type PollConfig struct {
	Spec   string `mapstructure:"spec"`
	Buffer int    `mapstructure:"buffer"`
}

type ProposalConfig struct {
	Count  int    `mapstructure:"count"`
	Days   int    `mapstructure:"days"`
	Window string `mapstructure:"window"`
}

type DefaultsConfig struct {
	Duration     int `mapstructure:"duration"`
	Lead         int `mapstructure:"lead"`
	Snooze       int `mapstructure:"snooze"`
	HorizonWeeks int `mapstructure:"horizon_weeks"`
}

type TemplatesConfig struct {
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type FallbackConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
}

type ConsoleConfig struct {
	History string `mapstructure:"history"`
	Notify  bool   `mapstructure:"notify"`
}

func defaults() map[string]any {
	return map[string]any{
		"db.path":                filepath.Join("~", ".schedd", "schedd.db"),
		"db.driver":              storage.DriverCgo,
		"timezone":               "Local",
		"poll.spec":              "@every 60s",
		"poll.buffer":            64,
		"proposals.count":        5,
		"proposals.days":         3,
		"proposals.window":       "08:00-20:00",
		"defaults.duration":      60,
		"defaults.lead":          15,
		"defaults.snooze":        10,
		"defaults.horizon_weeks": 4,
		"work_hours":             "08:00-18:00",
		"templates.path":         "",
		"metrics.addr":           "",
		"log.level":              "",
		"log.format":             "",
		"fallback.base_url":      "",
		"fallback.model":         "",
		"fallback.api_key":       "",
		"console.history":        filepath.Join("~", ".schedd", "history.json"),
		"console.notify":         false,
	}
}

// Load reads configuration. An empty path falls back to
// $XDG_CONFIG_HOME/schedd/config.yaml when that file exists.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = defaultFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.File = path
	cfg.DB.Path = expandHome(cfg.DB.Path)
	cfg.Templates.Path = expandHome(cfg.Templates.Path)
	cfg.Console.History = expandHome(cfg.Console.History)
	return cfg, nil
}

func defaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, "schedd", "config.yaml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func (c Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case storage.DriverCgo, storage.DriverPure:
	default:
		errs = append(errs, fmt.Errorf("db.driver %q must be %s or %s", c.DB.Driver, storage.DriverCgo, storage.DriverPure))
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Poll.Spec) == "" {
		errs = append(errs, errors.New("poll.spec is required"))
	}
	for name, n := range map[string]int{
		"poll.buffer":            c.Poll.Buffer,
		"proposals.count":        c.Proposals.Count,
		"proposals.days":         c.Proposals.Days,
		"defaults.duration":      c.Defaults.Duration,
		"defaults.lead":          c.Defaults.Lead,
		"defaults.snooze":        c.Defaults.Snooze,
		"defaults.horizon_weeks": c.Defaults.HorizonWeeks,
	} {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, n))
		}
	}
	if _, err := c.ProposalWindow(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.WorkWindow(); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) ProposalWindow() (freeslot.Window, error) {
	return window("proposals.window", c.Proposals.Window)
}

func (c Config) WorkWindow() (freeslot.Window, error) {
	return window("work_hours", c.WorkHours)
}

func window(key, raw string) (freeslot.Window, error) {
	w, err := freeslot.ParseWindow(raw)
	if err != nil {
		return freeslot.Window{}, fmt.Errorf("%s: %w", key, err)
	}
	if w.Start >= w.End {
		return freeslot.Window{}, fmt.Errorf("%s %q must end after it starts", key, raw)
	}
	return w, nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return lvl, nil
}

// Logger builds the process logger. Without log.level nothing below warn is
// written, which keeps one-shot commands quiet.
func (c Config) Logger(w io.Writer) *slog.Logger {
	lvl := slog.LevelWarn
	if c.Log.Level != "" {
		if l, err := parseLevel(c.Log.Level); err == nil {
			lvl = l
		}
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
