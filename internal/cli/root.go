// Package cli implements the schedd commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/schedd/internal/engine"
	"github.com/sandeepkv93/schedd/internal/update"
)

const (
	formatJSON = "json"
	formatText = "text"
)

// ErrRequestFailed is returned after a failed result has been printed.
var ErrRequestFailed = errors.New("request failed")

type Option func(*app)

// WithNow fixes the clock the engine and reminder runner use.
func WithNow(now func() time.Time) Option {
	return func(a *app) { a.now = now }
}

func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "schedd",
		Short:         "Deterministic scheduling from plain text",
		Long:          "schedd books, moves and queries appointments and reminders from short plain-text requests. SQLite-backed, single binary.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/schedd/config.yaml)")
	root.PersistentFlags().StringVarP(&a.dbPath, "db", "d", "", "Database path (overrides db.path)")
	root.PersistentFlags().StringVarP(&a.format, "format", "f", formatText, "Output format: json or text")

	root.AddCommand(
		newQueryCmd(a),
		newActionCmd(a),
		newTemplatesCmd(a),
		newPollCmd(a),
		newConsoleCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newServeCmd(a),
	)
	return root
}

// run wraps a RunE so the store is closed however the command ends.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return fn(cmd, args)
	}
}

func (a *app) printResult(w io.Writer, res engine.Result) error {
	if a.format == formatJSON {
		if err := writeJSON(w, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, update.FormatResult(res, a.location))
	}
	if res.Error != nil {
		return fmt.Errorf("%w: %s", ErrRequestFailed, res.Error.Kind)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
