package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/schedd/internal/ics"
	"github.com/sandeepkv93/schedd/internal/model"
)

const defaultExportDays = 30

func newExportCmd(a *app) *cobra.Command {
	var from, to, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write appointments as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			rg, err := a.dateRange(from, to, defaultExportDays)
			if err != nil {
				return err
			}
			if _, err := a.open(); err != nil {
				return err
			}
			appts, err := a.store.ListAppointments(cmd.Context(), rg.From, rg.To)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := ics.Export(w, appts, a.location, a.now()); err != nil {
				return err
			}
			a.logger.Info("exported", "from", rg.From, "to", rg.To, "appointments", len(appts))
			return nil
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", fmt.Sprintf("Last day, YYYY-MM-DD (default from + %d days)", defaultExportDays))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

// dateRange resolves --from/--to, defaulting to today and a span of days.
func (a *app) dateRange(from, to string, days int) (model.DateRange, error) {
	rg := model.DateRange{From: model.DateOf(a.now().In(a.location))}
	if from != "" {
		d, err := model.ParseDate(from)
		if err != nil {
			return rg, fmt.Errorf("--from: %w", err)
		}
		rg.From = d
	}
	rg.To = rg.From.AddDays(days)
	if to != "" {
		d, err := model.ParseDate(to)
		if err != nil {
			return rg, fmt.Errorf("--to: %w", err)
		}
		rg.To = d
	}
	if rg.To.Before(rg.From) {
		return rg, fmt.Errorf("--to %s is before --from %s", rg.To, rg.From)
	}
	return rg, nil
}
