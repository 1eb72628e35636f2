package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/schedd/internal/ics"
)

type importSummary struct {
	Events      int      `json:"events"`
	Invalid     int      `json:"invalid"`
	Occurrences int      `json:"occurrences"`
	Created     int      `json:"created"`
	Skipped     int      `json:"skipped"`
	BadRules    []string `json:"bad_rules,omitempty"`
	Unsupported []string `json:"unsupported,omitempty"`
	Truncated   []string `json:"truncated,omitempty"`
}

func newImportCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "import <file.ics|->",
		Short: "Import events from an iCalendar file",
		Long: "Reads VEVENTs, expands RRULE with EXDATE and overrides over the range, and books " +
			"each occurrence. Occurrences that clash with existing appointments are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			rg, err := a.dateRange(from, to, 7*a.cfg.Defaults.HorizonWeeks)
			if err != nil {
				return err
			}
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			events, invalid, err := ics.Parse(r, a.location)
			if err != nil {
				return err
			}
			occs, report, err := ics.Expand(events, ics.ExpandOptions{
				Location: a.location,
				From:     rg.From,
				To:       rg.To,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}
			eng, err := a.open()
			if err != nil {
				return err
			}
			bulk, err := eng.BulkInsert(cmd.Context(), occs)
			if err != nil {
				return err
			}
			sum := importSummary{
				Events:      len(events),
				Invalid:     invalid,
				Occurrences: len(occs),
				Created:     len(bulk.Created),
				Skipped:     len(bulk.Skipped),
				BadRules:    report.BadRules,
				Unsupported: report.Unsupported,
				Truncated:   report.Truncated,
			}
			out := cmd.OutOrStdout()
			if a.format == formatJSON {
				return writeJSON(out, sum)
			}
			fmt.Fprintf(out, "imported %d of %d occurrence(s) from %d event(s); %d skipped on conflict\n",
				sum.Created, sum.Occurrences, sum.Events, sum.Skipped)
			for _, s := range bulk.Skipped {
				fmt.Fprintf(out, "  skipped %s %s\n", s.Occurrence.Span(), s.Occurrence.Title)
			}
			for _, uid := range append(append(report.BadRules, report.Unsupported...), report.Truncated...) {
				fmt.Fprintf(out, "  not fully imported: %s\n", uid)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "First day to expand, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "Last day to expand (default from + defaults.horizon_weeks)")
	return cmd
}
