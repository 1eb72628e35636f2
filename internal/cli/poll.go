package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/schedd/internal/reminder"
)

func newPollCmd(a *app) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Deliver due reminders to stdout",
		Long:  "Polls on poll.spec and prints each reminder as it becomes due. Delivered reminders are marked so they fire once.",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			eng, err := a.open()
			if err != nil {
				return err
			}
			r, err := a.runner(eng)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if once {
				n, err := r.Tick(cmd.Context())
				r.Stop()
				for due := range r.C() {
					if perr := a.printDue(out, due); perr != nil {
						return perr
					}
				}
				if err != nil {
					return err
				}
				a.logger.Debug("poll once", "delivered", n)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.drain(ctx, r, func(due reminder.Due) error { return a.printDue(out, due) })
		}),
	}
	cmd.Flags().BoolVar(&once, "once", false, "Poll once and exit")
	return cmd
}

// drain starts r and hands each due reminder to fn until ctx ends.
func (a *app) drain(ctx context.Context, r *reminder.Runner, fn func(reminder.Due) error) error {
	r.Start()
	defer r.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case due, ok := <-r.C():
			if !ok {
				return nil
			}
			if err := fn(due); err != nil {
				return err
			}
		}
	}
}

func (a *app) printDue(w io.Writer, due reminder.Due) error {
	if a.format == formatJSON {
		return writeJSON(w, due)
	}
	_, err := fmt.Fprintf(w, "%s  %s [%s]\n", due.TriggerAt.In(a.location).Format("2006-01-02 15:04"), due.Reminder.Title, due.Reminder.Channel)
	return err
}
