package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/schedd/internal/metrics"
	"github.com/sandeepkv93/schedd/internal/reminder"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reminder runner in the foreground",
		Long:  "Runs the reminder runner, logging each delivery. With metrics.addr (or --metrics-addr) set, also serves /metrics.",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Metrics.Addr
			}
			eng, err := a.open()
			if err != nil {
				return err
			}
			r, err := a.runner(eng)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, r, addr)
		}),
	}
	cmd.Flags().StringVar(&addr, "metrics-addr", "", "Listen address for /metrics (overrides metrics.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context, r *reminder.Runner, addr string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.drain(ctx, r, func(due reminder.Due) error {
			a.logger.Info("reminder due",
				"reminder_id", due.Reminder.ID,
				"title", due.Reminder.Title,
				"channel", due.Reminder.Channel,
				"trigger_at", due.TriggerAt,
			)
			return nil
		})
	})

	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(a.registry))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		a.logger.Info("metrics listening", "addr", ln.Addr().String())

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}
