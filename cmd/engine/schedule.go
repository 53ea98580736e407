package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"visahunt-engine/internal/httpapi"
	"visahunt-engine/internal/logger"
	"visahunt-engine/internal/poll"
	"visahunt-engine/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func newScheduleCmd(f *rootFlags) *cobra.Command {
	var (
		spec   string
		listen string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule and serve the local API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := f.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("cron") {
				spec = a.cfg.App.Schedule
			}
			if !cmd.Flags().Changed("listen") {
				listen = a.cfg.App.Listen
			}
			if err := scheduler.Validate(spec); err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return poll.StartPoller(gctx, spec, a.runner)
			})
			if listen != "" {
				srv := &http.Server{
					Handler: httpapi.NewRouter(httpapi.Deps{
						Store:   a.store,
						Runner:  a.runner,
						RunCtx:  gctx,
						Config:  a.cfg,
						Hub:     a.hub,
						Metrics: a.metrics.Handler(),
						Log:     a.log,
					}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				g.Go(func() error { return serve(gctx, srv, listen, a.log) })
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "cron spec, five fields (default app.schedule)")
	cmd.Flags().StringVar(&listen, "listen", "", "API listen address, empty to disable (default app.listen)")
	return cmd
}

// serve runs srv on addr until ctx is done, then drains it.
func serve(ctx context.Context, srv *http.Server, addr string, log logger.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	log.Info("api listening", logger.String("addr", "http://"+ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("api stopped")
	return nil
}
