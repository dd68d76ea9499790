package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/instaflow/pkg/controller/http"
	"github.com/secmon-lab/instaflow/pkg/service/worker"
	"github.com/secmon-lab/instaflow/pkg/usecase"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const restoreSweepInterval = 5 * time.Minute

func cmdServe() *cli.Command {
	var addr string
	var apiToken string
	var enableMetrics bool
	var reminderInterval time.Duration
	var cfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("INSTAFLOW_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "api-token",
			Usage:       "Bearer token required on /api requests (empty disables authentication)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("INSTAFLOW_API_TOKEN"),
			Destination: &apiToken,
		},
		&cli.BoolFlag{
			Name:        "metrics",
			Usage:       "Expose Prometheus metrics on /metrics",
			Value:       true,
			Sources:     cli.EnvVars("INSTAFLOW_METRICS"),
			Destination: &enableMetrics,
		},
		&cli.DurationFlag{
			Name:        "reminder-interval",
			Usage:       "Interval of reminder digests (0 disables)",
			Category:    "Notification",
			Value:       24 * time.Hour,
			Sources:     cli.EnvVars("INSTAFLOW_REMINDER_INTERVAL"),
			Destination: &reminderInterval,
		},
	}
	flags = append(flags, cfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			uc, cleanup, err := cfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var workers []*worker.Worker
			if reminderInterval > 0 {
				workers = append(workers, worker.NewReminderWorker(uc.Reminder, reminderInterval))
			}
			if interval := cfg.backup.Interval(); interval > 0 {
				workers = append(workers, worker.NewBackupWorker(uc.Backup, interval))
			}
			workers = append(workers, worker.NewRestoreSessionSweeper(uc.Backup, restoreSweepInterval, usecase.RestoreSessionTTL))
			for _, w := range workers {
				w.Start(ctx)
			}
			stopWorkers := func() {
				for _, w := range workers {
					w.Stop()
				}
			}
			defer stopWorkers()

			httpOpts := []httpctrl.Options{
				httpctrl.WithMetrics(enableMetrics),
			}
			if apiToken != "" {
				httpOpts = append(httpOpts, httpctrl.WithAPIToken(apiToken))
			} else {
				logger.Warn("API token not configured, /api is unauthenticated")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server",
					"addr", addr,
					"metrics", enableMetrics,
					"workers", len(workers),
				)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down")
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)
			}

			// Workers stop first so no scheduled job races the shutdown
			stopWorkers()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown completed")
			return nil
		},
	}
}
