package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"urlguard/internal/api"
	"urlguard/internal/api/handler/v1handler"
	"urlguard/internal/config"
	"urlguard/internal/worker"
	"urlguard/pkg/browser"
	"urlguard/pkg/browser/pwbrowser"
	"urlguard/pkg/logger"
	"urlguard/pkg/storage/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, cfg *config.Config, g *guard, strg *postgres.PgSQL, queueUI http.Handler) func(ctx context.Context) {
	deps := v1handler.Deps{
		Dispatcher: g.dispatcher,
		Decider:    g.interceptor,
	}
	if strg != nil {
		deps.Database = strg
	}
	server := api.NewServer(api.Deps{Deps: deps, QueueUI: queueUI}, api.NewOptions(cfg))

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

// setupWorkers starts the incident delivery workers and, when the API is
// served, the queue dashboard over them.
func setupWorkers(
	ctx context.Context, cfg *config.Config, strg *postgres.PgSQL, g *guard,
) (http.Handler, func(ctx context.Context)) {
	riverClient, err := worker.Start(ctx, strg.Pool, g.client, worker.Options{
		Timeout: cfg.Backend.Timeout,
		Metrics: g.metrics,
	})
	if err != nil {
		logger.Fatal(ctx, "could not start incident workers", zap.Error(err))
	}
	logger.Info(ctx, "incident workers started")

	var ui http.Handler
	if cfg.HTTP.Enabled && cfg.HTTP.QueueUIPath != "" {
		if ui, err = worker.NewUI(ctx, riverClient, cfg.HTTP.QueueUIPath); err != nil {
			logger.Fatal(ctx, "could not start queue dashboard", zap.Error(err))
		}
	}

	return ui, func(ctx context.Context) {
		logger.Info(ctx, "stopping incident workers...")
		if err := riverClient.Stop(ctx); err != nil {
			logger.Error(ctx, "could not stop incident workers", zap.Error(err))
		}
	}
}

func stopBrowser(ctx context.Context, host *pwbrowser.Host) {
	logger.Info(ctx, "stopping browser...")
	if err := host.Stop(); err != nil {
		logger.Error(ctx, "could not stop browser", zap.Error(err))
	}
}

func runCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Starts the guard: API server, optional browser host and background workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var strg *postgres.PgSQL
			if cfg.Database.Enabled {
				var closeStrg func()
				strg, closeStrg = getPostgres(ctx, cfg)
				defer closeStrg()
			}

			var (
				b    browser.Browser = browser.Detached{}
				host *pwbrowser.Host
			)
			if cfg.Browser.Enabled {
				host = pwbrowser.New(pwbrowser.Options{
					Headless:        cfg.Browser.Headless,
					Install:         cfg.Browser.Install,
					Bypass:          []string{cfg.BlockPage.URL},
					RedirectTimeout: cfg.Backend.Timeout,
				})
				b = host
			}

			g, err := newGuard(ctx, cfg, strg, b)
			if err != nil {
				logger.Fatal(ctx, "could not create guard", zap.Error(err))
			}
			g.sweep(ctx, cfg)

			var (
				stopWorkers func(context.Context)
				queueUI     http.Handler
			)
			if cfg.Incidents.Enabled && cfg.Incidents.Queue {
				queueUI, stopWorkers = setupWorkers(ctx, cfg, strg, g)
			}

			var stopWebserver func(context.Context)
			if cfg.HTTP.Enabled {
				stopWebserver = setupServer(ctx, cfg, g, strg, queueUI)
			}

			if host != nil {
				if err := host.Start(ctx, g.interceptor); err != nil {
					logger.Fatal(ctx, "could not start browser", zap.Error(err))
				}
				go func() {
					if _, err := host.Open(cfg.Browser.StartURL); err != nil {
						logger.Error(ctx, "could not open start tab", zap.Error(err))
					}
				}()
			}

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			if host != nil {
				stopBrowser(shutdownCtx, host)
			}
			if stopWebserver != nil {
				stopWebserver(shutdownCtx)
			}

			logger.Info(shutdownCtx, "waiting for incident reports...")
			g.interceptor.Wait()

			if stopWorkers != nil {
				stopWorkers(shutdownCtx)
			}
		},
	}

	return cmd
}

