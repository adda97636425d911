package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/designscore/api"
	"github.com/hazyhaar/designscore/observability"
	"github.com/hazyhaar/designscore/shield"
	"github.com/hazyhaar/designscore/watch"
)

func newServeCmd(gf *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(gf, os.Stdout)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			hb := observability.NewHeartbeatWriter(a.store.DB, workerName, cfg.Heartbeat)
			hb.Start(ctx)
			defer hb.Stop()
			go a.cleanupLoop(ctx)

			rl := shield.NewRateLimiter(a.store.DB)
			rl.StartReloader(ctx)
			mm := shield.NewMaintenanceMode(a.store.DB, "/health")
			mm.StartReloader(ctx)
			settings := watch.New(a.store.DB, watch.Options{
				Interval: time.Second,
				Debounce: 250 * time.Millisecond,
				Logger:   logger,
			})
			go settings.Run(ctx, func(ctx context.Context) error {
				mm.Reload(ctx)
				return rl.Reload(ctx)
			})

			srv := api.New(a.analyzer, a.store, cfg.ResultsDir,
				api.WithAudit(a.audit),
				api.WithHealth(a.store.DB, workerName, 3*cfg.Heartbeat),
				api.WithThresholds(cfg.Thresholds),
				api.WithLogger(logger),
			)
			httpSrv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           srv.Routes(shield.DefaultStack(rl, mm)...),
				ReadHeaderTimeout: 10 * time.Second,
				// Analyses include page load, rendering and PDF printing.
				WriteTimeout: 3 * time.Minute,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", "addr", cfg.Addr, "provider", cfg.Provider, "results_dir", cfg.ResultsDir)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown", "error", err)
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
