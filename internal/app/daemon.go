package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"sift-go/internal/api"
	"sift-go/internal/config"
)

var _ api.Organizer = (*App)(nil)

const shutdownTimeout = 10 * time.Second

// RunDaemon watches folders, serves the HTTP API when enabled and reloads
// settings whenever the config file at configPath changes. It returns when
// ctx is done or any part fails.
func (a *App) RunDaemon(ctx context.Context, configPath string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.scheduler.Run(ctx)
	})

	if configPath != "" {
		g.Go(func() error {
			return config.Watch(ctx, configPath, a.Reload, func(err error) {
				a.logger.Warn("config reload failed, keeping previous settings", "error", err)
			})
		})
	}

	if a.cfg.Server.Enabled {
		srv := &http.Server{
			Addr:              a.cfg.Server.Addr,
			Handler:           api.NewRouter(a, a.logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("api listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	a.logger.Info("watching folders", "scan_interval_seconds", a.cfg.Organizer.ScanIntervalSeconds)
	return g.Wait()
}

// Reload swaps in the decision settings of cfg. Files already decided are
// re-examined on the next sweep when the settings fingerprint changed.
func (a *App) Reload(cfg *config.Config) {
	before := a.settings.Settings().Fingerprint()
	next := SettingsFromConfig(cfg)
	a.settings.Store(next)
	a.logger.Info("settings reloaded", "changed", next.Fingerprint() != before)
}
