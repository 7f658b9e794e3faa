// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tomtom215/creatorsync/internal/api"
	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/cooldown"
	"github.com/tomtom215/creatorsync/internal/database"
	"github.com/tomtom215/creatorsync/internal/events"
	"github.com/tomtom215/creatorsync/internal/jobs"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/supervisor"
	"github.com/tomtom215/creatorsync/internal/supervisor/services"
	"github.com/tomtom215/creatorsync/internal/sync"
	ws "github.com/tomtom215/creatorsync/internal/websocket"
)

// application holds every long-lived component of the server.
type application struct {
	cfg       *config.Config
	db        *database.DB
	cooldowns *cooldown.Store
	bus       *events.Bus
	manager   *sync.Manager
	runner    *jobs.Runner
	scheduler *jobs.Scheduler
	hub       *ws.Hub
	bridge    *ws.Bridge
	handler   http.Handler
	server    *http.Server

	closers []func() error
}

// newApplication opens the stores and wires the pipeline, job runner and
// HTTP surface. On error everything opened so far is closed.
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{cfg: cfg}
	if err := app.wire(ctx); err != nil {
		if cerr := app.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("Error closing partially initialized components")
		}
		return nil, err
	}
	return app, nil
}

func (app *application) wire(ctx context.Context) error {
	cfg := app.cfg
	var err error

	app.db, err = database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	app.closers = append(app.closers, app.db.Close)
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized successfully")

	app.cooldowns, err = cooldown.Open(&cfg.Cooldown)
	if err != nil {
		return fmt.Errorf("open cooldown store: %w", err)
	}
	app.closers = append(app.closers, app.cooldowns.Close)

	app.bus, err = events.Open(ctx, &cfg.NATS)
	if err != nil {
		return fmt.Errorf("open event bus: %w", err)
	}
	app.closers = append(app.closers, app.bus.Close)

	client := sync.NewClient(&cfg.Analytics)
	app.manager = sync.NewManager(client, app.db, app.cooldowns, app.bus, cfg)

	app.runner = jobs.NewRunner(app.manager, &cfg.Sync)
	app.scheduler, err = jobs.NewScheduler(app.runner, &cfg.Sync)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	app.hub = ws.NewHub()
	app.bridge = ws.NewBridge(app.hub, app.bus)

	var tokens *api.TokenValidator
	if cfg.AuthEnabled() {
		tokens, err = api.NewTokenValidator(cfg.Security.JWTSecret)
		if err != nil {
			return fmt.Errorf("initialize token validator: %w", err)
		}
		logging.Info().Msg("JWT authentication enabled")
	} else {
		logging.Warn().Msg("API authentication is DISABLED (no security.jwt_secret configured)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin while authentication is enabled; set security.cors_origins in production")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security), tokens)
	handler := api.NewHandler(cfg, app.manager, app.db, app.runner, app.db, app.hub)
	app.handler = api.NewRouter(handler, mw).Setup()

	app.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	return nil
}

// supervise adds every service to a new supervisor tree.
func (app *application) supervise(logger *slog.Logger) (*supervisor.SupervisorTree, error) {
	treeCfg := supervisor.DefaultTreeConfig()
	if app.cfg.Server.ShutdownTimeout > 0 {
		treeCfg.ShutdownTimeout = app.cfg.Server.ShutdownTimeout
	}
	tree, err := supervisor.NewSupervisorTree(logger, treeCfg)
	if err != nil {
		return nil, err
	}

	tree.AddMessagingService(services.Named("websocket-hub", app.hub))
	tree.AddMessagingService(services.Named("event-bridge", app.bridge))

	tree.AddJobsService(services.Named("job-runner", app.runner))
	if app.scheduler != nil {
		tree.AddJobsService(services.Named("scheduler", app.scheduler))
		logging.Info().
			Str("schedule", app.cfg.Sync.Schedule).
			Int("brands", len(app.cfg.Sync.Brands)).
			Time("next_run", app.scheduler.Next()).
			Msg("Scheduled syncs enabled")
	}

	tree.AddAPIService(services.NewHTTPServerService(app.server, app.cfg.Server.ShutdownTimeout))
	return tree, nil
}

// Close releases the stores in reverse open order.
func (app *application) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
