// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/logging"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("analytics_url", cfg.Analytics.BaseURL).
		Ints("windows", cfg.Sync.Windows).
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Bool("auth_enabled", cfg.AuthEnabled()).
		Msg("Starting CreatorSync with supervisor tree")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize application")
	}

	tree, err := app.supervise(logging.NewSlogLogger())
	if err != nil {
		_ = app.Close()
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	logging.Info().Str("addr", app.server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The tree reports exactly once, after every service has returned.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
		stop()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if err := app.db.Checkpoint(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Database checkpoint failed")
	}
	if err := app.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing stores")
	}

	logging.Info().Msg("Application stopped gracefully")
}
