// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
Package supervisor runs the long-lived services under a suture tree.

	creatorsync (root)
	├── messaging-layer: websocket hub, event bridge
	├── jobs-layer: sync job runner, cron scheduler
	└── api-layer: HTTP server

Failed services restart with suture's backoff. Supervisor events are logged
through sutureslog on a slog handler that writes to zerolog, so they share
the process log format.

Usage:

	tree, _ := supervisor.NewSupervisorTree(slog.New(logging.NewSlogHandler()), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.Named("websocket-hub", hub))
	tree.AddJobsService(services.Named("sync-job-runner", runner))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err := tree.Serve(ctx)
*/
package supervisor
