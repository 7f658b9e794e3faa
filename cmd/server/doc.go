// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

// Package main is the entry point for the CreatorSync server.
//
// CreatorSync pulls per-video creator performance from an external analytics
// API, reconciles duplicate and conflicting rows into one canonical record per
// video, and keeps dated per-window snapshots for trend reporting. Runs are
// queued per brand, snoozed while the API rate-limits the brand, and reported
// over HTTP and a websocket event feed.
//
// # Application Architecture
//
// The server runs under a Suture v4 process tree:
//
//	RootSupervisor ("creatorsync")
//	├── MessagingSupervisor ("messaging-layer")
//	│   ├── websocket-hub
//	│   └── event-bridge (bus -> websocket clients)
//	├── JobsSupervisor ("jobs-layer")
//	│   ├── job-runner (brand-scoped sync jobs)
//	│   └── scheduler (optional, sync.schedule)
//	└── APISupervisor ("api-layer")
//	    └── http-server
//
// Component initialization order:
//
//  1. Configuration: Koanf v2 (defaults, config.yaml, environment)
//  2. Logging: zerolog with JSON or console output
//  3. Database: DuckDB entity store
//  4. Cooldown store: Badger, rate-limit state per brand
//  5. Event bus: Watermill GoChannel, optionally NATS JetStream
//  6. Sync manager, job runner and scheduler
//  7. WebSocket hub and event bridge
//  8. HTTP server: chi router with CORS, rate limiting and optional JWT auth
//
// # Configuration
//
//	ANALYTICS_BASE_URL=https://analytics.example.com
//	ANALYTICS_ACCESS_TOKEN=<token>
//	SYNC_WINDOWS=30,90
//	SYNC_SCHEDULE="0 */6 * * *"   # optional cron spec
//	SYNC_BRANDS=1,2,3             # brands enqueued by the scheduler
//	DUCKDB_PATH=/data/creatorsync.duckdb
//	COOLDOWN_PATH=/data/cooldown
//	NATS_ENABLED=false
//	JWT_SECRET=<32+ chars>        # empty disables API authentication
//	LOG_LEVEL=info
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains for
// server.shutdown_timeout, in-flight sync runs observe cancellation, and the
// stores are checkpointed and closed.
package main
