// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
Package sync reconciles creator video analytics from the external analytics
API into the store.

The API returns the same video several times across pages and windows, with
metric values that disagree. A run turns that noisy input into one canonical
all-time row per video and one dated snapshot per video and window, and
re-running it with the same data changes nothing.

Key Components:

  - Client: paginated fetch with per-page retry, request pacing, circuit
    breaker and rate-limit detection (client.go, circuit_breaker.go)
  - CreatorResolver: username to creator, race tolerant (resolver.go)
  - VideoUpserter: union-of-windows canonical upsert (upserter.go)
  - SnapshotPersister: quality-gated snapshot writes (snapshots.go)
  - ProductLinker: best-effort video to product links (products.go)
  - Manager: RunSync and brand status (manager.go)

Error Taxonomy:

Errors that break pagination or the fetch are fatal to the run:

  - ErrRateLimited / *RateLimitedError: never retried inline; escalates the
    persisted streak so the caller can reschedule
  - *ServerError, *NetworkError: retried per page, fatal once exhausted
  - *APIError: other 4xx, fatal immediately
  - *UnexpectedResponseShapeError: logged with a truncated sample, fatal

Errors scoped to one row (missing video id or username, one failed write,
one failed product link) are counted and logged. A run with row errors
finishes with status partial.

Usage Example:

	client := sync.NewClient(&cfg.Analytics)
	manager := sync.NewManager(client, db, cooldownStore, publisher, cfg)

	stats, err := manager.RunSync(ctx, brandID, nil)
	var rl *sync.RateLimitedError
	switch {
	case errors.As(err, &rl):
	    // reschedule at rl.NextAttemptAt
	case err != nil:
	    // failed, nothing persisted for this run
	case stats.Status == models.SyncStatusCooldown:
	    // skipped, retry at *stats.NextAttemptAt
	}

Thread Safety:

Manager is safe for concurrent use across brands. Runs for the same brand
must not overlap; internal/jobs enforces this.
*/
package sync
