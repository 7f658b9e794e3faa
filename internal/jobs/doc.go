// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
Package jobs runs brand syncs in the background.

Runner owns a bounded queue and a fixed worker pool. Each brand has at most one
job in flight; a second Enqueue for the same brand returns ErrAlreadyQueued.
A finished attempt has one of four outcomes:

  - done: the run completed or was partial
  - snoozed: the run hit a rate limit or an active cooldown; the job is
    re-queued at the reported next attempt time and the attempt is not counted
  - retry: any other failure, re-queued after JobRetryDelay doubled per attempt
  - discarded: JobMaxAttempts reached, or the request itself is invalid

Scheduler enqueues every configured brand on a cron schedule (UTC).

Both Runner and Scheduler expose Serve(ctx) and run under the supervisor tree.
*/
package jobs
