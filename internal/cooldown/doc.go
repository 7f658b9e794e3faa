// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

// Package cooldown persists per-brand analytics rate-limit state.
//
// Each brand has one BadgerDB key, ratelimit/<brand_id>, holding a JSON
// record of the last rate-limited time and the consecutive streak. The sync
// manager refuses to start a run while Policy.Active reports a cooldown, and
// uses Policy.Backoff on the streak to decide when a rate-limited job should
// be retried. A successful run resets the streak.
package cooldown
