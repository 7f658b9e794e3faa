// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package cooldown

import "time"

// maxBackoffDoublings bounds the exponent so the delay grows 1x, 2x, 4x, 8x.
const maxBackoffDoublings = 3

// Policy turns persisted state into run decisions.
type Policy struct {
	// Window is how long after a rate limit new runs are refused.
	Window time.Duration
	// Initial and Max bound the retry delay computed from the streak.
	Initial time.Duration
	Max     time.Duration
}

// Active reports whether a brand last limited at last is still cooling down
// at now, and when the cooldown ends.
func (p Policy) Active(last *time.Time, now time.Time) (bool, time.Time) {
	if last == nil || p.Window <= 0 {
		return false, time.Time{}
	}
	until := last.Add(p.Window)
	return now.Before(until), until
}

// Backoff returns initial * 2^min(streak-1, 3), capped at Max.
func (p Policy) Backoff(streak int) time.Duration {
	if streak < 1 {
		streak = 1
	}
	exp := streak - 1
	if exp > maxBackoffDoublings {
		exp = maxBackoffDoublings
	}
	d := p.Initial << exp
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}
