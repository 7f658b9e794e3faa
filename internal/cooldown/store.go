// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/logging"
)

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("cooldown store is closed")

const (
	keyPrefix    = "ratelimit/"
	closeTimeout = 30 * time.Second
)

// State is the persisted rate-limit record of one brand.
type State struct {
	BrandID           int64      `json:"brand_id"`
	LastRateLimitedAt *time.Time `json:"last_rate_limited_at,omitempty"`
	Streak            int        `json:"streak"`
}

// Store keeps per-brand rate-limit state in BadgerDB so cooldowns survive
// restarts and are shared by every run of the process.
type Store struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store described by cfg. With InMemory set the
// path is ignored and nothing is written to disk.
func Open(cfg *config.CooldownConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("cooldown path is required unless in_memory is set")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = true
	}
	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Cooldown store opened")
	return &Store{db: db}, nil
}

func brandKey(brandID int64) []byte {
	return []byte(keyPrefix + strconv.FormatInt(brandID, 10))
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func readState(txn *badger.Txn, brandID int64) (State, error) {
	st := State{BrandID: brandID}
	item, err := txn.Get(brandKey(brandID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("get cooldown state: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	})
	if err != nil {
		return st, fmt.Errorf("decode cooldown state: %w", err)
	}
	return st, nil
}

func writeState(txn *badger.Txn, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode cooldown state: %w", err)
	}
	return txn.Set(brandKey(st.BrandID), data)
}

// State returns the stored record for a brand. A brand that was never rate
// limited has a zero streak and nil LastRateLimitedAt.
func (s *Store) State(ctx context.Context, brandID int64) (State, error) {
	if err := s.checkOpen(); err != nil {
		return State{}, err
	}
	if err := ctx.Err(); err != nil {
		return State{}, err
	}

	var st State
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		st, err = readState(txn, brandID)
		return err
	})
	return st, err
}

// GetLastRateLimitedAt returns when the brand was last rate limited, or nil.
func (s *Store) GetLastRateLimitedAt(ctx context.Context, brandID int64) (*time.Time, error) {
	st, err := s.State(ctx, brandID)
	if err != nil {
		return nil, err
	}
	return st.LastRateLimitedAt, nil
}

// RecordRateLimit stamps the brand as rate limited at the given time and
// increments its consecutive streak. It returns the new streak.
func (s *Store) RecordRateLimit(ctx context.Context, brandID int64, at time.Time) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var streak int
	err := s.db.Update(func(txn *badger.Txn) error {
		st, err := readState(txn, brandID)
		if err != nil {
			return err
		}
		at := at.UTC()
		st.LastRateLimitedAt = &at
		st.Streak++
		streak = st.Streak
		return writeState(txn, st)
	})
	if err != nil {
		return 0, fmt.Errorf("record rate limit for brand %d: %w", brandID, err)
	}
	return streak, nil
}

// ResetRateLimitStreak sets the streak back to zero. The last rate-limited
// timestamp is kept for status reporting.
func (s *Store) ResetRateLimitStreak(ctx context.Context, brandID int64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		st, err := readState(txn, brandID)
		if err != nil {
			return err
		}
		if st.Streak == 0 {
			return nil
		}
		st.Streak = 0
		return writeState(txn, st)
	})
	if err != nil {
		return fmt.Errorf("reset rate limit streak for brand %d: %w", brandID, err)
	}
	return nil
}

// Close closes the underlying database, giving up after closeTimeout.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Cooldown store closed")
		return nil
	case <-time.After(closeTimeout):
		logging.Warn().Dur("timeout", closeTimeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", closeTimeout)
	}
}
