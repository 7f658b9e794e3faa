// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tomtom215/creatorsync/internal/cache"
	"github.com/tomtom215/creatorsync/internal/database"
	"github.com/tomtom215/creatorsync/internal/metrics"
	"github.com/tomtom215/creatorsync/internal/models"
)

// runMemoCapacity bounds the creators remembered during one run.
const runMemoCapacity = 50000

// CreatorStore is the creator side of the store. The creators table is shared
// with other subsystems, so lookups read fresh state. Only a run-scoped memo
// (see ForRun) is ever consulted before the store.
type CreatorStore interface {
	FindCreatorByAnyUsername(ctx context.Context, username string) (*models.Creator, error)
	CreateCreator(ctx context.Context, username string) (*models.Creator, error)
	EnsureBrandMembership(ctx context.Context, creatorID, brandID int64) error
}

// ResolveStatus says whether a creator already existed.
type ResolveStatus string

const (
	ResolveMatched ResolveStatus = "matched"
	ResolveCreated ResolveStatus = "created"
)

// CreatorResolver maps API usernames to creators, creating them on demand.
type CreatorResolver struct {
	store CreatorStore
	memo  *cache.LRU[string, *models.Creator]
}

// NewCreatorResolver creates a resolver backed by store.
func NewCreatorResolver(store CreatorStore) *CreatorResolver {
	return &CreatorResolver{store: store}
}

// ResolveOrCreate finds the creator whose current or previous username
// matches case-insensitively, or creates one with the lowercased username.
// A creation conflict means another writer won the race; the creator is then
// looked up once more and returned as matched. The creator is always made a
// member of brandID.
func (r *CreatorResolver) ResolveOrCreate(ctx context.Context, brandID int64, username string) (*models.Creator, ResolveStatus, error) {
	key := memoKey(brandID, username)
	if r.memo != nil {
		if creator, ok := r.memo.Get(key); ok {
			metrics.ResolverCacheLookups.WithLabelValues("hit").Inc()
			return creator, ResolveMatched, nil
		}
		metrics.ResolverCacheLookups.WithLabelValues("miss").Inc()
	}

	creator, status, err := r.resolve(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if err := r.store.EnsureBrandMembership(ctx, creator.ID, brandID); err != nil {
		return nil, "", fmt.Errorf("ensure brand membership for creator %d: %w", creator.ID, err)
	}
	if r.memo != nil {
		r.memo.Add(key, creator)
	}
	return creator, status, nil
}

// ForRun returns a resolver that remembers every creator it resolves, with
// membership already ensured, for the lifetime of one sync run. Later rows
// by the same username skip the store and report ResolveMatched.
func (r *CreatorResolver) ForRun() *CreatorResolver {
	return &CreatorResolver{
		store: r.store,
		memo:  cache.NewLRU[string, *models.Creator](runMemoCapacity, 0),
	}
}

func memoKey(brandID int64, username string) string {
	return strconv.FormatInt(brandID, 10) + ":" + database.UsernameKey(username)
}

func (r *CreatorResolver) resolve(ctx context.Context, username string) (*models.Creator, ResolveStatus, error) {
	creator, err := r.store.FindCreatorByAnyUsername(ctx, username)
	if err == nil {
		return creator, ResolveMatched, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, "", fmt.Errorf("find creator %q: %w", username, err)
	}

	creator, err = r.store.CreateCreator(ctx, username)
	if err == nil {
		return creator, ResolveCreated, nil
	}
	if !errors.Is(err, database.ErrConflict) {
		return nil, "", fmt.Errorf("create creator %q: %w", username, err)
	}

	creator, err = r.store.FindCreatorByAnyUsername(ctx, username)
	switch {
	case err == nil:
		return creator, ResolveMatched, nil
	case errors.Is(err, database.ErrNotFound):
		return nil, "", fmt.Errorf("creator %q: %w", username, ErrCreatorNotFound)
	default:
		return nil, "", fmt.Errorf("re-query creator %q after conflict: %w", username, err)
	}
}
