// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
creators.go - Creator Identity Store

Creators are shared with the creator management subsystem, which renames
creators and records historical usernames. The sync pipeline only looks
creators up, creates them on a genuine miss and adds brand membership.

Operations:
  - FindCreatorByAnyUsername: case-insensitive match on current or previous usernames
  - CreateCreator: insert with the lowercased username, ErrConflict on a lost race
  - EnsureBrandMembership: idempotent creator to brand association
  - RenameCreator: move the current username into history (management side)
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/creatorsync/internal/models"
)

// UsernameKey normalizes a username for identity comparison.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// FindCreatorByAnyUsername returns the creator whose current or previous
// username matches case-insensitively. A current-username match wins over a
// historical one. Returns ErrNotFound when nothing matches.
func (db *DB) FindCreatorByAnyUsername(ctx context.Context, username string) (*models.Creator, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	key := UsernameKey(username)
	if key == "" {
		return nil, ErrNotFound
	}

	creator, err := db.scanCreator(db.conn.QueryRowContext(ctx, `
		SELECT id, username, created_at, updated_at
		FROM creators
		WHERE username_key = ?`, key))
	if errors.Is(err, ErrNotFound) {
		creator, err = db.scanCreator(db.conn.QueryRowContext(ctx, `
			SELECT c.id, c.username, c.created_at, c.updated_at
			FROM creators c
			JOIN creator_usernames u ON u.creator_id = c.id
			WHERE u.username_key = ?
			ORDER BY c.id
			LIMIT 1`, key))
	}
	if err != nil {
		return nil, err
	}

	if creator.PreviousUsernames, err = db.previousUsernames(ctx, creator.ID); err != nil {
		return nil, err
	}
	return creator, nil
}

// GetCreator returns a creator by id.
func (db *DB) GetCreator(ctx context.Context, id int64) (*models.Creator, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	creator, err := db.scanCreator(db.conn.QueryRowContext(ctx, `
		SELECT id, username, created_at, updated_at FROM creators WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if creator.PreviousUsernames, err = db.previousUsernames(ctx, creator.ID); err != nil {
		return nil, err
	}
	return creator, nil
}

func (db *DB) scanCreator(row *sql.Row) (*models.Creator, error) {
	var c models.Creator
	if err := row.Scan(&c.ID, &c.Username, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan creator: %w", err)
	}
	return &c, nil
}

func (db *DB) previousUsernames(ctx context.Context, creatorID int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT username FROM creator_usernames WHERE creator_id = ? ORDER BY username_key`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query previous usernames: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan previous username: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CreateCreator inserts a creator with the lowercased username. If another
// writer already holds the username the error wraps ErrConflict.
func (db *DB) CreateCreator(ctx context.Context, username string) (*models.Creator, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	key := UsernameKey(username)
	if key == "" {
		return nil, fmt.Errorf("create creator: username is blank")
	}

	now := time.Now().UTC()
	c := &models.Creator{Username: key, CreatedAt: now, UpdatedAt: now}
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO creators (username, username_key, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`, key, key, now, now).Scan(&c.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("create creator %q: %w", key, ErrConflict)
		}
		return nil, fmt.Errorf("create creator %q: %w", key, err)
	}
	return c, nil
}

// EnsureBrandMembership associates a creator with a brand. Existing
// memberships are left untouched.
func (db *DB) EnsureBrandMembership(ctx context.Context, creatorID, brandID int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO creator_brands (creator_id, brand_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (creator_id, brand_id) DO NOTHING`, creatorID, brandID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ensure brand membership creator=%d brand=%d: %w", creatorID, brandID, err)
	}
	return nil
}

// IsBrandMember reports whether the creator belongs to the brand.
func (db *DB) IsBrandMember(ctx context.Context, creatorID, brandID int64) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM creator_brands WHERE creator_id = ? AND brand_id = ?`,
		creatorID, brandID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check brand membership: %w", err)
	}
	return n > 0, nil
}

// RenameCreator changes a creator's current username and records the old one
// as a previous username.
func (db *DB) RenameCreator(ctx context.Context, creatorID int64, newUsername string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	newKey := UsernameKey(newUsername)
	if newKey == "" {
		return fmt.Errorf("rename creator: username is blank")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename: %w", err)
	}
	defer rollbackQuietly(tx)

	var oldName, oldKey string
	err = tx.QueryRowContext(ctx, `SELECT username, username_key FROM creators WHERE id = ?`, creatorID).
		Scan(&oldName, &oldKey)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load creator for rename: %w", err)
	}
	if oldKey == newKey {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO creator_usernames (creator_id, username, username_key)
		VALUES (?, ?, ?)
		ON CONFLICT (creator_id, username_key) DO NOTHING`, creatorID, oldName, oldKey); err != nil {
		return fmt.Errorf("record previous username: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE creators SET username = ?, username_key = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(newUsername), newKey, time.Now().UTC(), creatorID); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("rename creator %d to %q: %w", creatorID, newKey, ErrConflict)
		}
		return fmt.Errorf("rename creator: %w", err)
	}

	return tx.Commit()
}
