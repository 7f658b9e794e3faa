// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package database

import (
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/creatorsync/internal/logging"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert violates a uniqueness constraint,
	// typically because a concurrent writer created the same row first.
	ErrConflict = errors.New("unique constraint conflict")
)

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// DuckDB unique constraint error messages contain "UNIQUE constraint",
	// "PRIMARY KEY or UNIQUE constraint" or "Duplicate key"
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "unique constraint") || strings.Contains(errMsg, "duplicate key")
}

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}

// rollbackQuietly rolls back a transaction that may already be committed.
func rollbackQuietly(tx interface{ Rollback() error }) {
	_ = tx.Rollback() //nolint:errcheck // ErrTxDone after commit is expected
}
