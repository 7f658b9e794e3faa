// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/creatorsync/internal/models"
)

// SchemaVersion is the current SyncEvent schema version.
const SchemaVersion = 1

// LocalTopic is the in-process topic every lifecycle event is published on.
const LocalTopic = "sync.lifecycle"

// EventType names a run lifecycle transition.
type EventType string

const (
	EventSyncStarted   EventType = "sync.started"
	EventSyncCompleted EventType = "sync.completed"
	EventSyncFailed    EventType = "sync.failed"
)

// SyncEvent is one run lifecycle notification. Completed events carry the
// run stats; failed events carry the error text and final status.
type SyncEvent struct {
	SchemaVersion int               `json:"schema_version"`
	EventID       string            `json:"event_id"`
	Type          EventType         `json:"type"`
	RunID         string            `json:"run_id"`
	BrandID       int64             `json:"brand_id"`
	Windows       []int             `json:"windows,omitempty"`
	Status        models.SyncStatus `json:"status,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`

	// Partial-success context for operators.
	RowErrors      int `json:"row_errors,omitempty"`
	RowsConsidered int `json:"rows_considered,omitempty"`

	Stats         *models.SyncStats `json:"stats,omitempty"`
	Error         string            `json:"error,omitempty"`
	NextAttemptAt *time.Time        `json:"next_attempt_at,omitempty"`
}

// NewStartedEvent builds the event emitted before the first fetch.
func NewStartedEvent(runID string, brandID int64, windows []int) *SyncEvent {
	return newEvent(EventSyncStarted, runID, brandID, windows)
}

// NewCompletedEvent builds the event for a completed or partial run.
func NewCompletedEvent(stats *models.SyncStats) *SyncEvent {
	e := newEvent(EventSyncCompleted, stats.RunID, stats.BrandID, stats.Windows)
	e.Status = stats.Status
	e.RowErrors = stats.RowErrors
	e.RowsConsidered = stats.RowsConsidered
	e.Stats = stats
	return e
}

// NewFailedEvent builds the event for a failed or rate-limited run.
func NewFailedEvent(run *models.SyncRun) *SyncEvent {
	e := newEvent(EventSyncFailed, run.RunID, run.BrandID, run.Windows)
	e.Status = run.Status
	e.Error = run.Error
	if run.Stats != nil {
		e.NextAttemptAt = run.Stats.NextAttemptAt
	}
	return e
}

func newEvent(t EventType, runID string, brandID int64, windows []int) *SyncEvent {
	return &SyncEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		Type:          t,
		RunID:         runID,
		BrandID:       brandID,
		Windows:       windows,
		Timestamp:     time.Now().UTC(),
	}
}

// Subject returns the NATS subject for the event under prefix,
// e.g. creatorsync.sync.completed.
func (e *SyncEvent) Subject(prefix string) string {
	return prefix + "." + string(e.Type)
}

// Validate checks the fields every consumer relies on.
func (e *SyncEvent) Validate() error {
	switch {
	case e.EventID == "":
		return errors.New("event_id is required")
	case e.RunID == "":
		return errors.New("run_id is required")
	case e.BrandID == 0:
		return errors.New("brand_id is required")
	}
	switch e.Type {
	case EventSyncStarted, EventSyncCompleted, EventSyncFailed:
		return nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

// Marshal validates and encodes an event.
func Marshal(e *SyncEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an event.
func Unmarshal(data []byte) (*SyncEvent, error) {
	var e SyncEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}
