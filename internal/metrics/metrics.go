// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// HTTP API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Analytics API (upstream) Metrics
	AnalyticsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_page_requests_total",
			Help: "Analytics API page requests by outcome",
		},
		[]string{"result"}, // ok, rate_limited, server_error, client_error, network_error, bad_shape
	)

	AnalyticsRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_page_request_duration_seconds",
			Help:    "Latency of single analytics API page requests",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	AnalyticsRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_page_retries_total",
			Help: "Page requests retried after a transient failure",
		},
	)

	AnalyticsRowsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_rows_fetched_total",
			Help: "Raw rows returned by the analytics API",
		},
		[]string{"window_days"},
	)

	// Dedupe Metrics
	DedupeDuplicateRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedupe_duplicate_rows_total",
			Help: "Rows collapsed into another row with the same video id",
		},
		[]string{"window_days"},
	)

	DedupeConflictVideos = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedupe_conflict_videos_total",
			Help: "Video ids whose duplicate rows disagreed on gmv, views or items sold",
		},
		[]string{"window_days"},
	)

	DedupeMaxGMVDiscrepancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dedupe_max_gmv_discrepancy_cents",
			Help: "Largest GMV spread seen inside one conflicting group in the last run",
		},
		[]string{"window_days"},
	)

	// Snapshot Metrics
	SnapshotDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_decisions_total",
			Help: "Snapshot persist decisions by window",
		},
		[]string{"window_days", "decision"}, // insert, update, skip, error
	)

	// Sync Run Metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Finished sync runs by status",
		},
		[]string{"status"},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	SyncVideosSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_videos_synced_total",
			Help: "Canonical videos upserted",
		},
	)

	SyncRowErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_row_errors_total",
			Help: "Row-level failures isolated during sync runs",
		},
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful sync per brand",
		},
		[]string{"brand_id"},
	)

	SyncRateLimitStreak = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_rate_limit_streak",
			Help: "Consecutive rate-limited runs per brand",
		},
		[]string{"brand_id"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	ResolverCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_resolver_cache_lookups_total",
			Help: "Per-run creator resolution memo lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// Job Runner Metrics
	JobsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_jobs_queued",
			Help: "Jobs waiting or snoozed in the runner",
		},
	)

	JobOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_job_outcomes_total",
			Help: "Job attempts by outcome",
		},
		[]string{"outcome"}, // done, snoozed, retry, discarded, rejected
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_events_published_total",
			Help: "Lifecycle events published by type and result",
		},
		[]string{"type", "result"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAnalyticsRequest records one upstream page request.
func RecordAnalyticsRequest(result string, duration time.Duration) {
	AnalyticsRequests.WithLabelValues(result).Inc()
	AnalyticsRequestDuration.Observe(duration.Seconds())
}

// RecordDedupe records per-window dedupe counters.
func RecordDedupe(windowDays, rowsFetched, duplicateRows, conflictVideos int, maxDiscrepancyCents int64) {
	w := strconv.Itoa(windowDays)
	AnalyticsRowsFetched.WithLabelValues(w).Add(float64(rowsFetched))
	DedupeDuplicateRows.WithLabelValues(w).Add(float64(duplicateRows))
	DedupeConflictVideos.WithLabelValues(w).Add(float64(conflictVideos))
	DedupeMaxGMVDiscrepancy.WithLabelValues(w).Set(float64(maxDiscrepancyCents))
}

// RecordSnapshotDecisions records the outcome counters of one window persist.
func RecordSnapshotDecisions(windowDays, inserted, updated, skipped, errs int) {
	w := strconv.Itoa(windowDays)
	SnapshotDecisions.WithLabelValues(w, "insert").Add(float64(inserted))
	SnapshotDecisions.WithLabelValues(w, "update").Add(float64(updated))
	SnapshotDecisions.WithLabelValues(w, "skip").Add(float64(skipped))
	SnapshotDecisions.WithLabelValues(w, "error").Add(float64(errs))
}

// RecordSyncRun records a finished run. Successful runs also stamp the
// brand's last-success gauge.
func RecordSyncRun(brandID int64, status string, duration time.Duration, videosSynced, rowErrors int, success bool) {
	SyncRuns.WithLabelValues(status).Inc()
	SyncDuration.Observe(duration.Seconds())
	SyncVideosSynced.Add(float64(videosSynced))
	SyncRowErrors.Add(float64(rowErrors))
	if success {
		SyncLastSuccess.WithLabelValues(strconv.FormatInt(brandID, 10)).Set(float64(time.Now().Unix()))
	}
}

// SetRateLimitStreak publishes a brand's current rate-limit streak.
func SetRateLimitStreak(brandID int64, streak int) {
	SyncRateLimitStreak.WithLabelValues(strconv.FormatInt(brandID, 10)).Set(float64(streak))
}

// RecordEventPublish records a lifecycle event publish attempt.
func RecordEventPublish(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EventsPublished.WithLabelValues(eventType, result).Inc()
}
