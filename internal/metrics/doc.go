// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
Package metrics provides Prometheus metrics collection and export for observability.

Collectors are registered with the default registry through promauto and are
exposed at GET /metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Analytics API:
  - analytics_page_requests_total{result}: ok, rate_limited, server_error,
    client_error, network_error, bad_shape
  - analytics_page_request_duration_seconds: page latency (histogram)
  - analytics_page_retries_total: transient retries inside one page
  - analytics_rows_fetched_total{window_days}

Reconciliation:
  - dedupe_duplicate_rows_total{window_days}
  - dedupe_conflict_videos_total{window_days}
  - dedupe_max_gmv_discrepancy_cents{window_days}: last run only
  - snapshot_decisions_total{window_days,decision}: insert, update, skip, error

Runs:
  - sync_runs_total{status}: completed, partial, failed, rate_limited, cooldown
  - sync_duration_seconds
  - sync_videos_synced_total, sync_row_errors_total
  - sync_last_success_timestamp_seconds{brand_id}
  - sync_rate_limit_streak{brand_id}

Circuit Breaker:
  - circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_consecutive_failures{name}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

Jobs, events and HTTP:
  - sync_jobs_queued, sync_job_outcomes_total{outcome}
  - lifecycle_events_published_total{type,result}
  - api_requests_total, api_request_duration_seconds, api_active_requests
  - websocket_connections_active, websocket_messages_sent_total
  - duckdb_query_duration_seconds{operation}, duckdb_query_errors_total{operation}

# Alerting Example

	- alert: CreatorSyncRateLimited
	  expr: max(sync_rate_limit_streak) >= 3
	  for: 30m

	- alert: CircuitBreakerOpen
	  expr: circuit_breaker_state == 2
	  for: 5m
*/
package metrics
