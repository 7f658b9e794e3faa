// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
Package api is the operator HTTP surface, built on chi.

Routes:

	GET  /api/v1/health/live            liveness, plain "ok"
	GET  /api/v1/health/ready           200 when the store answers, 503 otherwise
	GET  /api/v1/health/                health summary
	GET  /metrics                       Prometheus scrape
	POST /api/v1/brands/{brandID}/sync  enqueue a sync, optional {"windows": [30, 90]}
	GET  /api/v1/brands/{brandID}/sync  last sync, cooldown, streak, recent runs, in-flight job
	GET  /api/v1/brands/{brandID}/runs  run history, ?limit=1..100 (default 20)
	GET  /api/v1/jobs                   in-flight jobs
	GET  /api/v1/events/ws              websocket lifecycle feed, ?brand_id= to filter

Everything under /api/v1 except health is rate limited per client IP
(go-chi/httprate) and, when security.jwt_secret is set, requires an HS256
bearer token (golang-jwt). Browser websocket clients may send the token in a
"token" cookie instead.

Responses use the models.APIResponse envelope. Error codes:

  - VALIDATION_ERROR (400)
  - AUTHENTICATION_ERROR (401)
  - SYNC_IN_FLIGHT (409): the brand already has a queued or running job
  - RATE_LIMIT_EXCEEDED (429)
  - DATABASE_ERROR (500)
  - QUEUE_FULL, SERVICE_UNAVAILABLE (503)
*/
package api
