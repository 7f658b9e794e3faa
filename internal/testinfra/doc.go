// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

// Package testinfra provides test infrastructure shared by package and
// integration tests.
//
// # Analytics API
//
// MockAnalyticsServer is an httptest server speaking the analytics
// endpoint's envelope and page_token pagination. Pages are registered per
// window length, and one-shot responses can be queued to inject rate
// limits or server errors:
//
//	srv := testinfra.NewMockAnalyticsServer()
//	defer srv.Close()
//	srv.SetWindow(30, page1, page2)
//	srv.Enqueue(testinfra.ScriptedResponse{Status: http.StatusTooManyRequests})
//
// # Containers
//
// Files built with the integration tag start real dependencies through
// testcontainers-go. NewNATSContainer runs a JetStream-enabled NATS server
// so the lifecycle event bus can be exercised against an external broker:
//
//	go test -tags integration ./internal/testinfra/...
//
// Tests are skipped when Docker is unavailable. The first run may need to
// pull images.
package testinfra
