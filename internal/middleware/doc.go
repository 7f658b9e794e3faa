// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

// Package middleware provides HTTP middleware shared by the API router.
//
// Compression gzips JSON responses for clients sending
// Accept-Encoding: gzip. Writers are pooled. WebSocket upgrade requests are
// never wrapped, so the hijacked connection stays raw.
package middleware
