// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

// Package config loads CreatorSync configuration with Koanf v2.
//
// Sources, lowest to highest precedence:
//
//  1. Built-in defaults (defaultConfig)
//  2. YAML file: config.yaml, config.yml, /etc/creatorsync/config.yaml or the
//     path in CONFIG_PATH
//  3. Environment variables, mapped explicitly (unmapped names are ignored)
//
// List settings accept comma-separated env values:
//
//	SYNC_WINDOWS=30,90
//	SYNC_BRANDS=7,12
//	CORS_ORIGINS=https://ops.example.com
//
// Required settings:
//
//	ANALYTICS_BASE_URL      Analytics API base URL (no path)
//	ANALYTICS_ACCESS_TOKEN  Bearer token for the analytics API
//
// Example config.yaml:
//
//	analytics:
//	  base_url: https://analytics.example.com
//	  access_token: ${TOKEN}
//	  page_size: 100
//	sync:
//	  windows: [30, 90]
//	  rate_limit_cooldown: 10m
//	  schedule: "0 */6 * * *"
//	  brands: [7, 12]
//	nats:
//	  enabled: true
//	  embedded_server: true
//
// Usage:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
