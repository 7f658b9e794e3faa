// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Analytics.BaseURL = "https://analytics.example.com"
	cfg.Analytics.AccessToken = "token"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"missing base url", func(c *Config) { c.Analytics.BaseURL = "" }, "ANALYTICS_BASE_URL is required"},
		{"base url with path", func(c *Config) { c.Analytics.BaseURL = "https://x.example.com/api" }, "base URL only"},
		{"bad scheme", func(c *Config) { c.Analytics.BaseURL = "ftp://x.example.com" }, "scheme must be http"},
		{"missing token", func(c *Config) { c.Analytics.AccessToken = "" }, "ANALYTICS_ACCESS_TOKEN"},
		{"accounts replace global token", func(c *Config) {
			c.Analytics.AccessToken = ""
			c.Analytics.Accounts = map[string]BrandAccount{"1": {AccessToken: "a"}, "2": {AccessToken: "b"}}
			c.Sync.Brands = []int64{1, 2}
		}, ""},
		{"account key not a brand id", func(c *Config) {
			c.Analytics.Accounts = map[string]BrandAccount{"brand-1": {AccessToken: "a"}}
		}, "positive brand ids"},
		{"account key with leading zero", func(c *Config) {
			c.Analytics.Accounts = map[string]BrandAccount{"01": {AccessToken: "a"}}
		}, "positive brand ids"},
		{"account without token", func(c *Config) {
			c.Analytics.Accounts = map[string]BrandAccount{"1": {AccountType: "shop"}}
		}, "no access token"},
		{"accounts share a token", func(c *Config) {
			c.Analytics.Accounts = map[string]BrandAccount{"1": {AccessToken: "same"}, "2": {AccessToken: "same"}}
		}, "share an access token"},
		{"several brands on the global token", func(c *Config) { c.Sync.Brands = []int64{1, 2} }, "SYNC_BRANDS entry 1"},
		{"brand missing from accounts", func(c *Config) {
			c.Analytics.Accounts = map[string]BrandAccount{"1": {AccessToken: "a"}}
			c.Sync.Brands = []int64{1, 2}
		}, "SYNC_BRANDS entry 2"},
		{"single brand on the global token", func(c *Config) { c.Sync.Brands = []int64{5} }, ""},
		{"bad sort order", func(c *Config) { c.Analytics.SortOrder = "up" }, "SORT_ORDER"},
		{"no windows", func(c *Config) { c.Sync.Windows = nil }, "SYNC_WINDOWS"},
		{"window too large", func(c *Config) { c.Sync.Windows = []int{30, 400} }, "SYNC_WINDOWS"},
		{"backoff max below initial", func(c *Config) { c.Sync.BackoffMax = c.Sync.BackoffInitial / 2 }, "SYNC_BACKOFF_MAX"},
		{"bad schedule", func(c *Config) { c.Sync.Schedule = "every day"; c.Sync.Brands = []int64{1} }, "SYNC_SCHEDULE"},
		{"schedule without brands", func(c *Config) { c.Sync.Schedule = "@hourly" }, "SYNC_BRANDS"},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }, "JWT_SECRET"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"nats external bad url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.EmbeddedServer = false
			c.NATS.URL = "http://localhost:4222"
		}, "NATS_URL"},
		{"nats bad stream name", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.StreamName = "a.b"
		}, "NATS_STREAM_NAME"},
		{"rate limit disabled skips bounds", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if cfg.ShouldWarnAboutCORS() {
		t.Error("no warning expected without auth")
	}
	cfg.Security.JWTSecret = strings.Repeat("s", 32)
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("expected warning for wildcard CORS with auth")
	}
}

func TestBrandAccount(t *testing.T) {
	t.Parallel()

	withAccounts := validConfig()
	withAccounts.Analytics.AccountType = "brand"
	withAccounts.Analytics.Accounts = map[string]BrandAccount{
		"1": {AccessToken: "tok-1"},
		"2": {AccessToken: "tok-2", AccountType: "shop"},
	}

	singleBrand := validConfig()
	singleBrand.Sync.Brands = []int64{9}

	tests := []struct {
		name    string
		cfg     *Config
		brandID int64
		want    BrandAccount
		wantOK  bool
	}{
		{"mapped brand inherits account type", withAccounts, 1, BrandAccount{AccessToken: "tok-1", AccountType: "brand"}, true},
		{"mapped brand keeps own account type", withAccounts, 2, BrandAccount{AccessToken: "tok-2", AccountType: "shop"}, true},
		{"unmapped brand with accounts", withAccounts, 3, BrandAccount{}, false},
		{"global token, no brand list", validConfig(), 42, BrandAccount{AccessToken: "token", AccountType: "brand"}, true},
		{"global token, listed brand", singleBrand, 9, BrandAccount{AccessToken: "token", AccountType: "brand"}, true},
		{"global token, other brand", singleBrand, 10, BrandAccount{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.cfg.BrandAccount(tt.brandID)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("BrandAccount(%d) = %+v, %v; want %+v, %v", tt.brandID, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
