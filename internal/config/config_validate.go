// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateAnalytics(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateAnalytics() error {
	a := c.Analytics
	if a.BaseURL == "" {
		return fmt.Errorf("ANALYTICS_BASE_URL is required")
	}
	if err := validateHTTPURL(a.BaseURL, "ANALYTICS_BASE_URL"); err != nil {
		return err
	}
	if !strings.HasPrefix(a.VideosPath, "/") {
		return fmt.Errorf("ANALYTICS_VIDEOS_PATH must start with /")
	}
	if a.AccessToken == "" && len(a.Accounts) == 0 {
		return fmt.Errorf("ANALYTICS_ACCESS_TOKEN is required")
	}
	if err := validateAccounts(a.Accounts); err != nil {
		return err
	}
	if a.PageSize < 1 || a.PageSize > 1000 {
		return fmt.Errorf("ANALYTICS_PAGE_SIZE must be between 1 and 1000")
	}
	if a.SortOrder != "asc" && a.SortOrder != "desc" {
		return fmt.Errorf("ANALYTICS_SORT_ORDER must be asc or desc")
	}
	if a.RetryAttempts < 1 || a.RetryAttempts > 10 {
		return fmt.Errorf("ANALYTICS_RETRY_ATTEMPTS must be between 1 and 10")
	}
	if a.RetryBaseDelay <= 0 {
		return fmt.Errorf("ANALYTICS_RETRY_BASE_DELAY must be positive")
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("ANALYTICS_TIMEOUT must be positive")
	}
	if a.RequestsPerSecond <= 0 {
		return fmt.Errorf("ANALYTICS_REQUESTS_PER_SECOND must be positive")
	}
	if a.Burst < 1 {
		return fmt.Errorf("ANALYTICS_BURST must be at least 1")
	}
	return nil
}

// validateAccounts checks brand keys and rejects a token shared by two
// brands, which would store one account's videos under both.
func validateAccounts(accounts map[string]BrandAccount) error {
	owners := make(map[string]string, len(accounts))
	keys := make([]string, 0, len(accounts))
	for key := range accounts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 || strconv.FormatInt(id, 10) != key {
			return fmt.Errorf("ANALYTICS_ACCOUNTS keys must be positive brand ids, got %q", key)
		}
		token := accounts[key].AccessToken
		if token == "" {
			return fmt.Errorf("ANALYTICS_ACCOUNTS brand %s has no access token", key)
		}
		if owner, dup := owners[token]; dup {
			return fmt.Errorf("ANALYTICS_ACCOUNTS brands %s and %s share an access token", owner, key)
		}
		owners[token] = key
	}
	return nil
}

// maxWindowDays bounds a trailing window to one year of history.
const maxWindowDays = 365

func (c *Config) validateSync() error {
	s := c.Sync
	if len(s.Windows) == 0 {
		return fmt.Errorf("SYNC_WINDOWS must list at least one window")
	}
	for _, w := range s.Windows {
		if w < 1 || w > maxWindowDays {
			return fmt.Errorf("SYNC_WINDOWS entries must be between 1 and %d, got %d", maxWindowDays, w)
		}
	}
	if s.RateLimitCooldown < 0 {
		return fmt.Errorf("SYNC_RATE_LIMIT_COOLDOWN must not be negative")
	}
	if s.BackoffInitial <= 0 {
		return fmt.Errorf("SYNC_BACKOFF_INITIAL must be positive")
	}
	if s.BackoffMax < s.BackoffInitial {
		return fmt.Errorf("SYNC_BACKOFF_MAX must be >= SYNC_BACKOFF_INITIAL")
	}
	if s.JobWorkers < 1 {
		return fmt.Errorf("SYNC_JOB_WORKERS must be at least 1")
	}
	if s.JobMaxAttempts < 1 {
		return fmt.Errorf("SYNC_JOB_MAX_ATTEMPTS must be at least 1")
	}
	if s.RowLogSample < 1 {
		return fmt.Errorf("SYNC_ROW_LOG_SAMPLE must be at least 1")
	}
	for _, b := range s.Brands {
		if b <= 0 {
			return fmt.Errorf("SYNC_BRANDS entries must be positive, got %d", b)
		}
		if _, ok := c.BrandAccount(b); !ok {
			return fmt.Errorf("SYNC_BRANDS entry %d has no ANALYTICS_ACCOUNTS entry", b)
		}
	}
	if s.Schedule != "" {
		if _, err := cron.ParseStandard(s.Schedule); err != nil {
			return fmt.Errorf("SYNC_SCHEDULE is not a valid cron expression: %w", err)
		}
		if len(s.Brands) == 0 {
			return fmt.Errorf("SYNC_BRANDS is required when SYNC_SCHEDULE is set")
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if !c.Cooldown.InMemory && c.Cooldown.Path == "" {
		return fmt.Errorf("COOLDOWN_PATH is required unless COOLDOWN_IN_MEMORY=true")
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.EmbeddedServer {
		if err := validateNATSURL(c.NATS.URL); err != nil {
			return err
		}
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
	}
	if c.NATS.StreamName == "" || strings.ContainsAny(c.NATS.StreamName, ". *>") {
		return fmt.Errorf("NATS_STREAM_NAME must be non-empty and contain no '.', ' ', '*' or '>'")
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX is required when NATS is enabled")
	}
	if c.NATS.RetentionDays < 1 {
		return fmt.Errorf("NATS_RETENTION_DAYS must be at least 1")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
	minJWTSecretLength   = 32
)

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// ShouldWarnAboutCORS reports a wildcard origin on an authenticated API.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.AuthEnabled() {
		return false
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	"fatal": true, "panic": true, "disabled": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, disabled")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}
