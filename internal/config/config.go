// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: defaultConfig()
//  2. Config File: optional YAML file (config.yaml or CONFIG_PATH)
//  3. Environment Variables: mapped explicitly in envTransformFunc
//
// Config is immutable after LoadWithKoanf() and safe for concurrent reads.
type Config struct {
	Analytics AnalyticsConfig `koanf:"analytics"`
	Sync      SyncConfig      `koanf:"sync"`
	Database  DatabaseConfig  `koanf:"database"`
	Cooldown  CooldownConfig  `koanf:"cooldown"`
	NATS      NATSConfig      `koanf:"nats"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// AnalyticsConfig configures the external creator analytics API client.
type AnalyticsConfig struct {
	BaseURL     string `koanf:"base_url"`
	VideosPath  string `koanf:"videos_path"`
	AccessToken string `koanf:"access_token"`
	AccountType string `koanf:"account_type"`
	PageSize    int    `koanf:"page_size"`
	SortField   string `koanf:"sort_field"`
	SortOrder   string `koanf:"sort_order"`

	Timeout        time.Duration `koanf:"timeout"`
	RetryAttempts  int           `koanf:"retry_attempts"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// Pacing between page requests.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	CircuitBreakerEnabled bool `koanf:"circuit_breaker_enabled"`

	// Accounts maps a brand id to the API identity it syncs as. Every
	// brand needs an entry once more than one brand syncs.
	Accounts map[string]BrandAccount `koanf:"accounts"`
}

// BrandAccount is the analytics API identity of one brand.
type BrandAccount struct {
	AccessToken string `koanf:"access_token"`
	AccountType string `koanf:"account_type"`
}

// SyncConfig configures sync runs, cross-run cooldown and the job runner.
type SyncConfig struct {
	Windows           []int         `koanf:"windows"`
	RateLimitCooldown time.Duration `koanf:"rate_limit_cooldown"`
	BackoffInitial    time.Duration `koanf:"backoff_initial"`
	BackoffMax        time.Duration `koanf:"backoff_max"`
	RunTimeout        time.Duration `koanf:"run_timeout"`

	// Schedule is a cron expression; empty disables scheduled runs.
	Schedule string  `koanf:"schedule"`
	Brands   []int64 `koanf:"brands"`

	JobWorkers     int           `koanf:"job_workers"`
	JobMaxAttempts int           `koanf:"job_max_attempts"`
	JobRetryDelay  time.Duration `koanf:"job_retry_delay"`

	// RowLogSample logs one of every N row validation failures.
	RowLogSample uint32 `koanf:"row_log_sample"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// CooldownConfig configures the Badger store holding rate-limit state.
type CooldownConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// NATSConfig configures the optional NATS transport for lifecycle events.
// Events are always published on the in-process bus.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	URL            string `koanf:"url"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`
	StreamName     string `koanf:"stream_name"`
	SubjectPrefix  string `koanf:"subject_prefix"`
	RetentionDays  int    `koanf:"retention_days"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig configures the operator API. An empty JWTSecret disables
// bearer authentication.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// AuthEnabled reports whether API requests must carry a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.Security.JWTSecret != ""
}

// BrandAccount returns the API identity for brandID. A brand listed in
// analytics.accounts uses its entry, falling back to the global account
// type. Without that map the global token serves a single brand: any brand
// while sync.brands is empty, otherwise only the one listed.
func (c *Config) BrandAccount(brandID int64) (BrandAccount, bool) {
	a := c.Analytics
	if acct, ok := a.Accounts[strconv.FormatInt(brandID, 10)]; ok {
		if acct.AccountType == "" {
			acct.AccountType = a.AccountType
		}
		return acct, true
	}
	if len(a.Accounts) > 0 || a.AccessToken == "" {
		return BrandAccount{}, false
	}
	switch len(c.Sync.Brands) {
	case 0:
	case 1:
		if c.Sync.Brands[0] != brandID {
			return BrandAccount{}, false
		}
	default:
		return BrandAccount{}, false
	}
	return BrandAccount{AccessToken: a.AccessToken, AccountType: a.AccountType}, true
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
