// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/creatorsync/config.yaml",
	"/etc/creatorsync/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Analytics: AnalyticsConfig{
			BaseURL:               "",
			VideosPath:            "/api/v2/analytics/creator_videos",
			AccountType:           "brand",
			PageSize:              100,
			SortField:             "gmv",
			SortOrder:             "desc",
			Timeout:               30 * time.Second,
			RetryAttempts:         3,
			RetryBaseDelay:        500 * time.Millisecond,
			RequestsPerSecond:     2,
			Burst:                 1,
			CircuitBreakerEnabled: true,
		},
		Sync: SyncConfig{
			Windows:           []int{30, 90},
			RateLimitCooldown: 10 * time.Minute,
			BackoffInitial:    10 * time.Minute,
			BackoffMax:        2 * time.Hour,
			RunTimeout:        30 * time.Minute,
			Schedule:          "",
			JobWorkers:        2,
			JobMaxAttempts:    5,
			JobRetryDelay:     time.Minute,
			RowLogSample:      10,
		},
		Database: DatabaseConfig{
			Path:      "/data/creatorsync.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Cooldown: CooldownConfig{
			Path:     "/data/cooldown",
			InMemory: false,
		},
		NATS: NATSConfig{
			Enabled:        false,
			EmbeddedServer: true,
			URL:            "nats://127.0.0.1:4222",
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      256 << 20, // 256MB
			MaxStore:       1 << 30,   // 1GB
			StreamName:     "CREATORSYNC",
			SubjectPrefix:  "creatorsync.sync",
			RetentionDays:  7,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (last wins).
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	if err := processAccountsField(k); err != nil {
		return nil, fmt.Errorf("failed to process brand accounts: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"sync.windows",
	"sync.brands",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings; YAML lists are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// processAccountsField expands the ANALYTICS_ACCOUNTS env form
// "brand=token[:account_type],..." into the analytics.accounts map. YAML maps
// are left untouched.
func processAccountsField(k *koanf.Koanf) error {
	const path = "analytics.accounts"
	strVal, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	k.Delete(path)
	if strings.TrimSpace(strVal) == "" {
		return nil
	}

	accounts := make(map[string]any)
	for _, entry := range strings.Split(strVal, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		brand, rest, found := strings.Cut(entry, "=")
		if !found {
			return fmt.Errorf("entry %q must look like brand=token[:account_type]", entry)
		}
		token, accountType, _ := strings.Cut(rest, ":")
		accounts[strings.TrimSpace(brand)] = map[string]any{
			"access_token": strings.TrimSpace(token),
			"account_type": strings.TrimSpace(accountType),
		}
	}
	return k.Set(path, accounts)
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Analytics API
	"analytics_base_url":                "analytics.base_url",
	"analytics_videos_path":             "analytics.videos_path",
	"analytics_access_token":            "analytics.access_token",
	"analytics_account_type":            "analytics.account_type",
	"analytics_page_size":               "analytics.page_size",
	"analytics_sort_field":              "analytics.sort_field",
	"analytics_sort_order":              "analytics.sort_order",
	"analytics_timeout":                 "analytics.timeout",
	"analytics_retry_attempts":          "analytics.retry_attempts",
	"analytics_retry_base_delay":        "analytics.retry_base_delay",
	"analytics_requests_per_second":     "analytics.requests_per_second",
	"analytics_burst":                   "analytics.burst",
	"analytics_circuit_breaker_enabled": "analytics.circuit_breaker_enabled",
	"analytics_accounts":                "analytics.accounts",

	// Sync
	"sync_windows":             "sync.windows",
	"sync_rate_limit_cooldown": "sync.rate_limit_cooldown",
	"sync_backoff_initial":     "sync.backoff_initial",
	"sync_backoff_max":         "sync.backoff_max",
	"sync_run_timeout":         "sync.run_timeout",
	"sync_schedule":            "sync.schedule",
	"sync_brands":              "sync.brands",
	"sync_job_workers":         "sync.job_workers",
	"sync_job_max_attempts":    "sync.job_max_attempts",
	"sync_job_retry_delay":     "sync.job_retry_delay",
	"sync_row_log_sample":      "sync.row_log_sample",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Cooldown store
	"cooldown_path":      "cooldown.path",
	"cooldown_in_memory": "cooldown.in_memory",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_embedded":       "nats.embedded_server",
	"nats_url":            "nats.url",
	"nats_store_dir":      "nats.store_dir",
	"nats_max_memory":     "nats.max_memory",
	"nats_max_store":      "nats.max_store",
	"nats_stream_name":    "nats.stream_name",
	"nats_subject_prefix": "nats.subject_prefix",
	"nats_retention_days": "nats.retention_days",

	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - ANALYTICS_BASE_URL -> analytics.base_url
//   - SYNC_WINDOWS -> sync.windows
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped variables are skipped so unrelated environment does not
	// pollute the config.
	return ""
}
