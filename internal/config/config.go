// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package config loads service configuration from layered sources:
// built-in defaults, an optional YAML file, then environment variables.
// Later layers override earlier ones.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/casetrail/config.yaml",
	"/etc/casetrail/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CASETRAIL_CONFIG"

// envPrefix namespaces the environment variable layer.
const envPrefix = "CASETRAIL_"

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Audit    AuditConfig    `koanf:"audit"`
	Tracker  TrackerConfig  `koanf:"tracker"`
	Perf     PerfConfig     `koanf:"perf"`
	Alerting AlertingConfig `koanf:"alerting"`
	API      APIConfig      `koanf:"api"`
}

// ServerConfig covers the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig covers the DuckDB event store. An empty path selects the
// in-memory store, which loses events on restart.
type DatabaseConfig struct {
	Path         string `koanf:"path"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"min=1"`
	MemoryLimit  string `koanf:"memory_limit"`
}

// LoggingConfig covers the structured logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// AuditConfig covers the audit pipeline.
type AuditConfig struct {
	// Mode forces a single failure policy for all writes; empty keeps the
	// per-event-type defaults.
	Mode            string        `koanf:"mode" validate:"omitempty,oneof=strict best_effort"`
	RetentionDays   int           `koanf:"retention_days" validate:"min=1"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	MemoryBuffer    int           `koanf:"memory_buffer" validate:"min=100"`
}

// TrackerConfig covers the pattern trackers.
type TrackerConfig struct {
	MaxKeys int `koanf:"max_keys" validate:"min=1"`
}

// PerfConfig maps metric types to alert thresholds.
type PerfConfig struct {
	Thresholds map[string]float64 `koanf:"thresholds"`
}

// AlertingConfig covers alert delivery.
type AlertingConfig struct {
	Buffer  int64         `koanf:"buffer"`
	Webhook WebhookConfig `koanf:"webhook"`
	NATS    NATSConfig    `koanf:"nats"`
}

// WebhookConfig covers the webhook notifier.
type WebhookConfig struct {
	Enabled bool              `koanf:"enabled"`
	URL     string            `koanf:"url" validate:"omitempty,url"`
	Headers map[string]string `koanf:"headers"`
	Timeout time.Duration     `koanf:"timeout"`
}

// NATSConfig covers the optional NATS alert stream (requires the nats
// build tag).
type NATSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Embedded bool   `koanf:"embedded"`
	StoreDir string `koanf:"store_dir"`
}

// APIConfig covers the HTTP API surface.
type APIConfig struct {
	RateLimit   int           `koanf:"rate_limit" validate:"min=1"`
	RateWindow  time.Duration `koanf:"rate_window"`
	CORSOrigins []string      `koanf:"cors_origins"`
	JWTSecret   string        `koanf:"jwt_secret"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8585,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:         "data/casetrail.db",
			MaxOpenConns: 4,
			MemoryLimit:  "512MB",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			RetentionDays:   365,
			CleanupInterval: 6 * time.Hour,
			MemoryBuffer:    10000,
		},
		Tracker: TrackerConfig{
			MaxKeys: 10000,
		},
		Perf: PerfConfig{
			Thresholds: map[string]float64{
				"response_time": 1000,
				"query_time":    500,
			},
		},
		Alerting: AlertingConfig{
			Buffer: 256,
			Webhook: WebhookConfig{
				Timeout: 10 * time.Second,
			},
		},
		API: APIConfig{
			RateLimit:  100,
			RateWindow: time.Minute,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// CASETRAIL_* environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// envTransform maps CASETRAIL_SERVER_PORT to server.port. Only the first
// underscore becomes a section separator; the rest stay as key text, so
// CASETRAIL_AUDIT_RETENTION_DAYS maps to audit.retention_days.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, key, found := strings.Cut(s, "_")
	if !found {
		return section
	}
	return section + "." + key
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
