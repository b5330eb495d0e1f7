// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

// Package config loads service configuration from a YAML file, command-line
// flags, and environment fallbacks, in increasing order of precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Cache backend selectors.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config is the full service configuration.
type Config struct {
	// ListenAddr is the API listen address.
	ListenAddr string `koanf:"listen_addr"`

	// MetricsAddr is the observability (metrics/probes) listen address.
	MetricsAddr string `koanf:"metrics_addr"`

	// DatabaseURL is the PostgreSQL connection string for the credential store.
	DatabaseURL string `koanf:"database_url"`

	// RedisAddr is the Redis host:port for the session cache.
	RedisAddr string `koanf:"redis_addr"`

	// CacheBackend selects the session cache: "redis" or "memory".
	CacheBackend string `koanf:"cache_backend"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// SessionTTL is the fixed lifetime of issued session tokens.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// PasswordMinLen is the minimum accepted password length.
	PasswordMinLen int `koanf:"password_min_len"`

	// Argon2MemoryKiB is the argon2id memory cost parameter in KiB.
	Argon2MemoryKiB int `koanf:"argon2_memory_kib"`
}

// defaults returns the baseline configuration values.
func defaults() map[string]any {
	return map[string]any{
		"listen_addr":       ":4002",
		"metrics_addr":      "127.0.0.1:9100",
		"cache_backend":     CacheBackendRedis,
		"log_format":        "json",
		"session_ttl":       "24h",
		"password_min_len":  8,
		"argon2_memory_kib": 64 * 1024,
	}
}

// Load builds a Config from defaults, an optional YAML file, environment
// fallbacks (DATABASE_URL, REDIS_ADDR), and flags, in that order.
// path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_DEFAULTS_FAILED").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	// Environment fallbacks, kept for container deployments where a config
	// file is overkill. Only applied when the file didn't set the key.
	if !k.Exists("database_url") {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			if err := k.Set("database_url", url); err != nil {
				return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
			}
		}
	}
	if !k.Exists("redis_addr") {
		if addr := os.Getenv("REDIS_ADDR"); addr != "" {
			if err := k.Set("redis_addr", addr); err != nil {
				return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
			}
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database_url is required (set it in the config file or via DATABASE_URL)")
	}
	switch c.CacheBackend {
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			return oops.Code("CONFIG_INVALID").
				Errorf("redis_addr is required when cache_backend is %q", CacheBackendRedis)
		}
	case CacheBackendMemory:
	default:
		return oops.Code("CONFIG_INVALID").
			Errorf("cache_backend must be %q or %q, got %q", CacheBackendRedis, CacheBackendMemory, c.CacheBackend)
	}
	if c.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session_ttl must be positive")
	}
	if c.PasswordMinLen <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("password_min_len must be positive")
	}
	return nil
}
