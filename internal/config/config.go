// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

// Package config loads service configuration from an optional YAML file
// overlaid with command-line flags. Flag names use dashes; file keys
// use the same names with underscores.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full service configuration. One struct serves both the
// API server and the worker; each reads the fields it needs.
type Config struct {
	Env         string `koanf:"env"`
	LogFormat   string `koanf:"log_format"`
	HTTPAddr    string `koanf:"http_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	DatabaseURL string `koanf:"database_url"`
	NATSURL     string `koanf:"nats_url"`

	JWTSecret             string `koanf:"jwt_secret"`
	AccessTokenTTLMinutes int    `koanf:"access_token_ttl_minutes"`
	RefreshTokenTTLHours  int    `koanf:"refresh_token_ttl_hours"`
	MinPasswordLength     int    `koanf:"min_password_length"`
}

// AccessTokenTTL returns the access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLHours) * time.Hour
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database-url is required")
	}
	if c.JWTSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("jwt-secret is required")
	}
	if c.AccessTokenTTLMinutes <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("access-token-ttl-minutes must be positive, got %d", c.AccessTokenTTLMinutes)
	}
	if c.RefreshTokenTTLHours <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("refresh-token-ttl-hours must be positive, got %d", c.RefreshTokenTTLHours)
	}
	if c.MinPasswordLength <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("min-password-length must be positive, got %d", c.MinPasswordLength)
	}
	return nil
}

// Load reads configuration. path points at an optional YAML file; flags
// overlay it, with flag defaults filling anything the file leaves
// unset. Dashes in flag names map to underscores in file keys.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "merge flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal config").Wrap(err)
	}
	return &cfg, nil
}
