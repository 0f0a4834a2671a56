// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, and command-line flags, in that order of precedence.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Default values used when neither file nor flags provide a setting.
const (
	DefaultHTTPAddr    = ":8080"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultLogFormat   = "json"
)

// Config holds the runtime configuration of the service.
type Config struct {
	// HTTPAddr is the API listen address.
	HTTPAddr string `koanf:"http-addr"`

	// MetricsAddr is the metrics/health listen address; empty disables it.
	MetricsAddr string `koanf:"metrics-addr"`

	// DatabaseURL is the PostgreSQL connection string. Falls back to the
	// DATABASE_URL environment variable when not set by file or flag.
	DatabaseURL string `koanf:"database-url"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`
}

// Load builds a Config from defaults, then the YAML file at path (if
// non-empty), then any explicitly set flags.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		HTTPAddr:    DefaultHTTPAddr,
		MetricsAddr: DefaultMetricsAddr,
		LogFormat:   DefaultLogFormat,
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Passing k makes posflag skip unchanged flags whose keys the
		// file already set, so flag defaults don't mask file values.
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}

// Validate checks the configuration for a runnable service.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http-addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database-url (or DATABASE_URL) is required")
	}
	return nil
}
