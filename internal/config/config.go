// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package config loads runtime settings from the environment and world
// content from YAML files.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds runtime settings. Command-line flags override it.
type Config struct {
	DBPath         string        `env:"SCRIBE_DB_PATH"         envDefault:"scribe.db"`
	WorldFile      string        `env:"SCRIBE_WORLD_FILE"`
	LogLevel       string        `env:"SCRIBE_LOG_LEVEL"       envDefault:"info"`
	LogDev         bool          `env:"SCRIBE_LOG_DEV"`
	RecursionLimit int           `env:"SCRIBE_RECURSION_LIMIT" envDefault:"8"`
	PollInterval   time.Duration `env:"SCRIBE_POLL_INTERVAL"   envDefault:"1m"`
	Seed           int64         `env:"SCRIBE_SEED"` // 0 seeds from crypto/rand
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.RecursionLimit < 1 {
		return fmt.Errorf("SCRIBE_RECURSION_LIMIT must be positive, got %d", c.RecursionLimit)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("SCRIBE_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("SCRIBE_LOG_LEVEL: %w", err)
	}
	return nil
}

// Logger builds a zap logger at the configured level: JSON output in
// production, console output with LogDev.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.LogDev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
