// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package config loads narrate settings from the environment and from
// story manifests.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"nickandperla.net/narrate/internal/logger"
)

// Config holds settings read from the environment.
type Config struct {
	LogLevel    string `env:"NARRATE_LOG_LEVEL" envDefault:"warn"`
	LogEncoding string `env:"NARRATE_LOG_ENCODING" envDefault:"console"`
	LogOutput   string `env:"NARRATE_LOG_OUTPUT" envDefault:"stderr"`
	Transcript  string `env:"NARRATE_TRANSCRIPT"`
	MaxRetries  int    `env:"NARRATE_MAX_RETRIES" envDefault:"0"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the given dotenv files, or .env when none are named, and then
// parses Config from the environment. Missing dotenv files are ignored and
// variables already set in the environment win.
func Load(dotenvFiles ...string) (Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("parse env: NARRATE_MAX_RETRIES must not be negative, got %d", cfg.MaxRetries)
	}
	return cfg, nil
}

// Logger returns the logger settings.
func (c Config) Logger() logger.Config {
	return logger.Config{
		Level:      c.LogLevel,
		Encoding:   c.LogEncoding,
		OutputPath: c.LogOutput,
	}
}
