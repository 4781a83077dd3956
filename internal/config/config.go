// Package config resolves runtime settings from COFIRE_* environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	envLogLevel    = "COFIRE_LOG_LEVEL"
	envLogFormat   = "COFIRE_LOG_FORMAT"
	envListenAddr  = "COFIRE_LISTEN_ADDR"
	envReadTimeout = "COFIRE_READ_TIMEOUT"
	envPlantsFile  = "COFIRE_PLANTS_FILE"
)

// Log output formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Defaults applied when a variable is unset or invalid.
const (
	DefaultLogLevel    = zerolog.InfoLevel
	DefaultLogFormat   = LogFormatJSON
	DefaultListenAddr  = ":8080"
	DefaultReadTimeout = 10 * time.Second
)

// Config holds process-wide settings.
type Config struct {
	LogLevel    zerolog.Level
	LogFormat   string
	ListenAddr  string
	ReadTimeout time.Duration

	// PlantsFile is an optional CSV replacing the embedded reference plants.
	PlantsFile string
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		ListenAddr:  DefaultListenAddr,
		ReadTimeout: DefaultReadTimeout,
	}
}

// LoadDotEnv loads variables from the given .env files without overriding
// variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// FromEnv builds a Config from environment variables. Invalid values are
// reported on logger and replaced by their defaults.
func FromEnv(logger zerolog.Logger) Config {
	return parse(os.Getenv, logger)
}

func parse(getenv func(string) string, logger zerolog.Logger) Config {
	cfg := Default()

	if v := strings.TrimSpace(getenv(envLogLevel)); v != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil && lvl != zerolog.NoLevel {
			cfg.LogLevel = lvl
		} else {
			logger.Warn().Str("value", v).Msg("invalid " + envLogLevel + ", using default")
		}
	}

	if v := strings.ToLower(strings.TrimSpace(getenv(envLogFormat))); v != "" {
		switch v {
		case LogFormatJSON, LogFormatConsole:
			cfg.LogFormat = v
		default:
			logger.Warn().Str("value", v).Msg("invalid " + envLogFormat + ", using default")
		}
	}

	if v := strings.TrimSpace(getenv(envListenAddr)); v != "" {
		cfg.ListenAddr = v
	}

	if v := strings.TrimSpace(getenv(envReadTimeout)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReadTimeout = d
		} else {
			logger.Warn().Str("value", v).Msg("invalid " + envReadTimeout + ", using default")
		}
	}

	cfg.PlantsFile = strings.TrimSpace(getenv(envPlantsFile))

	logger.Debug().
		Str("log_level", cfg.LogLevel.String()).
		Str("log_format", cfg.LogFormat).
		Str("listen_addr", cfg.ListenAddr).
		Dur("read_timeout", cfg.ReadTimeout).
		Str("plants_file", cfg.PlantsFile).
		Msg("configuration resolved")

	return cfg
}
