// Package config holds the settings of the blocknote editor.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	// Quiet window before a block is rendered again.
	TransformDelay time.Duration
	// Quiet window ending a run of deletions.
	SettleDelay time.Duration
	// Quiet window before page changes are saved.
	SaveDelay time.Duration

	DBPath   string
	LogPath  string
	LogLevel zerolog.Level

	// Page to open. Empty opens the most recent page, or a new one.
	PageID string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		TransformDelay: 300 * time.Millisecond,
		SettleDelay:    500 * time.Millisecond,
		SaveDelay:      500 * time.Millisecond,
		DBPath:         defaultDBPath(),
		LogLevel:       zerolog.InfoLevel,
	}
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "blocknote.db"
	}
	return filepath.Join(dir, "blocknote", "blocknote.db")
}

// Environment variables read by FromEnv.
const (
	EnvTransformDelay = "BLOCKNOTE_TRANSFORM_DELAY"
	EnvSettleDelay    = "BLOCKNOTE_SETTLE_DELAY"
	EnvSaveDelay      = "BLOCKNOTE_SAVE_DELAY"
	EnvDBPath         = "BLOCKNOTE_DB"
	EnvLogPath        = "BLOCKNOTE_LOG"
	EnvLogLevel       = "BLOCKNOTE_LOG_LEVEL"
)

// FromEnv returns the default configuration overridden by the environment
// variables found through getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	var err error
	if cfg.TransformDelay, err = parseDuration(EnvTransformDelay, env(EnvTransformDelay, cfg.TransformDelay.String())); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = parseDuration(EnvSettleDelay, env(EnvSettleDelay, cfg.SettleDelay.String())); err != nil {
		return nil, err
	}
	if cfg.SaveDelay, err = parseDuration(EnvSaveDelay, env(EnvSaveDelay, cfg.SaveDelay.String())); err != nil {
		return nil, err
	}
	cfg.DBPath = env(EnvDBPath, cfg.DBPath)
	cfg.LogPath = env(EnvLogPath, cfg.LogPath)
	if cfg.LogLevel, err = zerolog.ParseLevel(env(EnvLogLevel, cfg.LogLevel.String())); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	return cfg, nil
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive, got %s", name, value)
	}
	return d, nil
}

// Parse reads the command line arguments on top of the environment.
func Parse(args []string, getenv func(string) string) (*Config, error) {
	cfg, err := FromEnv(getenv)
	if err != nil {
		return nil, err
	}

	flagSet := flag.NewFlagSet("blocknote", flag.ContinueOnError)
	var (
		db       = flagSet.String("db", cfg.DBPath, "SQLite database file")
		logPath  = flagSet.String("log", cfg.LogPath, "Log file (logs are discarded when empty)")
		level    = flagSet.String("log-level", cfg.LogLevel.String(), "Log level: debug, info, warn, error")
		page     = flagSet.String("page", "", "Id of the page to open")
		debounce = flagSet.Duration("transform-delay", cfg.TransformDelay, "Quiet window before a block is rendered")
		settle   = flagSet.Duration("settle-delay", cfg.SettleDelay, "Quiet window ending a run of deletions")
		save     = flagSet.Duration("save-delay", cfg.SaveDelay, "Quiet window before changes are saved")
	)
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}

	cfg.DBPath = *db
	cfg.LogPath = *logPath
	cfg.PageID = *page
	if cfg.LogLevel, err = zerolog.ParseLevel(*level); err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}
	for name, d := range map[string]time.Duration{"transform-delay": *debounce, "settle-delay": *settle, "save-delay": *save} {
		if d <= 0 {
			return nil, fmt.Errorf("%s: duration must be positive, got %s", name, d)
		}
	}
	cfg.TransformDelay = *debounce
	cfg.SettleDelay = *settle
	cfg.SaveDelay = *save
	return cfg, nil
}
