// Package config handles loading and validation of ccline configuration.
// It loads from a .env file, environment variables, and CLI flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ccline/ccline/internal/progress"
)

// Config holds all application configuration.
type Config struct {
	PollInterval  time.Duration     // CCLINE_POLL_INTERVAL (minutes)
	ResetSchedule progress.Schedule // CCLINE_RESET_WEEKDAY / _HOUR / _MINUTE
	HistoryPath   string            // CCLINE_HISTORY_PATH
	HistoryOff    bool              // CCLINE_NO_HISTORY / --no-history
	DBPath        string            // CCLINE_DB_PATH / --db
	LogLevel      string            // CCLINE_LOG_LEVEL
	DebugMode     bool              // --debug (log to stderr)
}

// weekdayNames maps the accepted CCLINE_RESET_WEEKDAY spellings.
var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// flagValues holds parsed CLI flags.
type flagValues struct {
	interval  int
	db        string
	noHistory bool
	debug     bool
}

// Load reads configuration from .env file, environment variables, and CLI
// flags. Flags take precedence over environment variables.
func Load(args []string) (*Config, error) {
	flags := &flagValues{}

	// Parse CLI flags manually to avoid flag.ExitOnError in tests
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--debug":
			flags.debug = true
		case arg == "--no-history":
			flags.noHistory = true
		case strings.HasPrefix(arg, "--interval="):
			if v, err := strconv.Atoi(strings.TrimPrefix(arg, "--interval=")); err == nil {
				flags.interval = v
			}
		case arg == "--interval":
			if i+1 < len(args) {
				if v, err := strconv.Atoi(args[i+1]); err == nil {
					flags.interval = v
					i++
				}
			}
		case strings.HasPrefix(arg, "--db="):
			flags.db = strings.TrimPrefix(arg, "--db=")
		case arg == "--db":
			if i+1 < len(args) {
				flags.db = args[i+1]
				i++
			}
		}
	}

	return loadFromEnvAndFlags(flags)
}

// loadFromEnvAndFlags combines environment variables with CLI flags.
func loadFromEnvAndFlags(flags *flagValues) (*Config, error) {
	// Try to load .env file (ignore errors - file is optional)
	_ = godotenv.Load()

	cfg := &Config{
		PollInterval:  15 * time.Minute,
		ResetSchedule: progress.DefaultSchedule,
		LogLevel:      strings.ToLower(os.Getenv("CCLINE_LOG_LEVEL")),
		DebugMode:     flags.debug,
	}

	if v := os.Getenv("CCLINE_POLL_INTERVAL"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes < 1 {
			return nil, fmt.Errorf("invalid CCLINE_POLL_INTERVAL %q: must be a positive number of minutes", v)
		}
		cfg.PollInterval = time.Duration(minutes) * time.Minute
	}
	if flags.interval > 0 {
		cfg.PollInterval = time.Duration(flags.interval) * time.Minute
	}

	if v := os.Getenv("CCLINE_RESET_WEEKDAY"); v != "" {
		day, ok := weekdayNames[strings.ToLower(v)]
		if !ok {
			return nil, fmt.Errorf("invalid CCLINE_RESET_WEEKDAY %q", v)
		}
		cfg.ResetSchedule.Weekday = day
	}
	if v := os.Getenv("CCLINE_RESET_HOUR"); v != "" {
		hour, err := strconv.Atoi(v)
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("invalid CCLINE_RESET_HOUR %q", v)
		}
		cfg.ResetSchedule.Hour = hour
	}
	if v := os.Getenv("CCLINE_RESET_MINUTE"); v != "" {
		minute, err := strconv.Atoi(v)
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("invalid CCLINE_RESET_MINUTE %q", v)
		}
		cfg.ResetSchedule.Minute = minute
	}

	cfg.HistoryOff = flags.noHistory || boolEnv("CCLINE_NO_HISTORY")

	dir := configDir()
	cfg.HistoryPath = os.Getenv("CCLINE_HISTORY_PATH")
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = filepath.Join(dir, "history.json")
	}
	cfg.DBPath = flags.db
	if cfg.DBPath == "" {
		cfg.DBPath = os.Getenv("CCLINE_DB_PATH")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dir, "usage.db")
	}

	return cfg, nil
}

// configDir returns the tool's configuration directory, following the XDG
// convention with a ~/.config fallback.
func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "ccline")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "ccline"
	}
	return filepath.Join(home, ".config", "ccline")
}

func boolEnv(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// SlogLevel maps the configured log level to slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
