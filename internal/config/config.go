package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"timeblock-planner/internal/clock"
)

// Config keeps runtime settings for the planner bot.
type Config struct {
	TelegramToken       string
	DatabaseURL         string
	DigestTime          string // HH:MM, local time of the daily digest
	ReportIntervalHours int    // 0 disables the periodic unscheduled report
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DigestTime:    strings.TrimSpace(os.Getenv("DIGEST_TIME")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "timeblock_planner.db"
	}

	if cfg.DigestTime == "" {
		cfg.DigestTime = "08:00"
	}
	if _, err := clock.ParseClock(cfg.DigestTime); err != nil {
		return cfg, fmt.Errorf("DIGEST_TIME: %w", err)
	}

	if raw := strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS")); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 0 {
			return cfg, fmt.Errorf("REPORT_INTERVAL_HOURS: invalid value %q", raw)
		}
		cfg.ReportIntervalHours = hours
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}
