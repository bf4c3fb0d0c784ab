// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, the process
// exits. Provider credentials are the exception — a missing credential
// disables that adapter only, it never fails startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the sync service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// Provider credentials. Empty values disable the adapter.
	JSearchAPIKey    string
	USAJobsAPIKey    string
	USAJobsUserAgent string // registered email, required by the USAJobs API

	TargetRegion        string
	StaleAfterHours     int // listings not refreshed within this window are deactivated
	SyncIntervalHours   int // how often the cron trigger fires in serve mode
	SyncCooldownMinutes int // per-source guard against back-to-back syncs
	ExcludeKeywords     []string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	staleAfter, err := intEnv("STALE_AFTER_HOURS", 72)
	if err != nil {
		return nil, err
	}

	interval, err := intEnv("SYNC_INTERVAL_HOURS", 6)
	if err != nil {
		return nil, err
	}

	cooldown, err := intEnv("SYNC_COOLDOWN_MINUTES", 10)
	if err != nil {
		return nil, err
	}

	region := os.Getenv("TARGET_REGION")
	if region == "" {
		region = "United States"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            redisURL,
		JSearchAPIKey:       os.Getenv("JSEARCH_API_KEY"),
		USAJobsAPIKey:       os.Getenv("USAJOBS_API_KEY"),
		USAJobsUserAgent:    os.Getenv("USAJOBS_USER_AGENT"),
		TargetRegion:        region,
		StaleAfterHours:     staleAfter,
		SyncIntervalHours:   interval,
		SyncCooldownMinutes: cooldown,
		ExcludeKeywords:     splitKeywords(os.Getenv("EXCLUDE_KEYWORDS")),
	}, nil
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
