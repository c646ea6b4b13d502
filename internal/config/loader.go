// Package config loads the service configuration from the process
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the
// conference scheduling service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	DiffDraftTTL    time.Duration
	DiffReleasedTTL time.Duration
	DiffCacheSize   int
}

// Load parses configuration values from the current process environment.
// Every value has a default; set values are validated and reported together
// when invalid.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:confsched.db",
		DiffDraftTTL:    time.Minute,
		DiffReleasedTTL: 10 * time.Minute,
		DiffCacheSize:   128,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CONFSCHED_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CONFSCHED_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CONFSCHED_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("CONFSCHED_DIFF_DRAFT_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CONFSCHED_DIFF_DRAFT_TTL")
		} else {
			cfg.DiffDraftTTL = ttl
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("CONFSCHED_DIFF_RELEASED_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CONFSCHED_DIFF_RELEASED_TTL")
		} else {
			cfg.DiffReleasedTTL = ttl
		}
	}

	if sizeValue := strings.TrimSpace(os.Getenv("CONFSCHED_DIFF_CACHE_SIZE")); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size <= 0 {
			invalid = append(invalid, "CONFSCHED_DIFF_CACHE_SIZE")
		} else {
			cfg.DiffCacheSize = size
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
