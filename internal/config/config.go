package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every runtime setting for the gallery service.
type Config struct {
	Host           string
	Port           string
	RequestTimeout time.Duration

	// Remote cat API
	CatAPIBaseURL   string
	CatAPIKey       string
	UpstreamTimeout time.Duration
	MaxUploadSize   int64

	// CORS
	AllowedOrigins []string

	// Optimistic mutation coalescing
	CoalescePolicy  string // "throttle" or "debounce"
	VoteWindow      time.Duration
	FavouriteWindow time.Duration

	// Background cache refresh
	RefreshWorkers int
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	// Set defaults; coalescing windows match the observed click behaviour
	// (250ms favourite toggle, 300ms vote).
	cfg := &Config{
		Host:            getEnvOrDefault("HOST", "0.0.0.0"),
		Port:            getEnvOrDefault("PORT", "8080"),
		RequestTimeout:  parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		CatAPIBaseURL:   getEnvOrDefault("CAT_API_BASE_URL", "https://api.thecatapi.com/v1"),
		CatAPIKey:       os.Getenv("CAT_API_KEY"),
		UpstreamTimeout: parseDurationOrDefault("UPSTREAM_TIMEOUT", 15*time.Second),
		MaxUploadSize:   parseIntOrDefault("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
		AllowedOrigins:  parseListOrDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		CoalescePolicy:  getEnvOrDefault("COALESCE_POLICY", "throttle"),
		VoteWindow:      parseDurationOrDefault("VOTE_WINDOW", 300*time.Millisecond),
		FavouriteWindow: parseDurationOrDefault("FAVOURITE_WINDOW", 250*time.Millisecond),
		RefreshWorkers:  int(parseIntOrDefault("REFRESH_WORKERS", 4)),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.CatAPIBaseURL == "" {
		return nil, fmt.Errorf("CAT_API_BASE_URL must not be empty")
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE must be > 0 (got %d)", cfg.MaxUploadSize)
	}
	if cfg.RequestTimeout <= 0 || cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, upstream=%s)",
			cfg.RequestTimeout, cfg.UpstreamTimeout)
	}
	switch cfg.CoalescePolicy {
	case "throttle", "debounce":
	default:
		return nil, fmt.Errorf("invalid COALESCE_POLICY: %q (want throttle or debounce)", cfg.CoalescePolicy)
	}
	if cfg.VoteWindow <= 0 || cfg.FavouriteWindow <= 0 {
		return nil, fmt.Errorf("coalescing windows must be > 0 (got vote=%s, favourite=%s)",
			cfg.VoteWindow, cfg.FavouriteWindow)
	}
	if cfg.RefreshWorkers < 1 {
		return nil, fmt.Errorf("REFRESH_WORKERS must be >= 1 (got %d)", cfg.RefreshWorkers)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
