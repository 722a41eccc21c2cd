// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the analytics core and its thin HTTP
// surface. S3 fields are optional — nil when not configured, in which case
// remote partition fetch is disabled and only catalog search works.
type Config struct {
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string
	S3Bucket   *string

	CatalogDBPath   string // SQLite partition catalog (read-only for this core)
	BenchmarkDBPath string // SQLite benchmark reference store
	DataDir         string // scratch dir for fetched partition files

	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// Combine budgets and fetch tuning.
	MaxRowsDefault       int           // row budget when the request omits one (default 10000)
	MaxPartitionsDefault int           // partition budget default (default 50)
	FetchConcurrency     int           // bounded worker count for partition fetch (default 4)
	FetchTimeout         time.Duration // per-partition fetch timeout (default 60s)
	CombineTimeout       time.Duration // wall-clock budget for one combine call (default 5m)

	// Selection cache.
	CacheTTL time.Duration // default 1h

	// BenchmarkYear pins the reference rate schedule; zero uses the default.
	BenchmarkYear int

	// Rate limiting.
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS.
	CORSAllowedOrigins []string // default ["*"]

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasS3Config returns true if explicit S3 credentials are fully configured.
// Without them the fetcher falls back to the default AWS credential chain.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != nil && c.S3Secret != nil && c.S3Region != nil
}

// LoadFromEnv loads configuration from environment variables. S3 variables
// are optional — the server can start without them.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		CatalogDBPath:   os.Getenv("CATALOG_DB_PATH"),
		BenchmarkDBPath: os.Getenv("BENCHMARK_DB_PATH"),
		DataDir:         os.Getenv("DATA_DIR"),
		ListenAddr:      os.Getenv("LISTEN_ADDR"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		Env:             os.Getenv("ENV"),
	}

	// S3 fields are optional — only set if present.
	if v := os.Getenv("KEY_ID"); v != "" {
		cfg.S3KeyID = &v
	}
	if v := os.Getenv("SECRET"); v != "" {
		cfg.S3Secret = &v
	}
	if v := os.Getenv("ENDPOINT"); v != "" {
		cfg.S3Endpoint = &v
	}
	if v := os.Getenv("REGION"); v != "" {
		cfg.S3Region = &v
	}
	if v := os.Getenv("BUCKET"); v != "" {
		cfg.S3Bucket = &v
	}

	cfg.MaxRowsDefault = parseIntEnv("MAX_ROWS_DEFAULT", 10000)
	cfg.MaxPartitionsDefault = parseIntEnv("MAX_PARTITIONS_DEFAULT", 50)
	cfg.FetchConcurrency = parseIntEnv("FETCH_CONCURRENCY", 4)
	cfg.FetchTimeout = parseDurationEnv("FETCH_TIMEOUT", 60*time.Second)
	cfg.CombineTimeout = parseDurationEnv("COMBINE_TIMEOUT", 5*time.Minute)
	cfg.CacheTTL = parseDurationEnv("CACHE_TTL", time.Hour)
	cfg.BenchmarkYear = parseIntEnv("BENCHMARK_YEAR", 0)

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	cfg.RateLimitBurst = parseIntEnv("RATE_LIMIT_BURST", 0)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults.
	if cfg.CatalogDBPath == "" {
		cfg.CatalogDBPath = "ratelens_catalog.sqlite"
	}
	if cfg.BenchmarkDBPath == "" {
		cfg.BenchmarkDBPath = "ratelens_benchmarks.sqlite"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = os.TempDir()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.FetchConcurrency < 1 {
		return nil, fmt.Errorf("FETCH_CONCURRENCY must be >= 1")
	}
	if cfg.S3Bucket == nil {
		cfg.Warnings = append(cfg.Warnings, "BUCKET not set — remote partition fetch is disabled")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func parseIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
