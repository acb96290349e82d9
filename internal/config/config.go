// Package config provides centralized configuration management for the notebook
// server. It loads configuration from CLI flags and environment variables,
// validates required fields, and provides sensible defaults.
//
// CLI flags choose the store backend (--store, --test) and listen address.
// Environment variables provide secrets and backend settings.
package config

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/notebook/internal/ratelimit"
)

const (
	defaultTigrisRegion = "auto"
	defaultMaxBodyBytes = 8 << 20
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreS3     = "s3"
)

// Config holds all server configuration.
type Config struct {
	// Server settings
	ListenAddr   string
	MaxBodyBytes int64
	TrustProxy   bool // Key rate limits on X-Forwarded-For (TRUST_PROXY)

	// Store
	StoreBackend string // memory | sqlite | s3
	DatabasePath string // SQLCipher file for the sqlite backend
	MasterKey    string // 64 hex characters (32 bytes); required for sqlite, seals objects for s3
	KVPrefix     string // Object key prefix for the s3 backend

	// Rate limiting
	RateLimitConfig ratelimit.Config

	// S3/Tigris Storage (uses AWS_ env vars, set automatically by `fly storage create`)
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string // BUCKET_NAME
	AWSUsePathStyle    bool   // S3_PATH_STYLE (MinIO and other path-style services)
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags parses CLI flags and returns them. Call before LoadConfig.
// --test is shorthand for --store=memory.
func ParseFlags() (store, addr string) {
	var testMode bool
	flag.StringVar(&store, "store", "", "Store backend: memory, sqlite or s3 (overrides STORE_BACKEND env var)")
	flag.BoolVar(&testMode, "test", false, "Shorthand for --store=memory")
	flag.StringVar(&addr, "addr", "", "Listen address (default :8080, overrides LISTEN_ADDR env var)")
	flag.Parse()

	if testMode {
		store = StoreMemory
	}
	return store, addr
}

// LoadConfig loads configuration from environment variables and CLI flag
// values. Non-empty store and addr override STORE_BACKEND and LISTEN_ADDR.
func LoadConfig(store, addr string) (*Config, error) {
	cfg := &Config{}

	// Server settings
	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")
	if addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.MaxBodyBytes = int64(parseIntOrDefault("MAX_BODY_BYTES", defaultMaxBodyBytes))
	cfg.TrustProxy = parseBoolOrDefault("TRUST_PROXY", false)

	// Store
	cfg.StoreBackend = strings.ToLower(getEnvOrDefault("STORE_BACKEND", StoreSQLite))
	if store != "" {
		cfg.StoreBackend = strings.ToLower(strings.TrimSpace(store))
	}
	cfg.DatabasePath = getEnvOrDefault("DATABASE_PATH", "./data/notebook.db")
	cfg.MasterKey = strings.TrimSpace(os.Getenv("MASTER_KEY"))
	cfg.KVPrefix = getEnvOrDefault("KV_PREFIX", "notebook")

	// Rate limiting
	cfg.RateLimitConfig = ratelimit.Config{
		RPS:             parseFloat64OrDefault("RATE_LIMIT_RPS", ratelimit.DefaultConfig.RPS),
		Burst:           parseIntOrDefault("RATE_LIMIT_BURST", ratelimit.DefaultConfig.Burst),
		CleanupInterval: parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", ratelimit.DefaultConfig.CleanupInterval),
	}

	// S3/Tigris Storage (AWS_ env vars set automatically by `fly storage create`)
	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultTigrisRegion)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.AWSBucketName = strings.TrimSpace(os.Getenv("BUCKET_NAME"))
	cfg.AWSUsePathStyle = parseBoolOrDefault("S3_PATH_STYLE", false)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
// Secrets are only required by the backends that use them.
func (c *Config) Validate() error {
	var errs []string

	switch c.StoreBackend {
	case StoreMemory:
	case StoreSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, "DATABASE_PATH is required for the sqlite store")
		}
		// The SQLCipher key is derived from MASTER_KEY; losing it = slots unreadable.
		if c.MasterKey == "" {
			errs = append(errs, "MASTER_KEY is required for the sqlite store (generate with: openssl rand -hex 32)")
		}
	case StoreS3:
		if c.AWSEndpointS3 == "" {
			errs = append(errs, "AWS_ENDPOINT_URL_S3 is required (set env var or use --test)")
		}
		if c.AWSBucketName == "" {
			errs = append(errs, "BUCKET_NAME is required (set env var or use --test)")
		}
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required (set env var or use --test)")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required (set env var or use --test)")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be one of memory, sqlite, s3 (got %q)", c.StoreBackend))
	}

	if c.MasterKey != "" {
		if len(c.MasterKey) != 64 {
			errs = append(errs, "MASTER_KEY must be 64 hex characters (32 bytes)")
		} else if _, err := hex.DecodeString(c.MasterKey); err != nil {
			errs = append(errs, "MASTER_KEY must be hex encoded")
		}
	}

	if c.MaxBodyBytes <= 0 {
		errs = append(errs, "MAX_BODY_BYTES must be positive")
	}

	// Validate rate limit config
	if c.RateLimitConfig.RPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitConfig.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive")
	}
	if c.RateLimitConfig.CleanupInterval <= 0 {
		errs = append(errs, "RATE_LIMIT_CLEANUP_INTERVAL must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// Sealed reports whether stored values are encrypted at rest.
func (c *Config) Sealed() bool {
	return c.MasterKey != "" && c.StoreBackend != StoreMemory
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "notebook server starting...")

	switch c.StoreBackend {
	case StoreMemory:
		fmt.Fprintln(os.Stderr, "  Store:   In-memory (data is lost on exit)")
	case StoreSQLite:
		fmt.Fprintf(os.Stderr, "  Store:   SQLCipher (%s)\n", c.DatabasePath)
	case StoreS3:
		fmt.Fprintf(os.Stderr, "  Store:   S3 (endpoint: %s, bucket: %s, prefix: %s)\n", c.AWSEndpointS3, c.AWSBucketName, c.KVPrefix)
	}

	if c.Sealed() {
		fmt.Fprintln(os.Stderr, "  Master:  From MASTER_KEY env var (encrypted at rest)")
	} else {
		fmt.Fprintln(os.Stderr, "  Master:  None (plaintext)")
	}

	fmt.Fprintf(os.Stderr, "  Limits:  %.0f rps, burst %d, body %d bytes\n", c.RateLimitConfig.RPS, c.RateLimitConfig.Burst, c.MaxBodyBytes)
	fmt.Fprintf(os.Stderr, "  Listen:  %s\n", c.ListenAddr)
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
// Use this in main() when you want the application to fail fast on bad config.
func MustLoadConfig(store, addr string) *Config {
	cfg, err := LoadConfig(store, addr)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
