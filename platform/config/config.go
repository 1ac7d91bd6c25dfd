// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// StoreConfig selects and tunes the lead store.
type StoreConfig interface {
	DatabaseConfig
	GetStoreDriver() string
	GetSQLitePath() string
	GetStoreTimeout() time.Duration
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// GatewayConfig provides settings for the messaging gateway client.
type GatewayConfig interface {
	GetGatewayURL() string
	GetGatewayAPIKey() string
	GetGatewaySendTimeout() time.Duration
	GetGatewayStatusTimeout() time.Duration
}

// WebhookConfig provides settings for the inbound webhook endpoint.
type WebhookConfig interface {
	GetWebhookSecret() string
	GetWebhookRateLimit() float64
	GetInboundDedupeTTL() time.Duration
}

// RedisConfig provides the optional Redis connection used for inbound dedupe.
type RedisConfig interface {
	GetRedisURL() string
	IsRedisEnabled() bool
}

// RealtimeConfig provides settings for the realtime broadcaster.
type RealtimeConfig interface {
	GetRealtimeBuffer() int
}

// Config holds every setting. Consumers should depend on the narrow
// interfaces above rather than on this struct.
type Config struct {
	Env      string
	HTTPAddr string

	StoreDriver  string
	DatabaseURL  string
	SQLitePath   string
	StoreTimeout time.Duration

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	GatewayURL           string
	GatewayAPIKey        string
	GatewaySendTimeout   time.Duration
	GatewayStatusTimeout time.Duration

	WebhookSecret    string
	WebhookRateLimit float64
	InboundDedupeTTL time.Duration

	RedisURL string

	RealtimeBuffer int
}

func (c *Config) GetDatabaseURL() string         { return c.DatabaseURL }
func (c *Config) GetStoreDriver() string         { return c.StoreDriver }
func (c *Config) GetSQLitePath() string          { return c.SQLitePath }
func (c *Config) GetStoreTimeout() time.Duration { return c.StoreTimeout }

func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetGatewayURL() string                  { return c.GatewayURL }
func (c *Config) GetGatewayAPIKey() string               { return c.GatewayAPIKey }
func (c *Config) GetGatewaySendTimeout() time.Duration   { return c.GatewaySendTimeout }
func (c *Config) GetGatewayStatusTimeout() time.Duration { return c.GatewayStatusTimeout }

func (c *Config) GetWebhookSecret() string          { return c.WebhookSecret }
func (c *Config) GetWebhookRateLimit() float64      { return c.WebhookRateLimit }
func (c *Config) GetInboundDedupeTTL() time.Duration { return c.InboundDedupeTTL }

func (c *Config) GetRedisURL() string  { return c.RedisURL }
func (c *Config) IsRedisEnabled() bool { return c.RedisURL != "" }

func (c *Config) GetRealtimeBuffer() int { return c.RealtimeBuffer }

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return strings.EqualFold(c.Env, "production") }

// Load reads the environment (and an optional .env file) and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		SQLitePath:           getEnv("SQLITE_PATH", "leadflow.db"),
		StoreTimeout:         mustDuration(getEnv("STORE_TIMEOUT", "5s")),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		GatewayURL:           strings.TrimRight(getEnv("GATEWAY_URL", "http://localhost:3001"), "/"),
		GatewayAPIKey:        getEnv("GATEWAY_API_KEY", ""),
		GatewaySendTimeout:   mustDuration(getEnv("GATEWAY_SEND_TIMEOUT", "10s")),
		GatewayStatusTimeout: mustDuration(getEnv("GATEWAY_STATUS_TIMEOUT", "5s")),
		WebhookSecret:        getEnv("GATEWAY_WEBHOOK_SECRET", ""),
		WebhookRateLimit:     mustFloat(getEnv("WEBHOOK_RATE_LIMIT", "20")),
		InboundDedupeTTL:     mustDuration(getEnv("INBOUND_DEDUPE_TTL", "10m")),
		RedisURL:             getEnv("REDIS_URL", ""),
		RealtimeBuffer:       mustInt(getEnv("REALTIME_BUFFER", "32")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is sqlite")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, sqlite, memory (got %q)", c.StoreDriver)
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.GatewayURL == "" {
		return fmt.Errorf("GATEWAY_URL is required")
	}
	if c.GatewaySendTimeout <= 0 || c.GatewayStatusTimeout <= 0 {
		return fmt.Errorf("GATEWAY_SEND_TIMEOUT and GATEWAY_STATUS_TIMEOUT must be positive durations")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be a positive duration")
	}
	if c.RealtimeBuffer <= 0 {
		return fmt.Errorf("REALTIME_BUFFER must be positive")
	}
	if c.IsProduction() && c.WebhookSecret == "" {
		return fmt.Errorf("GATEWAY_WEBHOOK_SECRET is required in production")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
