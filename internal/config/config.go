// Package config provides centralized configuration management for the
// symbolizer server and CLI. It loads configuration from environment variables
// with sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Resolver ResolverConfig
	Upload   UploadConfig
	Convert  ConvertConfig
	Cleanup  CleanupConfig
	Registry RegistryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`
}

// StoreConfig selects where artifacts and their order are persisted.
type StoreConfig struct {
	// Driver is memory, sqlite or postgres (default: sqlite)
	Driver string `env:"STORE_DRIVER" default:"sqlite"`

	// SQLitePath is the database file for the sqlite driver
	SQLitePath string `env:"SQLITE_PATH" default:"data/artifacts.db"`

	// CompressBlobs stores binaries zstd-compressed (default: true)
	CompressBlobs bool `env:"STORE_COMPRESS_BLOBS" default:"true"`
}

// DatabaseConfig holds PostgreSQL connection settings for the postgres driver.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string, required for STORE_DRIVER=postgres
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ResolverConfig selects how addresses are resolved.
type ResolverConfig struct {
	// Backend is local (in-process DWARF) or remote (default: local)
	Backend string `env:"RESOLVER_BACKEND" default:"local"`

	// RemoteURL is the conversion endpoint of a remote service, e.g. http://symbolizer:8000/convert
	RemoteURL string `env:"RESOLVER_REMOTE_URL"`

	// RemoteTimeout bounds one remote conversion request (default: 60s)
	RemoteTimeout time.Duration `env:"RESOLVER_REMOTE_TIMEOUT" default:"60s"`

	// RemoteAPIKey is sent as X-API-Key to the remote service
	RemoteAPIKey string `env:"RESOLVER_REMOTE_API_KEY"`

	// Functions prefixes local locations with the enclosing function (default: false)
	Functions bool `env:"RESOLVER_FUNCTIONS" default:"false"`
}

// UploadConfig holds request size limits.
type UploadConfig struct {
	// MaxBinarySize is the maximum size of one uploaded binary (default: 256MB)
	MaxBinarySize int64 `env:"UPLOAD_MAX_BINARY_SIZE" default:"268435456"`

	// MaxInputSize is the maximum size of the log text (default: 16MB)
	MaxInputSize int64 `env:"UPLOAD_MAX_INPUT_SIZE" default:"16777216"`
}

// ConvertConfig bounds conversion work.
type ConvertConfig struct {
	// MaxConcurrent is the maximum number of parallel conversions (default: 4)
	MaxConcurrent int `env:"CONVERT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"CONVERT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single conversion (default: 2m)
	Timeout time.Duration `env:"CONVERT_TIMEOUT" default:"2m"`
}

// CleanupConfig tunes the cleanup rule engine.
type CleanupConfig struct {
	// MatchTimeout bounds one pass of a cleanup pattern (default: 2s)
	MatchTimeout time.Duration `env:"CLEANUP_MATCH_TIMEOUT" default:"2s"`

	// MaxOutputBytes bounds how large cleanup may grow the text (default: 16MB)
	MaxOutputBytes int `env:"CLEANUP_MAX_OUTPUT_BYTES" default:"16777216"`

	// CacheTTL is how long compiled patterns stay cached unused (default: 10m)
	CacheTTL time.Duration `env:"CLEANUP_CACHE_TTL" default:"10m"`
}

// RegistryConfig tunes artifact registry behavior.
type RegistryConfig struct {
	// ActiveFollowsReorder keeps the selection on a moved artifact (default: false)
	ActiveFollowsReorder bool `env:"REGISTRY_ACTIVE_FOLLOWS_REORDER" default:"false"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit is requests per minute for upload endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables API key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
