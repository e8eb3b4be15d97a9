// Package config provides centralized configuration management for the console.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Blob     BlobConfig
	Auth     AuthConfig
	Cache    CacheConfig
	Export   ExportConfig
	Stats    StatsConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Tracing  TracingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds document store connection settings.
type DatabaseConfig struct {
	// URL selects the backend by scheme: mongodb://, mongodb+srv://,
	// postgres://, postgresql:// or memory://.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// Name is the MongoDB database name; ignored by other backends.
	Name string `env:"DB_NAME" default:"formconsole"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	ConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// BlobConfig holds object storage settings for media attachments.
// An empty Endpoint disables media URL resolution.
type BlobConfig struct {
	Endpoint  string        `env:"BLOB_ENDPOINT"`
	AccessKey string        `env:"BLOB_ACCESS_KEY"`
	SecretKey string        `env:"BLOB_SECRET_KEY"`
	Bucket    string        `env:"BLOB_BUCKET" default:"form-media"`
	UseSSL    bool          `env:"BLOB_USE_SSL" default:"true"`
	URLTTL    time.Duration `env:"BLOB_URL_TTL" default:"15m"`
}

// Enabled reports whether an object store endpoint is configured.
func (c *BlobConfig) Enabled() bool {
	return c.Endpoint != ""
}

// AuthConfig holds admin token verification settings.
type AuthConfig struct {
	// Required rejects API requests without a valid admin token (default: true)
	Required bool `env:"AUTH_REQUIRED" default:"true"`

	// JWTSecret is the HMAC key admin tokens are signed with
	JWTSecret string `env:"AUTH_JWT_SECRET"`

	// JWTIssuer, when set, must match the token's iss claim
	JWTIssuer string `env:"AUTH_JWT_ISSUER"`
}

// CacheConfig holds lookup cache settings for templates and users.
type CacheConfig struct {
	TTL             time.Duration `env:"CACHE_TTL" default:"5m"`
	CleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL" default:"10m"`
}

// ExportConfig holds export concurrency settings.
type ExportConfig struct {
	// MaxConcurrent is the maximum number of parallel exports (default: 3)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"3"`

	// MaxWaitTime is how long to wait for an export slot (default: 10s)
	MaxWaitTime time.Duration `env:"EXPORT_MAX_WAIT_TIME" default:"10s"`

	// Timeout is the maximum duration for a single export (default: 2m)
	Timeout time.Duration `env:"EXPORT_TIMEOUT" default:"2m"`
}

// StatsConfig holds submission statistics settings.
type StatsConfig struct {
	// RecentWindow is the trailing window for recent activity (default: 7 days)
	RecentWindow time.Duration `env:"STATS_RECENT_WINDOW" default:"168h"`

	// RecentRequiresContribution only counts submissions that carry
	// contributions as recent activity (default: true)
	RecentRequiresContribution bool `env:"STATS_RECENT_REQUIRES_CONTRIBUTION" default:"true"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	// Exporter is one of none, stdout, otlphttp (default: none)
	Exporter    string  `env:"TRACING_EXPORTER" default:"none"`
	Endpoint    string  `env:"TRACING_ENDPOINT"`
	SampleRatio float64 `env:"TRACING_SAMPLE_RATIO" default:"1.0"`
	ServiceName string  `env:"TRACING_SERVICE_NAME" default:"formconsole"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
