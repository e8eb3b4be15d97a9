package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// loadStruct populates tagged fields of v, recursing into nested sections.
// Every missing or malformed variable is reported, not just the first.
func loadStruct(v reflect.Value) error {
	var errs []error
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct && field.Type != timeType {
			if err := loadStruct(fv); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		value, ok := lookupEnv(name, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}
		if err := setField(fv, value); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", name, value, err))
		}
	}
	return errors.Join(errs...)
}

// lookupEnv returns the first non-empty value of name or alt.
func lookupEnv(name, alt string) (string, bool) {
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, true
		}
	}
	return "", false
}

// setField parses value into field according to the field's type.
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(value)))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	} else if _, err := c.Database.Backend(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Blob validation
	if c.Blob.Enabled() {
		if c.Blob.Bucket == "" {
			errs = append(errs, "BLOB_BUCKET is required when BLOB_ENDPOINT is set")
		}
		if c.Blob.URLTTL <= 0 {
			errs = append(errs, "BLOB_URL_TTL must be positive")
		}
	}

	// Auth validation
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		errs = append(errs, "AUTH_REQUIRED is true but AUTH_JWT_SECRET is empty; configure a signing secret or disable auth")
	}

	// Cache validation
	if c.Cache.TTL <= 0 {
		errs = append(errs, "CACHE_TTL must be positive")
	}

	// Export validation
	if c.Export.MaxConcurrent <= 0 {
		errs = append(errs, "EXPORT_MAX_CONCURRENT must be positive")
	}
	if c.Export.MaxWaitTime <= 0 {
		errs = append(errs, "EXPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Export.Timeout <= 0 {
		errs = append(errs, "EXPORT_TIMEOUT must be positive")
	}

	// Stats validation
	if c.Stats.RecentWindow <= 0 {
		errs = append(errs, "STATS_RECENT_WINDOW must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	// Tracing validation
	validExporters := map[string]bool{"none": true, "stdout": true, "otlphttp": true}
	if !validExporters[strings.ToLower(c.Tracing.Exporter)] {
		errs = append(errs, fmt.Sprintf("TRACING_EXPORTER (%q) must be one of: none, stdout, otlphttp", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, "TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Backend kinds selected by the DATABASE_URL scheme.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Backend returns the document store kind named by the URL scheme.
func (c *DatabaseConfig) Backend() (string, error) {
	scheme, _, ok := strings.Cut(c.URL, "://")
	if !ok {
		return "", fmt.Errorf("DATABASE_URL must include a scheme")
	}
	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return BackendMongo, nil
	case "postgres", "postgresql":
		return BackendPostgres, nil
	case "memory":
		return BackendMemory, nil
	default:
		return "", fmt.Errorf("DATABASE_URL scheme %q is not supported", scheme)
	}
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and secrets are masked.
func (c *Config) String() string {
	backend, _ := c.Database.Backend()
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], Backend: %q, MaxConns: %d, MinConns: %d}, ",
		backend, c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Blob: {Endpoint: %q, Bucket: %q, SecretKey: [MASKED]}, ",
		c.Blob.Endpoint, c.Blob.Bucket))
	b.WriteString(fmt.Sprintf("Auth: {Required: %v, JWTSecret: [MASKED]}, ", c.Auth.Required))
	b.WriteString(fmt.Sprintf("Export: {MaxConcurrent: %d, Timeout: %s}, ",
		c.Export.MaxConcurrent, c.Export.Timeout))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}, ",
		c.Logging.Level, c.Logging.Format))
	b.WriteString(fmt.Sprintf("Tracing: {Exporter: %q}", c.Tracing.Exporter))
	b.WriteString("}")
	return b.String()
}
