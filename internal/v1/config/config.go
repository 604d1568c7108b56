package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration
type Config struct {
	// Server
	Host    string
	Port    string
	Origins string

	// Identity provider
	KeycloakServer   string
	KeycloakRealm    string
	KeycloakAudience string
	SkipAuth         bool
	DevelopmentMode  bool

	// Optional variables with defaults
	LogLevel string

	// Rate limiting (redis backs the shared store when enabled)
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RateLimitAPI  string
	RateLimitWS   string

	// Tracing
	TracingEnabled    bool
	OTELCollectorAddr string
}

// ValidateEnv validates all environment variables and returns a Config.
// Returns an error listing every invalid or missing variable at once.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.Host = getEnvOrDefault("HOST", "0.0.0.0")

	cfg.Port = getEnvOrDefault("PORT", "3000")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	cfg.Origins = os.Getenv("ORIGINS")

	cfg.SkipAuth = os.Getenv("SKIP_AUTH") == "true"
	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"

	cfg.KeycloakServer = os.Getenv("KEYCLOAK_SERVER")
	cfg.KeycloakRealm = os.Getenv("KEYCLOAK_REALM")
	cfg.KeycloakAudience = getEnvOrDefault("KEYCLOAK_AUDIENCE", "account")
	if !cfg.SkipAuth {
		if cfg.KeycloakServer == "" {
			errs = append(errs, "KEYCLOAK_SERVER is required when SKIP_AUTH=false")
		}
		if cfg.KeycloakRealm == "" {
			errs = append(errs, "KEYCLOAK_REALM is required when SKIP_AUTH=false")
		}
	}

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.RedisEnabled = os.Getenv("REDIS_ENABLED") == "true"
	if cfg.RedisEnabled {
		cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", "localhost:6379")
		if !isValidHostPort(cfg.RedisAddr) {
			errs = append(errs, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	// Rate limits (format: <count>-<period>, M = Minute, H = Hour)
	cfg.RateLimitAPI = getEnvOrDefault("RATE_LIMIT_API", "100-M")
	cfg.RateLimitWS = getEnvOrDefault("RATE_LIMIT_WS", "30-M")

	cfg.TracingEnabled = os.Getenv("TRACING_ENABLED") == "true"
	if cfg.TracingEnabled {
		cfg.OTELCollectorAddr = getEnvOrDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
		if !isValidHostPort(cfg.OTELCollectorAddr) {
			errs = append(errs, fmt.Sprintf("OTEL_COLLECTOR_ADDR must be in format 'host:port' (got '%s')", cfg.OTELCollectorAddr))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	return parts[0] != ""
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
