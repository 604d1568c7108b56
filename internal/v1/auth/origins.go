package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/reactive-rooms/relay/internal/v1/logging"
)

// ParseOrigins parses the ORIGINS value: a comma-separated list, optionally
// wrapped in brackets, e.g. "[http://localhost:8080,http://127.0.0.1:8080]".
func ParseOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// GetAllowedOriginsFromEnv reads and parses the origins env var, falling back
// to defaults for local development when unset.
func GetAllowedOriginsFromEnv(envVarName string, defaults []string) []string {
	raw := os.Getenv(envVarName)
	if raw == "" {
		logging.Warn(context.Background(), fmt.Sprintf("%s environment variable not set. Using default development origins: %v", envVarName, defaults))
		return defaults
	}
	return ParseOrigins(raw)
}
