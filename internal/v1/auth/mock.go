package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/reactive-rooms/relay/internal/v1/logging"
)

// MockValidator is a development-only token validator that accepts any token.
// It decodes the payload without verifying the signature so that the subject
// and roles still line up between client and server during local work.
type MockValidator struct{}

func (m *MockValidator) ValidateToken(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}

	// Parse JWT token (format: header.payload.signature)
	parts := strings.Split(tokenString, ".")
	if len(parts) == 3 {
		if payload, err := base64.RawURLEncoding.DecodeString(parts[1]); err == nil {
			var raw struct {
				Sub         string      `json:"sub"`
				RealmAccess RealmAccess `json:"realm_access"`
			}
			if json.Unmarshal(payload, &raw) == nil {
				claims.Subject = raw.Sub
				claims.RealmAccess = raw.RealmAccess
				logging.Info(context.Background(), "MockValidator parsed JWT",
					zap.String("subject", raw.Sub), zap.Strings("roles", raw.RealmAccess.Roles))
			}
		}
	}

	// Fallback identity when parsing failed
	if claims.Subject == "" {
		claims.Subject = "dev-user-123"
	}
	if len(claims.RealmAccess.Roles) == 0 {
		claims.RealmAccess.Roles = []string{scopeWrite, scopeHost, scopeUser}
	}

	return claims, nil
}
