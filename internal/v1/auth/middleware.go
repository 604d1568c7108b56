package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// principalKey is the gin context key under which the middleware stores the
// verified principal.
const principalKey = "principal"

// TokenValidator is the interface the middleware needs from the validator.
// In tests, mock implementations simulate valid, expired, and malformed
// tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*CustomClaims, error)
}

// TokenExtractor pulls the raw token string out of a request.
type TokenExtractor func(c *gin.Context) string

// BearerToken extracts the token from the Authorization header.
// Used by the REST surface.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// QueryToken extracts the token from the "token" query parameter.
// Used by the upgrade surface, where browsers cannot set headers.
func QueryToken(c *gin.Context) string {
	return c.Query("token")
}

// Middleware verifies the request token and attaches the resulting principal
// to the gin context. Requests without a valid token are rejected with 401.
func Middleware(v TokenValidator, extract TokenExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extract(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token not provided"})
			return
		}

		claims, err := v.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(principalKey, claims.Principal())
		c.Next()
	}
}

// RequireRole gates a route group on a role. Admin passes every check.
// Must run after Middleware.
func RequireRole(required Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token not provided"})
			return
		}
		if !p.HasRole(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// PrincipalFromContext returns the principal attached by Middleware.
func PrincipalFromContext(c *gin.Context) (Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
