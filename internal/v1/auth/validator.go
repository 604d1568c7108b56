package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// RealmAccess mirrors the identity provider's realm role claim.
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// CustomClaims represents the JWT claims the relay consumes.
// It embeds jwt.RegisteredClaims and adds the realm role set.
type CustomClaims struct {
	RealmAccess RealmAccess `json:"realm_access"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the request principal.
func (c *CustomClaims) Principal() Principal {
	roles := make([]Role, 0, len(c.RealmAccess.Roles))
	for _, r := range c.RealmAccess.Roles {
		roles = append(roles, RoleFromClaim(r))
	}
	return Principal{Subject: c.Subject, Roles: roles}
}

// Validator provides JWT validation against the identity provider's realm,
// including JWKS key retrieval, issuer verification, and audience checks.
type Validator struct {
	keyFunc  jwt.Keyfunc
	issuer   string
	audience string
}

// NewValidator creates a Validator for the given realm. It registers the
// realm's JWKS endpoint with a refreshing cache and fetches the keys once to
// ensure connectivity. Additional jwk.RegisterOption values are accepted for
// testability and combined with the default refresh interval.
func NewValidator(ctx context.Context, serverURL, realm, audience string, regOpts ...jwk.RegisterOption) (*Validator, error) {
	base, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity provider URL: %w", err)
	}

	issuer := base.JoinPath("realms", realm).String()
	jwksURL := base.JoinPath("realms", realm, "protocol", "openid-connect", "certs").String()

	cache := jwk.NewCache(ctx)

	opts := []jwk.RegisterOption{jwk.WithRefreshInterval(1 * time.Hour)}
	opts = append(opts, regOpts...)

	if err := cache.Register(jwksURL, opts...); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL in cache: %w", err)
	}

	// Fetch the keys for the first time to ensure connectivity.
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("failed to fetch initial JWKS: %w", err)
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("kid header not found")
		}

		keys, err := cache.Get(ctx, jwksURL)
		if err != nil {
			return nil, fmt.Errorf("failed to get keys from cache: %w", err)
		}

		key, found := keys.LookupKeyID(kid)
		if !found {
			return nil, fmt.Errorf("key with kid %s not found", kid)
		}

		var pubKey interface{}
		if err := key.Raw(&pubKey); err != nil {
			return nil, fmt.Errorf("failed to get raw public key: %w", err)
		}

		return pubKey, nil
	}

	return &Validator{
		keyFunc:  keyFunc,
		issuer:   issuer,
		audience: audience,
	}, nil
}

// ValidateToken parses and validates a JWT token string using the configured
// key function, issuer, and audience, returning the custom claims if valid.
func (v *Validator) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, v.keyFunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("token is invalid")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, errors.New("failed to cast claims to CustomClaims")
	}

	return claims, nil
}
