package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedValidator struct {
	claims *CustomClaims
	err    error
}

func (f fixedValidator) ValidateToken(string) (*CustomClaims, error) {
	return f.claims, f.err
}

func validClaims(subject string, roles ...string) *CustomClaims {
	return &CustomClaims{
		RealmAccess:      RealmAccess{Roles: roles},
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
}

func runRequest(router *gin.Engine, target string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	router.ServeHTTP(w, req)
	return w
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Empty(t, BearerToken(c))

	c.Request.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", BearerToken(c))

	c.Request.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, BearerToken(c), "only the Bearer scheme is accepted")
}

func TestQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?token=abc123", nil)
	assert.Equal(t, "abc123", QueryToken(c))

	// gin caches query parameters per context, so a fresh context is needed
	// for the second request.
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, QueryToken(c))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(v TokenValidator) *gin.Engine {
		r := gin.New()
		r.GET("/protected", Middleware(v, BearerToken), func(c *gin.Context) {
			p, ok := PrincipalFromContext(c)
			require.True(t, ok)
			c.JSON(http.StatusOK, gin.H{"subject": p.Subject})
		})
		return r
	}

	t.Run("missing token", func(t *testing.T) {
		router := newRouter(fixedValidator{claims: validClaims("alice")})
		w := runRequest(router, "/protected", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"token not provided"}`, w.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		router := newRouter(fixedValidator{err: errors.New("expired")})
		w := runRequest(router, "/protected", http.Header{"Authorization": {"Bearer bad"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"invalid token"}`, w.Body.String())
	})

	t.Run("valid token attaches principal", func(t *testing.T) {
		router := newRouter(fixedValidator{claims: validClaims("alice", "reactive-rooms:scope:host")})
		w := runRequest(router, "/protected", http.Header{"Authorization": {"Bearer good"}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"subject":"alice"}`, w.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(v TokenValidator) *gin.Engine {
		r := gin.New()
		r.GET("/admin", Middleware(v, BearerToken), RequireRole(RoleAdmin), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}
	authed := http.Header{"Authorization": {"Bearer tok"}}

	t.Run("admin role passes", func(t *testing.T) {
		router := newRouter(fixedValidator{claims: validClaims("root", "reactive-rooms:scope:write")})
		w := runRequest(router, "/admin", authed)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("lesser role is forbidden", func(t *testing.T) {
		router := newRouter(fixedValidator{claims: validClaims("alice", "reactive-rooms:scope:host")})
		w := runRequest(router, "/admin", authed)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"error":"insufficient role"}`, w.Body.String())
	})

	t.Run("without middleware there is no principal", func(t *testing.T) {
		r := gin.New()
		r.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := runRequest(r, "/admin", authed)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
