// Package ratelimit enforces per-caller request limits backed by Redis or
// local memory.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/reactive-rooms/relay/internal/v1/auth"
	"github.com/reactive-rooms/relay/internal/v1/logging"
	"github.com/reactive-rooms/relay/internal/v1/metrics"
)

// RateLimiter holds one limiter for the admin API and one for socket
// upgrades. Both share a store.
type RateLimiter struct {
	api   *limiter.Limiter
	ws    *limiter.Limiter
	store limiter.Store
}

// New creates a RateLimiter from formatted rates like "100-M". A nil
// redisClient selects the in-process memory store.
func New(apiRate, wsRate string, redisClient *redis.Client) (*RateLimiter, error) {
	api, err := limiter.NewRateFromFormatted(apiRate)
	if err != nil {
		return nil, fmt.Errorf("invalid API rate: %w", err)
	}
	ws, err := limiter.NewRateFromFormatted(wsRate)
	if err != nil {
		return nil, fmt.Errorf("invalid WebSocket rate: %w", err)
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:v1:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = s
		logging.Info(context.Background(), "Rate limiter using Redis store")
	} else {
		store = memory.NewStore()
		logging.Info(context.Background(), "Rate limiter using memory store")
	}

	return &RateLimiter{
		api:   limiter.New(store, api),
		ws:    limiter.New(store, ws),
		store: store,
	}, nil
}

// APIMiddleware limits admin API requests, keyed by the authenticated
// subject when present and by client IP otherwise. The store failing never
// blocks traffic.
func (rl *RateLimiter) APIMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, kind := callerKey(c)

		ctx := c.Request.Context()
		lctx, err := rl.api.Get(ctx, key)
		if err != nil {
			logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(c.FullPath(), kind).Inc()
			c.Header("Retry-After", strconv.FormatInt(lctx.Reset-time.Now().Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": lctx.Reset,
			})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// CheckUpgrade limits socket upgrade attempts per client IP. Returns false
// and writes the response when the limit is exceeded.
func (rl *RateLimiter) CheckUpgrade(c *gin.Context) bool {
	ctx := c.Request.Context()

	lctx, err := rl.ws.Get(ctx, c.ClientIP())
	if err != nil {
		logging.Error(ctx, "WebSocket rate limiter store failed", zap.Error(err))
		return true
	}

	if lctx.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect", "ip").Inc()
		c.Header("Retry-After", strconv.FormatInt(lctx.Reset-time.Now().Unix(), 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many connection attempts"})
		return false
	}

	metrics.RateLimitRequests.WithLabelValues("websocket_connect").Inc()
	return true
}

func callerKey(c *gin.Context) (key, kind string) {
	if p, ok := auth.PrincipalFromContext(c); ok {
		return p.Subject, "user"
	}
	return c.ClientIP(), "ip"
}
