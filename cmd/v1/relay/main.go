package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/reactive-rooms/relay/internal/v1/api"
	"github.com/reactive-rooms/relay/internal/v1/auth"
	"github.com/reactive-rooms/relay/internal/v1/config"
	"github.com/reactive-rooms/relay/internal/v1/fabric"
	"github.com/reactive-rooms/relay/internal/v1/health"
	"github.com/reactive-rooms/relay/internal/v1/logging"
	"github.com/reactive-rooms/relay/internal/v1/middleware"
	"github.com/reactive-rooms/relay/internal/v1/ratelimit"
	"github.com/reactive-rooms/relay/internal/v1/registry"
	"github.com/reactive-rooms/relay/internal/v1/session"
	"github.com/reactive-rooms/relay/internal/v1/tracing"
)

func main() {
	// Load .env for local development. Try multiple paths to handle different
	// ways of running the app.
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	if cfg.DevelopmentMode {
		slog.Info("Running in DEVELOPMENT MODE")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Tracing (optional) ---
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(context.Background(), "reactive-rooms-relay", cfg.OTELCollectorAddr)
		if err != nil {
			slog.Error("Failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				slog.Error("Failed to shut down tracer", "error", err)
			}
		}()
		slog.Info("Tracing initialized", "collector", cfg.OTELCollectorAddr)
	}

	// --- Token validation ---
	var validator auth.TokenValidator
	if cfg.SkipAuth {
		slog.Warn("Authentication DISABLED for development - DO NOT USE IN PRODUCTION")
		validator = &auth.MockValidator{}
	} else {
		v, err := auth.NewValidator(context.Background(), cfg.KeycloakServer, cfg.KeycloakRealm, cfg.KeycloakAudience)
		if err != nil {
			slog.Error("Failed to create auth validator", "error", err)
			os.Exit(1)
		}
		slog.Info("Token validator initialized", "server", cfg.KeycloakServer, "realm", cfg.KeycloakRealm)
		validator = v
	}

	// --- Redis (optional, backs the shared rate-limit store) ---
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			slog.Error("Failed to connect to Redis, falling back to memory store", "error", err)
			redisClient.Close()
			redisClient = nil
		} else {
			slog.Info("Redis connected", "addr", cfg.RedisAddr)
		}
	}

	limiter, err := ratelimit.New(cfg.RateLimitAPI, cfg.RateLimitWS, redisClient)
	if err != nil {
		slog.Error("Failed to create rate limiter", "error", err)
		os.Exit(1)
	}

	// --- Core state ---
	reg := registry.New()
	fab := fabric.New()

	allowedOrigins := auth.GetAllowedOriginsFromEnv("ORIGINS", []string{"http://localhost:3000"})
	hub := session.NewHub(reg, fab, allowedOrigins)

	// --- Router ---
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("reactive-rooms-relay"))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE"}
	corsConfig.AllowHeaders = []string{"Authorization", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	router.GET("/ping", api.Ping)
	router.GET("/health", api.Ping)

	healthHandler := health.NewHandler(redisClient)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiHandler := api.NewHandler(reg, fab)
	rooms := router.Group("/api/rooms",
		auth.Middleware(validator, auth.BearerToken),
		auth.RequireRole(auth.RoleAdmin),
		limiter.APIMiddleware(),
	)
	{
		rooms.POST("", apiHandler.CreateRoom)
		rooms.GET("", apiHandler.ListRooms)
		rooms.DELETE("/:roomId", apiHandler.CancelRoom)
	}

	router.GET("/websocket", auth.Middleware(validator, auth.QueryToken), func(c *gin.Context) {
		if !limiter.CheckUpgrade(c) {
			return
		}
		hub.ServeWs(c)
	})

	router.NoRoute(api.NotFound)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Relay server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run server", "error", err)
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close every room and drain the session goroutines first.
	if err := hub.Shutdown(ctx); err != nil {
		slog.Error("Error during hub shutdown", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("Failed to close Redis connection", "error", err)
		}
	}

	slog.Info("Server exiting")
}
