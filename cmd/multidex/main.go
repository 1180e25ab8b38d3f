package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/kailas-cloud/multidex/internal/config"
	dbRedis "github.com/kailas-cloud/multidex/internal/db/redis"
	"github.com/kailas-cloud/multidex/internal/domain"
	querygeo "github.com/kailas-cloud/multidex/internal/domain/query/geo"
	"github.com/kailas-cloud/multidex/internal/geodata"
	logpkg "github.com/kailas-cloud/multidex/internal/logger"
	"github.com/kailas-cloud/multidex/internal/metrics"
	catalogrepo "github.com/kailas-cloud/multidex/internal/repository/catalog"
	slugrepo "github.com/kailas-cloud/multidex/internal/repository/slug"
	"github.com/kailas-cloud/multidex/internal/schema"
	chiTransport "github.com/kailas-cloud/multidex/internal/transport/chi"
	fieldsuc "github.com/kailas-cloud/multidex/internal/usecase/fields"
	healthuc "github.com/kailas-cloud/multidex/internal/usecase/health"
	multisearchuc "github.com/kailas-cloud/multidex/internal/usecase/multisearch"
	sluguc "github.com/kailas-cloud/multidex/internal/usecase/slug"
	"github.com/kailas-cloud/multidex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting multidex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	grammars, err := schema.Default(cfg.Search.MaxDepth)
	if err != nil {
		logger.Fatal("Failed to build query grammar registry", zap.Error(err))
	}

	// Create repositories (domain-native, no adapters)
	catalogRepo := catalogrepo.New(store, cfg.Storage.KeyPrefix)
	slugStore := slugrepo.New(store, cfg.Storage.KeyPrefix)

	// Named-area datasets are optional: without them, geo filters on named
	// areas are rejected while everything else keeps working.
	// Pass nil interface (not typed nil pointer!) if geodata is not configured.
	var areas multisearchuc.AreaResolver
	var geodataChecker healthuc.GeodataChecker
	if cfg.Geodata.Dir != "" {
		resolver, err := geodata.NewFileResolver(cfg.Geodata.Dir, cfg.Geodata.CacheSize)
		if err != nil {
			logger.Fatal("Failed to create geodata resolver", zap.Error(err))
		}
		areas = resolver
		geodataChecker = resolver
		logger.Info("Geodata resolver created", zap.String("dir", cfg.Geodata.Dir))
	} else {
		areas = noAreaResolver{}
		logger.Warn("Geodata disabled: named area filters will be rejected")
	}

	// Create use case services
	resourceTimeout := time.Duration(cfg.Search.ResourceTimeoutSec) * time.Second
	searchSvc := multisearchuc.New(grammars, store, catalogRepo, areas, resourceTimeout)
	slugSvc := sluguc.New(slugStore, searchSvc)
	fieldsSvc := fieldsuc.New(grammars, catalogRepo)
	healthSvc := healthuc.New(store, geodataChecker)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, slugSvc, fieldsSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// noAreaResolver rejects every named area (used when no geodata is configured).
type noAreaResolver struct{}

func (noAreaResolver) Resolve(_ context.Context, kind querygeo.AreaKind, name string) (*geom.MultiPolygon, error) {
	return nil, domain.NewUnknownArea(string(kind), name)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"success": false,
						"error":   map[string]string{"message": "internal error"},
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
