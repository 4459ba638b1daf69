package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/eduroad/coursemap/internal/config"
	"github.com/eduroad/coursemap/internal/db"
	dbRedis "github.com/eduroad/coursemap/internal/db/redis"
	dbValkey "github.com/eduroad/coursemap/internal/db/valkey"
	"github.com/eduroad/coursemap/internal/domain"
	logpkg "github.com/eduroad/coursemap/internal/logger"
	"github.com/eduroad/coursemap/internal/metrics"
	courserepo "github.com/eduroad/coursemap/internal/repository/course"
	"github.com/eduroad/coursemap/internal/repository/embcache"
	chiTransport "github.com/eduroad/coursemap/internal/transport/chi"
	openaiTransport "github.com/eduroad/coursemap/internal/transport/openai"
	"github.com/eduroad/coursemap/internal/transport/stepik"
	embeddinguc "github.com/eduroad/coursemap/internal/usecase/embedding"
	healthuc "github.com/eduroad/coursemap/internal/usecase/health"
	ingestuc "github.com/eduroad/coursemap/internal/usecase/ingest"
	recommenduc "github.com/eduroad/coursemap/internal/usecase/recommend"
	"github.com/eduroad/coursemap/internal/version"
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

	logger.Info("Starting coursemap API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "valkey":
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	storeReady := true
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		if cfg.DatabaseRequired() {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		storeReady = false
		logger.Warn("Database not ready, starting degraded", zap.Error(err))
	} else {
		logger.Info("Connected to database")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIngestMetrics()
	metrics.RegisterRecommendMetrics()

	// Embedder chain: provider -> cache -> instrumented -> pool
	provider := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	if err := provider.HealthCheck(ctx); err != nil {
		logger.Fatal("Embedding provider unavailable", zap.Error(err))
	}

	var embedder domain.Embedder = provider
	cacheTTL := time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour
	embedder = embcache.New(embedder, store, cacheTTL, metrics.EmbeddingCacheTotal, logger)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, "openai", cfg.Embedding.Model, logger)
	embedder = embeddinguc.NewPool(embedder, cfg.Embedding.Workers)

	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Int("workers", cfg.Embedding.Workers),
	)

	// Repositories and services
	courseRepo := courserepo.NewRepo(store, courserepo.IndexParams{
		Dimensions:  cfg.Embedding.Dimensions,
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})

	if storeReady {
		if err := courseRepo.EnsureCollection(ctx); err != nil {
			logger.Fatal("Failed to ensure courses index", zap.Error(err))
		}
	}

	catalog := stepik.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.RatePerSec)

	ingestSvc := ingestuc.NewService(catalog, courseRepo, embedder, store, ingestuc.Config{
		BatchSize:     cfg.Catalog.BatchSize,
		UpsertRetries: cfg.Catalog.UpsertRetries,
	}, logger)

	selector := openaiTransport.NewSelector(&openaiTransport.SelectorConfig{
		APIKey:     cfg.Selector.APIKey,
		BaseURL:    cfg.Selector.BaseURL,
		Model:      cfg.Selector.Model,
		TimeoutSec: cfg.Selector.TimeoutSec,
		MaxCourses: cfg.Selector.MaxCourses,
	})

	recommendSvc := recommenduc.NewService(courseRepo, embedder, selector, recommenduc.Config{
		TopK:             cfg.Search.TopK,
		MinScore:         cfg.Search.MinScore,
		MaxDirect:        cfg.Search.MaxDirect,
		SelectorAttempts: cfg.Selector.Attempts,
	})

	healthSvc := healthuc.New(store, courseRepo, provider)

	server := chiTransport.NewServer(recommendSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	// Startup ingestion runs in the background so it never delays serving.
	if cfg.Catalog.IngestOnStart && storeReady {
		go func() {
			logger.Info("Starting catalog ingestion")
			report, err := ingestSvc.Run(ctx, ingestuc.Options{})
			if err != nil {
				if errors.Is(err, domain.ErrIngestRunning) {
					return
				}
				logger.Error("Startup ingestion failed", zap.Error(err))
				return
			}
			logger.Info("Startup ingestion finished",
				zap.Int("indexed", report.Indexed),
				zap.String("duration", report.Duration))
		}()
	}

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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
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
