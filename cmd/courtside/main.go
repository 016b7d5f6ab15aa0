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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/courtside-ai/courtside/internal/config"
	dbRedis "github.com/courtside-ai/courtside/internal/db/redis"
	logpkg "github.com/courtside-ai/courtside/internal/logger"
	"github.com/courtside-ai/courtside/internal/metrics"
	chunkrepo "github.com/courtside-ai/courtside/internal/repository/chunk"
	historyrepo "github.com/courtside-ai/courtside/internal/repository/history"
	statsrepo "github.com/courtside-ai/courtside/internal/repository/stats"
	chiTransport "github.com/courtside-ai/courtside/internal/transport/chi"
	openaiTransport "github.com/courtside-ai/courtside/internal/transport/openai"
	agentuc "github.com/courtside-ai/courtside/internal/usecase/agent"
	healthuc "github.com/courtside-ai/courtside/internal/usecase/health"
	retrievaluc "github.com/courtside-ai/courtside/internal/usecase/retrieval"
	toolsuc "github.com/courtside-ai/courtside/internal/usecase/tools"
	"github.com/courtside-ai/courtside/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting courtside API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("stats_path", cfg.Stats.Path),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create commentary store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Commentary store not ready", zap.Error(err))
	}
	logger.Info("Connected to commentary store")

	statsStore, err := statsrepo.Open(
		cfg.Stats.Path,
		time.Duration(cfg.Stats.QueryTimeoutSec)*time.Second,
		cfg.Stats.MaxRows,
	)
	if err != nil {
		logger.Fatal("Failed to open statistics database", zap.Error(err))
	}
	defer statsStore.Close()

	if err := statsStore.Ping(ctx); err != nil {
		logger.Fatal("Statistics database not ready", zap.Error(err))
	}
	logger.Info("Connected to statistics database")

	metrics.Register()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:            cfg.Generation.APIKey,
		BaseURL:           cfg.Generation.BaseURL,
		Model:             cfg.Generation.Model,
		Temperature:       cfg.Generation.Temperature,
		MaxTokens:         cfg.Generation.MaxTokens,
		MaxRetries:        cfg.Generation.MaxRetries,
		RequestsPerSecond: cfg.Generation.RequestsPerSecond,
		Logger:            logger,
	})
	logger.Info("Providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("generation_model", cfg.Generation.Model),
	)

	chunkRepo := chunkrepo.New(store, cfg.Database.KeyPrefix, cfg.Retrieval.IndexName).
		WithHNSW(chunkrepo.HNSWConfig{
			M:           cfg.Retrieval.HNSWM,
			EFConstruct: cfg.Retrieval.HNSWEFConstruct,
		})
	if err := chunkRepo.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		logger.Fatal("Failed to ensure commentary index", zap.Error(err))
	}

	historyRepo := historyrepo.New(
		store,
		cfg.Database.KeyPrefix,
		time.Duration(cfg.History.TTLHours)*time.Hour,
		cfg.History.MaxTurns,
	)

	retrievalSvc := retrievaluc.New(chunkRepo, embedder, retrievaluc.Params{
		Dimensions:      cfg.Embedding.Dimensions,
		DefaultK:        cfg.Retrieval.DefaultK,
		OverfetchFactor: cfg.Retrieval.OverfetchFactor,
		OverfetchFloor:  cfg.Retrieval.OverfetchFloor,
		Weights: retrievaluc.Weights{
			Similarity: cfg.Retrieval.Weights.Similarity,
			Lexical:    cfg.Retrieval.Weights.Lexical,
			Authority:  cfg.Retrieval.Weights.Authority,
		},
	})

	statsTool := toolsuc.NewStatsTool(statsStore, generator)
	knowledgeTool := toolsuc.NewKnowledgeTool(retrievalSvc)

	agentSvc := agentuc.New(generator, statsTool, knowledgeTool, agentuc.Params{
		MaxIterations: cfg.Generation.MaxIterations,
	}, logger)

	healthSvc := healthuc.New(store, statsStore, embedder)

	server := chiTransport.NewServer(
		agentSvc,
		retrievalSvc,
		historyRepo,
		healthSvc,
		time.Duration(cfg.HTTP.QuestionSec)*time.Second,
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
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

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
