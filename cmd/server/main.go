package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/fundvault/ragcore/internal/cache"
	"github.com/fundvault/ragcore/internal/config"
	"github.com/fundvault/ragcore/internal/gazetteer"
	"github.com/fundvault/ragcore/internal/gcpclient"
	"github.com/fundvault/ragcore/internal/middleware"
	"github.com/fundvault/ragcore/internal/repository"
	"github.com/fundvault/ragcore/internal/router"
	"github.com/fundvault/ragcore/internal/service"
)

const Version = "0.1.0"

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cmd/server: load config: %w", err)
	}
	cfgStore := config.NewStore(cfg.Snapshot)

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("cmd/server: connect to database: %w", err)
	}
	defer pool.Close()

	gz, err := gazetteer.Load(cfg.GazetteerPath, cfg.StopwordsPath)
	if err != nil {
		return fmt.Errorf("cmd/server: load gazetteer: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, embedding cache running L1-only", "addr", cfg.RedisAddr, "error", err)
			redisClient = nil
		}
	}
	embeddingCache, err := cache.NewEmbeddingCache(10000, redisClient, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("cmd/server: create embedding cache: %w", err)
	}

	embeddingClient, err := gcpclient.NewEmbeddingAdapter(ctx, cfg.GCPProject, cfg.EmbeddingLocation, cfg.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("cmd/server: create embedding client: %w", err)
	}
	genaiClient, err := gcpclient.NewGenAIAdapter(ctx, cfg.GCPProject, cfg.VertexAILocation, cfg.VertexAIModel, cfg.VertexAIFallbackModels)
	if err != nil {
		return fmt.Errorf("cmd/server: create genai client: %w", err)
	}

	chunkRepo := repository.NewChunkRepo(pool)
	bm25Repo := repository.NewBM25Repository(pool)
	conversationRepo := repository.NewConversationRepo(pool)
	feedbackRepo := repository.NewFeedbackRepo(pool)

	embedder := service.NewEmbedderService(embeddingClient, chunkRepo, embeddingCache, cfg.EmbeddingModel, cfg.Snapshot.VectorDimension)
	baseRetriever := service.NewRetrieverService(service.AsQueryEmbedder(embedder), chunkRepo, bm25Repo)
	retriever := cache.NewCachingRetriever(baseRetriever, cache.New(5*time.Minute))
	assembler := service.NewPromptAssembler(0, 0)
	completion := service.NewCompletionService(genaiClient, cfg.Snapshot.CompletionMaxInFlight, time.Duration(cfg.Snapshot.CompletionQueueDeadlineMS)*time.Millisecond)
	confidence := service.NewConfidenceManager(cfgStore.Load())
	conversations := service.NewConversationService(conversationRepo, 0)

	metricsReg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(metricsReg)

	orchestrator := service.NewOrchestrator(cfgStore, gz, conversations, retriever, assembler, completion, confidence, metrics)

	chatRateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		MaxRequests: 30,
		Window:      time.Minute,
	})
	defer chatRateLimiter.Stop()

	deps := &router.Dependencies{
		DB:                 pool,
		FrontendURL:        cfg.FrontendURL,
		Version:            Version,
		Metrics:            metrics,
		MetricsReg:         metricsReg,
		InternalAuthSecret: cfg.InternalAuthSecret,
		Orchestrator:       orchestrator,
		Conversations:      conversations,
		Feedback:           feedbackRepo,
		ConfigStore:        cfgStore,
		ChatRateLimiter:    chatRateLimiter,
	}
	r := router.New(deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("ragcore v%s starting on port %d", Version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("received signal %s, shutting down gracefully", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Println("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
