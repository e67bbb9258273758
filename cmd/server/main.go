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

	"github.com/nitk-assistant/query-engine/internal/cache"
	"github.com/nitk-assistant/query-engine/internal/config"
	"github.com/nitk-assistant/query-engine/internal/entity"
	"github.com/nitk-assistant/query-engine/internal/llmclient"
	"github.com/nitk-assistant/query-engine/internal/middleware"
	"github.com/nitk-assistant/query-engine/internal/orchestrator"
	"github.com/nitk-assistant/query-engine/internal/provider"
	"github.com/nitk-assistant/query-engine/internal/router"
	"github.com/nitk-assistant/query-engine/internal/scoring"
	"github.com/nitk-assistant/query-engine/internal/stats"
	"github.com/nitk-assistant/query-engine/internal/temporal"
	"github.com/nitk-assistant/query-engine/internal/vectorstore"
)

const Version = "0.1.0"

func getPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return fmt.Sprintf("%d", cfg.Port)
}

func buildRouter(ctx context.Context, cfg *config.Config) (*router.Dependencies, func(), error) {
	pool, err := vectorstore.NewPool(ctx, cfg.VectorDBURL, cfg.VectorDBMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("main: connect vector store: %w", err)
	}

	store := vectorstore.NewStore(pool, time.Duration(cfg.VectorQueryTimeout)*time.Second)

	embedder, err := vectorstore.NewEmbedder(ctx, cfg.GCPProject, cfg.EmbeddingLocation, cfg.EmbeddingModel, cfg.EmbeddingCacheSize)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("main: init embedder: %w", err)
	}

	llm, err := llmclient.New(ctx, cfg.GCPProject, cfg.VertexAILocation, cfg.VertexAIModel)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("main: init llm client: %w", err)
	}

	var current orchestrator.Provider
	if p, enabled := provider.New(cfg.PerplexityAPIKey, cfg.PerplexityModel, time.Duration(cfg.PerplexityTimeout)*time.Second); enabled {
		current = p
	} else {
		slog.Info("current-information provider disabled: PERPLEXITY_API_KEY not set")
	}

	var respCache *cache.ResponseCache
	if cfg.CacheEnabled {
		respCache, err = cache.New(
			cfg.CacheDir,
			cache.WithTTL(time.Duration(cfg.CacheTTLDays)*24*time.Hour),
			cache.WithMaxSizeBytes(int64(cfg.CacheMaxSizeGB*1024*1024*1024)),
			cache.WithCleanupInterval(time.Duration(cfg.CacheCleanupHrs)*time.Hour),
		)
		if err != nil {
			pool.Close()
			llm.Close()
			return nil, nil, fmt.Errorf("main: init response cache: %w", err)
		}
	}

	catalog := entity.Load(cfg.CatalogueDir, entity.DefaultBoosts)
	scorer := scoring.New(catalog, scoring.DefaultThresholds)
	classifier := temporal.New(cfg.CurrentYearRange)

	orch := orchestrator.New(catalog, scorer, classifier, embedder, store, llm, current, respCache, cfg.DefaultResults)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)
	counters := stats.New()

	var limiter *middleware.RateLimiter
	if cfg.Environment != "development" {
		limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			MaxRequests: 30,
			Window:      time.Minute,
		})
	}

	deps := &router.Dependencies{
		DB:               pool,
		Config:           cfg,
		Orchestrator:     orch,
		Cache:            respCache,
		Counters:         counters,
		Metrics:          metrics,
		MetricsReg:       reg,
		Version:          Version,
		QueryRateLimiter: limiter,
	}

	cleanup := func() {
		pool.Close()
		llm.Close()
		if limiter != nil {
			limiter.Stop()
		}
	}

	return deps, cleanup, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("main: load config: %w", err)
	}

	ctx := context.Background()
	deps, cleanup, err := buildRouter(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	r := router.New(deps)
	port := getPort(cfg)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("query-engine v%s starting on port %s", Version, port)
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
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
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
