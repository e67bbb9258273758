package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nitk-assistant/query-engine/internal/cache"
	"github.com/nitk-assistant/query-engine/internal/config"
	"github.com/nitk-assistant/query-engine/internal/handler"
	"github.com/nitk-assistant/query-engine/internal/middleware"
	"github.com/nitk-assistant/query-engine/internal/orchestrator"
	"github.com/nitk-assistant/query-engine/internal/stats"
)

// Dependencies holds all injected services needed by the router.
type Dependencies struct {
	DB           handler.DBPinger
	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator
	Cache        *cache.ResponseCache // nil disables /cache/stats and /cache/clear
	Counters     *stats.Counters
	Metrics      *middleware.Metrics
	MetricsReg   *prometheus.Registry
	Version      string

	// QueryRateLimiter throttles POST /query. nil disables rate limiting.
	QueryRateLimiter *middleware.RateLimiter
}

const serviceName = "query-engine"

// New creates and configures the Chi router with every route this service
// exposes: GET /health, POST /query, GET /stats, GET /cache/stats and
// POST /cache/clear, plus an optional Prometheus /metrics endpoint.
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.Config.FrontendURL))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	r.Get("/health", handler.Health(deps.DB, serviceName, deps.Version))

	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	queryHandler := handler.Query(deps.Orchestrator, deps.Config.MaxQueryLength, deps.Counters, deps.Metrics)
	queryTimeoutSecs := deps.Config.LLMStreamTimeout + deps.Config.ProviderStreamTimeout
	if queryTimeoutSecs <= 0 {
		// Unset stream timeouts fall back to the config defaults (60s + 60s).
		queryTimeoutSecs = 120
	}
	queryTimeout := middleware.Timeout(time.Duration(queryTimeoutSecs) * time.Second)
	if deps.QueryRateLimiter != nil {
		r.With(queryTimeout, middleware.RateLimit(deps.QueryRateLimiter)).Post("/query", queryHandler)
	} else {
		r.With(queryTimeout).Post("/query", queryHandler)
	}

	r.Get("/stats", handler.Stats(deps.Config, deps.Counters))
	r.Get("/cache/stats", handler.CacheStats(deps.Cache))
	r.Post("/cache/clear", handler.CacheClear(deps.Cache))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "route not found",
		})
	})

	return r
}
