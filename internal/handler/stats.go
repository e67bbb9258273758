package handler

import (
	"net/http"

	"github.com/nitk-assistant/query-engine/internal/config"
	"github.com/nitk-assistant/query-engine/internal/stats"
)

type statsResponse struct {
	Config   configSummary  `json:"config"`
	Counters stats.Snapshot `json:"counters"`
}

type configSummary struct {
	Environment     string `json:"environment"`
	VertexAIModel   string `json:"vertex_ai_model"`
	EmbeddingModel  string `json:"embedding_model"`
	DefaultResults  int    `json:"default_results"`
	MaxQueryLength  int    `json:"max_query_length"`
	CacheEnabled    bool   `json:"cache_enabled"`
	ProviderEnabled bool   `json:"provider_enabled"`
}

// Stats returns the GET /stats handler: service configuration plus the
// in-process query counters.
func Stats(cfg *config.Config, counters *stats.Counters) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statsResponse{
			Config: configSummary{
				Environment:     cfg.Environment,
				VertexAIModel:   cfg.VertexAIModel,
				EmbeddingModel:  cfg.EmbeddingModel,
				DefaultResults:  cfg.DefaultResults,
				MaxQueryLength:  cfg.MaxQueryLength,
				CacheEnabled:    cfg.CacheEnabled,
				ProviderEnabled: cfg.PerplexityAPIKey != "",
			},
			Counters: counters.Snapshot(),
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
