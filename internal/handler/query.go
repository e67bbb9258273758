package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nitk-assistant/query-engine/internal/middleware"
	"github.com/nitk-assistant/query-engine/internal/model"
	"github.com/nitk-assistant/query-engine/internal/orchestrator"
	"github.com/nitk-assistant/query-engine/internal/stats"
)

// queryRequest is the POST /query request body.
type queryRequest struct {
	Question string `json:"question"`
	Format   string `json:"format"`
}

// queryResponse is the POST /query response body. The handler collects
// every chunk from the orchestrator before responding — there is no
// streaming at the HTTP layer.
type queryResponse struct {
	Response  string         `json:"response"`
	Emotion   model.Emotion  `json:"emotion"`
	CacheSafe bool           `json:"cache_safe"`
	Metadata  map[string]any `json:"metadata"`
}

// Query returns the POST /query handler. maxQuestionLen enforces the
// request-size cap; counters may be nil to disable /stats aggregation and
// metrics may be nil to disable Prometheus recording.
func Query(o *orchestrator.Orchestrator, maxQuestionLen int, counters *stats.Counters, metrics *middleware.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Question == "" {
			respondError(w, http.StatusBadRequest, "question is required")
			return
		}
		if maxQuestionLen > 0 && len(req.Question) > maxQuestionLen {
			respondError(w, http.StatusBadRequest, "question exceeds maximum length")
			return
		}

		var format model.Format
		switch req.Format {
		case "web":
			format = model.FormatWeb
		case "voice":
			format = model.FormatVoice
		default:
			respondError(w, http.StatusBadRequest, `format must be "web" or "voice"`)
			return
		}

		textCh, resultCh := o.Query(r.Context(), req.Question, format)

		var sb []byte
		for chunk := range textCh {
			sb = append(sb, chunk...)
		}
		result := <-resultCh

		if counters != nil {
			recordStats(counters, result)
		}
		if metrics != nil {
			recordMetrics(metrics, result)
		}

		slog.Info("query handled",
			"query_id", result.Metadata["query_id"],
			"format", req.Format,
			"cache_safe", result.CacheSafe,
			"emotion", result.Emotion,
		)

		respondJSON(w, http.StatusOK, queryResponse{
			Response:  string(sb),
			Emotion:   result.Emotion,
			CacheSafe: result.CacheSafe,
			Metadata:  result.Metadata,
		})
	}
}

func recordStats(counters *stats.Counters, result orchestrator.Result) {
	temporal, _ := result.Metadata["temporal"].(bool)
	cacheHit, _ := result.Metadata["cache_hit"].(bool)
	fallback, _ := result.Metadata["fallback"].(bool)
	retrievalCount, _ := result.Metadata["retrieval_count"].(int)

	cacheMiss := !temporal && !cacheHit
	counters.RecordQuery(temporal, cacheHit, cacheMiss, fallback, retrievalCount)
}

func recordMetrics(metrics *middleware.Metrics, result orchestrator.Result) {
	temporal, _ := result.Metadata["temporal"].(bool)
	cacheHit, _ := result.Metadata["cache_hit"].(bool)
	retrievalCount, _ := result.Metadata["retrieval_count"].(int)

	cacheMiss := !temporal && !cacheHit
	metrics.RecordQuery(temporal, cacheHit, cacheMiss, retrievalCount)
}
