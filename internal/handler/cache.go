package handler

import (
	"net/http"

	"github.com/nitk-assistant/query-engine/internal/cache"
)

type cacheStatsResponse struct {
	Entries   int   `json:"entries"`
	TotalSize int64 `json:"total_size_bytes"`
}

// CacheStats returns the GET /cache/stats handler. A nil cache reports 404,
// matching the response cache being disabled.
func CacheStats(c *cache.ResponseCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			respondError(w, http.StatusNotFound, "response cache is disabled")
			return
		}
		stats, err := c.Stats()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to read cache statistics")
			return
		}
		respondJSON(w, http.StatusOK, cacheStatsResponse{Entries: stats.Entries, TotalSize: stats.TotalSize})
	}
}

// CacheClear returns the POST /cache/clear handler. A nil cache reports 404.
func CacheClear(c *cache.ResponseCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			respondError(w, http.StatusNotFound, "response cache is disabled")
			return
		}
		if err := c.Clear(); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to clear cache")
			return
		}
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
