package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DBPinger checks connectivity to the vector store.
type DBPinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Message string `json:"message"`
}

// Health reports whether the vector store is reachable.
// GET /health — 200 when ready, 503 when the store cannot be pinged.
func Health(db DBPinger, service, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := healthResponse{
			Status:  "ok",
			Service: service,
			Version: version,
			Message: "ready",
		}
		httpStatus := http.StatusOK

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				resp.Status = "degraded"
				resp.Message = "vector store unreachable: " + err.Error()
				httpStatus = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		json.NewEncoder(w).Encode(resp)
	}
}
