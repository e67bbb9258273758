package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nitk-assistant/query-engine/internal/cache"
	"github.com/nitk-assistant/query-engine/internal/config"
	"github.com/nitk-assistant/query-engine/internal/entity"
	"github.com/nitk-assistant/query-engine/internal/middleware"
	"github.com/nitk-assistant/query-engine/internal/model"
	"github.com/nitk-assistant/query-engine/internal/orchestrator"
	"github.com/nitk-assistant/query-engine/internal/scoring"
	"github.com/nitk-assistant/query-engine/internal/stats"
	"github.com/nitk-assistant/query-engine/internal/temporal"
	"github.com/nitk-assistant/query-engine/internal/vectorstore"
)

// mockDB implements handler.DBPinger for testing.
type mockDB struct {
	err error
}

func (m *mockDB) Ping(ctx context.Context) error {
	return m.err
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

type stubSearcher struct{}

func (stubSearcher) SemanticSearch(ctx context.Context, queryVec []float32, k int) ([]vectorstore.Hit, error) {
	return []vectorstore.Hit{{Chunk: model.DocumentChunk{Content: "NITK was established in 1960."}}}, nil
}

func (stubSearcher) EntityFirstSearch(ctx context.Context, queryVec []float32, k int, entityText string) ([]vectorstore.Hit, error) {
	return nil, nil
}

type stubLLM struct{}

func (stubLLM) Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	textCh := make(chan string, 1)
	errCh := make(chan error, 1)
	textCh <- "NITK was established in 1960."
	close(textCh)
	errCh <- nil
	close(errCh)
	return textCh, errCh
}

func newTestOrchestrator(respCache *cache.ResponseCache) *orchestrator.Orchestrator {
	cat := &entity.Catalog{Persons: entity.PersonRules{KnownIndex: map[string]struct{}{}}}
	scorer := scoring.New(cat, scoring.DefaultThresholds)
	classifier := temporal.New(1)
	return orchestrator.New(cat, scorer, classifier, stubEmbedder{}, stubSearcher{}, stubLLM{}, nil, respCache, 5)
}

func newTestRouter(dbErr error) http.Handler {
	deps := &Dependencies{
		DB:           &mockDB{err: dbErr},
		Config:       &config.Config{FrontendURL: "http://localhost:3000", MaxQueryLength: 1000},
		Orchestrator: newTestOrchestrator(nil),
		Counters:     stats.New(),
		Metrics:      middleware.NewMetrics(prometheus.NewRegistry()),
		Version:      "0.1.0",
	}
	return New(deps)
}

func TestHealth_IsPublic(t *testing.T) {
	r := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHealth_DegradedWhenDBUnreachable(t *testing.T) {
	r := newTestRouter(context.DeadlineExceeded)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestQuery_EndToEnd(t *testing.T) {
	r := newTestRouter(nil)

	body, _ := json.Marshal(map[string]string{"question": "When was NITK established?", "format": "web"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestStats_IsPublic(t *testing.T) {
	r := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCacheStats_404WhenDisabled(t *testing.T) {
	r := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCacheStats_200WhenEnabled(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.New(dir)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	deps := &Dependencies{
		DB:           &mockDB{},
		Config:       &config.Config{FrontendURL: "http://localhost:3000", MaxQueryLength: 1000},
		Orchestrator: newTestOrchestrator(c),
		Cache:        c,
		Counters:     stats.New(),
		Metrics:      middleware.NewMetrics(prometheus.NewRegistry()),
		Version:      "0.1.0",
	}
	r := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestNotFound_ReturnsJSONEnvelope(t *testing.T) {
	r := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestMetrics_ServedWhenRegistrySet(t *testing.T) {
	reg := prometheus.NewRegistry()
	deps := &Dependencies{
		DB:           &mockDB{},
		Config:       &config.Config{FrontendURL: "http://localhost:3000", MaxQueryLength: 1000},
		Orchestrator: newTestOrchestrator(nil),
		Counters:     stats.New(),
		Metrics:      middleware.NewMetrics(reg),
		MetricsReg:   reg,
		Version:      "0.1.0",
	}
	r := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
