package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nitk-assistant/query-engine/internal/entity"
	"github.com/nitk-assistant/query-engine/internal/model"
	"github.com/nitk-assistant/query-engine/internal/orchestrator"
	"github.com/nitk-assistant/query-engine/internal/scoring"
	"github.com/nitk-assistant/query-engine/internal/stats"
	"github.com/nitk-assistant/query-engine/internal/temporal"
	"github.com/nitk-assistant/query-engine/internal/vectorstore"
)

type fakeHandlerEmbedder struct{}

func (fakeHandlerEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type fakeHandlerSearcher struct{}

func (fakeHandlerSearcher) SemanticSearch(ctx context.Context, queryVec []float32, k int) ([]vectorstore.Hit, error) {
	return []vectorstore.Hit{{Chunk: model.DocumentChunk{Content: "The director is Prof. Ravi."}, Distance: 0.1}}, nil
}

func (fakeHandlerSearcher) EntityFirstSearch(ctx context.Context, queryVec []float32, k int, entityText string) ([]vectorstore.Hit, error) {
	return nil, nil
}

type fakeHandlerLLM struct {
	tokens []string
}

func (f fakeHandlerLLM) Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	textCh := make(chan string, len(f.tokens))
	errCh := make(chan error, 1)
	for _, tok := range f.tokens {
		textCh <- tok
	}
	close(textCh)
	errCh <- nil
	close(errCh)
	return textCh, errCh
}

func testOrchestratorForHandler(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	cat := &entity.Catalog{Persons: entity.PersonRules{KnownIndex: map[string]struct{}{}}}
	scorer := scoring.New(cat, scoring.DefaultThresholds)
	classifier := temporal.New(1)
	embedder := fakeHandlerEmbedder{}
	searcher := fakeHandlerSearcher{}
	llm := fakeHandlerLLM{tokens: []string{"The ", "director ", "is ", "Prof. ", "Ravi."}}
	return orchestrator.New(cat, scorer, classifier, embedder, searcher, llm, nil, nil, 5)
}

func TestQuery_ValidRequest_ReturnsAnswer(t *testing.T) {
	o := testOrchestratorForHandler(t)
	handler := Query(o, 1000, stats.New(), nil)

	body, _ := json.Marshal(map[string]string{"question": "Who is the director?", "format": "web"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Response == "" {
		t.Error("expected non-empty response text")
	}
}

func TestQuery_EmptyQuestion_Returns400(t *testing.T) {
	o := testOrchestratorForHandler(t)
	handler := Query(o, 1000, nil, nil)

	body, _ := json.Marshal(map[string]string{"question": "", "format": "web"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQuery_OverlongQuestion_Returns400(t *testing.T) {
	o := testOrchestratorForHandler(t)
	handler := Query(o, 10, nil, nil)

	body, _ := json.Marshal(map[string]string{"question": "this question is much too long", "format": "web"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQuery_InvalidFormat_Returns400(t *testing.T) {
	o := testOrchestratorForHandler(t)
	handler := Query(o, 1000, nil, nil)

	body, _ := json.Marshal(map[string]string{"question": "Who is the director?", "format": "carrier-pigeon"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQuery_MalformedBody_Returns400(t *testing.T) {
	o := testOrchestratorForHandler(t)
	handler := Query(o, 1000, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQuery_RecordsStats(t *testing.T) {
	o := testOrchestratorForHandler(t)
	counters := stats.New()
	handler := Query(o, 1000, counters, nil)

	body, _ := json.Marshal(map[string]string{"question": "Who is the director?", "format": "web"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	snap := counters.Snapshot()
	if snap.TotalQueries != 1 {
		t.Errorf("TotalQueries = %d, want 1", snap.TotalQueries)
	}
}
