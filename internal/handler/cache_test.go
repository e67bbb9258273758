package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nitk-assistant/query-engine/internal/cache"
	"github.com/nitk-assistant/query-engine/internal/model"
)

func TestCacheStats_NilCache_Returns404(t *testing.T) {
	handler := CacheStats(nil)
	req := httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCacheClear_NilCache_Returns404(t *testing.T) {
	handler := CacheClear(nil)
	req := httptest.NewRequest(http.MethodPost, "/cache/clear", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCacheStats_RealCache_ReturnsEntryCount(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.New(dir)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	key := cache.Key("who is the director", model.FormatWeb)
	entry := model.CachedResponse{
		QuestionNormalized: "who is the director",
		Format:             model.FormatWeb,
		LLMResponse:        "Prof. Ravi is the director.",
		Emotion:            model.EmotionNeutral,
		Timestamp:          time.Now(),
	}
	if err := c.Put(key, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	handler := CacheStats(c)
	req := httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp cacheStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Entries != 1 {
		t.Errorf("Entries = %d, want 1", resp.Entries)
	}
}

func TestCacheClear_RealCache_RemovesEntries(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.New(dir)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	key := cache.Key("who is the director", model.FormatWeb)
	entry := model.CachedResponse{
		QuestionNormalized: "who is the director",
		Format:             model.FormatWeb,
		LLMResponse:        "Prof. Ravi is the director.",
		Emotion:            model.EmotionNeutral,
		Timestamp:          time.Now(),
	}
	if err := c.Put(key, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	handler := CacheClear(c)
	req := httptest.NewRequest(http.MethodPost, "/cache/clear", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries after clear = %d, want 0", stats.Entries)
	}
}
