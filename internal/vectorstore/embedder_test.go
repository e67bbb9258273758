package vectorstore

import (
	"context"
	"testing"

	"github.com/nitk-assistant/query-engine/internal/lru"
)

func testEmbedder(cacheSize int) *Embedder {
	e := &Embedder{
		project:  "proj",
		location: "us-central1",
		model:    "text-embedding-004",
	}
	if cacheSize > 0 {
		e.cache = lru.New(cacheSize)
	}
	return e
}

func TestEmbedder_EndpointURL_Regional(t *testing.T) {
	e := testEmbedder(0)
	want := "https://us-central1-aiplatform.googleapis.com/v1/projects/proj/locations/us-central1/publishers/google/models/text-embedding-004:predict"
	if got := e.endpointURL(); got != want {
		t.Errorf("endpointURL() = %q, want %q", got, want)
	}
}

func TestEmbedder_EndpointURL_Global(t *testing.T) {
	e := testEmbedder(0)
	e.location = "global"
	want := "https://aiplatform.googleapis.com/v1/projects/proj/locations/global/publishers/google/models/text-embedding-004:predict"
	if got := e.endpointURL(); got != want {
		t.Errorf("endpointURL() = %q, want %q", got, want)
	}
}

func TestEmbedder_EmbedQuery_CacheHit(t *testing.T) {
	e := testEmbedder(10)
	want := []float32{0.1, 0.2, 0.3}
	e.cache.Put("who is the director", want)

	got, err := e.EmbedQuery(context.Background(), "who is the director")
	if err != nil {
		t.Fatalf("EmbedQuery() error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("EmbedQuery() returned %v, want cached %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EmbedQuery()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
