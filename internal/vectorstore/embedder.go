// Package vectorstore implements dense embedding and pgvector-backed
// retrieval: embed(text) for the query path, and semantic/entity-first
// search over the persistent chunk collection.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2/google"

	"github.com/nitk-assistant/query-engine/internal/lru"
	"github.com/nitk-assistant/query-engine/internal/retry"
)

// Embedder calls the Vertex AI text embedding REST API and caches query
// embeddings by normalized input text in a bounded LRU.
type Embedder struct {
	project  string
	location string
	model    string
	client   *http.Client
	cache    *lru.Cache
}

// NewEmbedder creates an Embedder using application-default credentials.
// cacheSize bounds the number of cached query embeddings; 0 disables caching.
func NewEmbedder(ctx context.Context, project, location, model string, cacheSize int) (*Embedder, error) {
	client, err := google.DefaultClient(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("vectorstore.NewEmbedder: %w", err)
	}
	var cache *lru.Cache
	if cacheSize > 0 {
		cache = lru.New(cacheSize)
	}
	return &Embedder{
		project:  project,
		location: location,
		model:    model,
		client:   client,
		cache:    cache,
	}, nil
}

type embeddingRequest struct {
	Instances []embeddingInstance `json:"instances"`
}

type embeddingInstance struct {
	Content  string `json:"content"`
	TaskType string `json:"task_type"`
}

type embeddingResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

// EmbedDocuments generates embeddings for chunk content, using the
// RETRIEVAL_DOCUMENT task type.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embedWithTaskType(ctx, texts, "RETRIEVAL_DOCUMENT")
}

// EmbedQuery returns the dense vector for a single query string, using the
// RETRIEVAL_QUERY task type. Results are cached by the exact input string
// in a bounded LRU, per the input-string caching rule for query embeddings.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(text); ok {
			return v.([]float32), nil
		}
	}

	vecs, err := e.embedWithTaskType(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("vectorstore.EmbedQuery: empty response")
	}

	if e.cache != nil {
		e.cache.Put(text, vecs[0])
	}
	return vecs[0], nil
}

func (e *Embedder) embedWithTaskType(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	return retry.Do(ctx, "EmbedTexts", func() ([][]float32, error) {
		return e.doEmbed(ctx, texts, taskType)
	})
}

func (e *Embedder) doEmbed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	instances := make([]embeddingInstance, len(texts))
	for i, t := range texts {
		instances[i] = embeddingInstance{Content: t, TaskType: taskType}
	}

	reqBody, err := json.Marshal(embeddingRequest{Instances: instances})
	if err != nil {
		return nil, fmt.Errorf("vectorstore.doEmbed: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.endpointURL(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("vectorstore.doEmbed: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.doEmbed: call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vectorstore.doEmbed: status %d: %s", resp.StatusCode, body)
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("vectorstore.doEmbed: decode: %w", err)
	}

	results := make([][]float32, len(embResp.Predictions))
	for i, p := range embResp.Predictions {
		results[i] = p.Embeddings.Values
	}
	return results, nil
}

func (e *Embedder) endpointURL() string {
	if e.location == "global" {
		return fmt.Sprintf(
			"https://aiplatform.googleapis.com/v1/projects/%s/locations/global/publishers/google/models/%s:predict",
			e.project, e.model,
		)
	}
	return fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		e.location, e.project, e.location, e.model,
	)
}

// HealthCheck validates the embedding service connection.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	if err != nil {
		return fmt.Errorf("embedding health check failed: %w", err)
	}
	return nil
}
