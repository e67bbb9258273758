// Package orchestrator implements the end-to-end query pipeline: classify,
// retrieve or delegate, assemble a prompt, stream the answer, label its
// emotion, and decide whether the response may be cached.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nitk-assistant/query-engine/internal/cache"
	"github.com/nitk-assistant/query-engine/internal/emotion"
	"github.com/nitk-assistant/query-engine/internal/entity"
	"github.com/nitk-assistant/query-engine/internal/model"
	"github.com/nitk-assistant/query-engine/internal/prompt"
	"github.com/nitk-assistant/query-engine/internal/scoring"
	"github.com/nitk-assistant/query-engine/internal/temporal"
	"github.com/nitk-assistant/query-engine/internal/textnorm"
	"github.com/nitk-assistant/query-engine/internal/vectorstore"
)

const semanticMultiplier = 3

// Fallback strings, per the error handling design's user-visible failure
// messages.
const (
	fallbackGeneric       = "An error occurred."
	fallbackProviderVoice = "I can't access current information right now."
	fallbackProviderWeb   = "I'm unable to access current information at the moment. Please try again later."
)

// Embedder returns the dense vector for a query string.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs semantic and entity-filtered nearest-neighbor queries
// against the persistent chunk collection.
type Searcher interface {
	SemanticSearch(ctx context.Context, queryVec []float32, k int) ([]vectorstore.Hit, error)
	EntityFirstSearch(ctx context.Context, queryVec []float32, k int, entityText string) ([]vectorstore.Hit, error)
}

// LLM streams generated text for a system/user prompt pair.
type LLM interface {
	Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error)
}

// Provider streams a current-information answer. A nil Provider disables
// the temporal path entirely.
type Provider interface {
	Query(ctx context.Context, question string, format model.Format) (<-chan string, <-chan error)
}

// Result is the post-stream record delivered only after the text channel
// returned by Query has been fully drained.
type Result struct {
	Emotion   model.Emotion
	CacheSafe bool
	Metadata  map[string]any
}

// Orchestrator owns every collaborator needed to answer one query. It holds
// no per-request state between calls.
type Orchestrator struct {
	catalog  *entity.Catalog
	scorer   *scoring.Scorer
	temporal *temporal.Classifier
	embedder Embedder
	searcher Searcher
	llm      LLM
	provider Provider             // nil disables the temporal path
	cache    *cache.ResponseCache // nil disables the response cache
	now      func() time.Time
	results  int
}

// New assembles an Orchestrator. provider and respCache may be nil.
func New(catalog *entity.Catalog, scorer *scoring.Scorer, classifier *temporal.Classifier, embedder Embedder, searcher Searcher, llm LLM, provider Provider, respCache *cache.ResponseCache, defaultResults int) *Orchestrator {
	return &Orchestrator{
		catalog:  catalog,
		scorer:   scorer,
		temporal: classifier,
		embedder: embedder,
		searcher: searcher,
		llm:      llm,
		provider: provider,
		cache:    respCache,
		now:      time.Now,
		results:  defaultResults,
	}
}

// Query runs the pipeline for one request. It returns a channel of text
// chunks in the exact order the upstream source produced them, and a
// channel that delivers exactly one Result after textCh closes. Callers
// must fully drain textCh before reading resultCh.
func (o *Orchestrator) Query(ctx context.Context, question string, format model.Format) (<-chan string, <-chan Result) {
	textCh := make(chan string, 64)
	resultCh := make(chan Result, 1)

	go func() {
		result := o.run(ctx, question, format, textCh)
		close(textCh)
		resultCh <- result
		close(resultCh)
	}()

	return textCh, resultCh
}

func (o *Orchestrator) run(ctx context.Context, question string, format model.Format, textCh chan<- string) (result Result) {
	queryID := uuid.New().String()
	defer func() {
		if result.Metadata == nil {
			result.Metadata = map[string]any{}
		}
		result.Metadata["query_id"] = queryID
	}()

	q := &model.Query{Raw: question, Format: format, CacheSafe: true}

	if o.provider != nil && o.temporal.NeedsCurrent(question) {
		q.Temporal = true
		q.CacheSafe = false
		return o.providerPath(ctx, q, textCh)
	}

	q.Normalized = textnorm.Clean(question)
	q.Entity = o.catalog.Extract(q.Normalized)
	q.Intent = model.IntentGeneral
	if q.Entity != nil {
		q.Intent = q.Entity.Type
	}

	if o.cache != nil {
		key := cache.Key(q.Normalized, format)
		if cached, ok := o.cache.Get(key); ok {
			streamWords(textCh, cached.LLMResponse)
			return Result{
				Emotion:   emotion.Label(question, cached.LLMResponse),
				CacheSafe: true,
				Metadata:  map[string]any{"cache_hit": true},
			}
		}
	}

	hits, err := o.retrieve(ctx, q)
	if err != nil {
		slog.Error("orchestrator: retrieval failed", "error", err)
		return o.genericFallback(textCh)
	}
	q.RetrievalCount = len(hits)

	results := o.rerank(q, hits)
	docContext := joinBodies(results)

	systemPrompt := prompt.System(o.now(), format)
	userPrompt := prompt.User(docContext, question)

	answer, streamErr := o.streamAnswer(ctx, systemPrompt, userPrompt, textCh)
	if streamErr != nil {
		slog.Error("orchestrator: llm stream failed", "error", streamErr)
		return o.genericFallback(textCh)
	}

	label := emotion.Label(question, answer)
	if q.CacheSafe && o.cache != nil {
		key := cache.Key(q.Normalized, format)
		entry := model.CachedResponse{
			QuestionNormalized: q.Normalized,
			Format:             format,
			LLMResponse:        answer,
			Emotion:            label,
			Timestamp:          o.now(),
		}
		if err := o.cache.Put(key, entry); err != nil {
			slog.Warn("orchestrator: cache write failed", "error", err)
		}
	}

	return Result{
		Emotion:   label,
		CacheSafe: q.CacheSafe,
		Metadata: map[string]any{
			"retrieval_count": q.RetrievalCount,
			"intent":          string(q.Intent),
		},
	}
}

// retrieve runs entity-first and semantic search concurrently when the
// query has an eligible entity, preferring entity-first results when
// non-empty, otherwise falling back to the semantic results.
func (o *Orchestrator) retrieve(ctx context.Context, q *model.Query) ([]vectorstore.Hit, error) {
	vec, err := o.embedder.EmbedQuery(ctx, q.Normalized)
	if err != nil {
		return nil, fmt.Errorf("orchestrator.retrieve: embed: %w", err)
	}

	eligible := q.Entity != nil && (q.Entity.Type == model.EntityPerson || q.Entity.Type == model.EntityOrganization)
	if !eligible {
		hits, err := o.searcher.SemanticSearch(ctx, vec, o.results*semanticMultiplier)
		if err != nil {
			slog.Error("orchestrator: semantic search failed", "error", err)
			return nil, nil
		}
		return hits, nil
	}

	var entityHits, semanticHits []vectorstore.Hit
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := o.searcher.EntityFirstSearch(gCtx, vec, o.results, q.Entity.Text)
		if err != nil {
			slog.Error("orchestrator: entity-first search failed", "error", err)
			return nil
		}
		entityHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := o.searcher.SemanticSearch(gCtx, vec, o.results*semanticMultiplier)
		if err != nil {
			slog.Error("orchestrator: semantic search failed", "error", err)
			return nil
		}
		semanticHits = hits
		return nil
	})
	_ = g.Wait()

	if len(entityHits) > 0 {
		return entityHits, nil
	}
	return semanticHits, nil
}

func (o *Orchestrator) rerank(q *model.Query, hits []vectorstore.Hit) []model.ScoredResult {
	candidates := make([]scoring.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = scoring.Candidate{Chunk: h.Chunk, Distance: h.Distance, ExactMatch: h.ExactMatch}
	}
	queryTerms := textnorm.Terms(q.Normalized)
	return o.scorer.Rerank(candidates, queryTerms, q.Entity)
}

func (o *Orchestrator) streamAnswer(ctx context.Context, systemPrompt, userPrompt string, textCh chan<- string) (string, error) {
	tokens, errCh := o.llm.Stream(ctx, systemPrompt, userPrompt)
	var sb strings.Builder
	for tok := range tokens {
		sb.WriteString(tok)
		textCh <- tok
	}
	if err := <-errCh; err != nil {
		return sb.String(), err
	}
	return sb.String(), nil
}

func (o *Orchestrator) providerPath(ctx context.Context, q *model.Query, textCh chan<- string) Result {
	tokens, errCh := o.provider.Query(ctx, q.Raw, q.Format)
	var sb strings.Builder
	for tok := range tokens {
		sb.WriteString(tok)
		textCh <- tok
	}
	if err := <-errCh; err != nil {
		slog.Error("orchestrator: provider failed", "error", err)
		fallbackText := fallbackProviderWeb
		if q.Format == model.FormatVoice {
			fallbackText = fallbackProviderVoice
		}
		streamWords(textCh, fallbackText)
		return Result{
			Emotion:   emotion.Label(q.Raw, fallbackText),
			CacheSafe: false,
			Metadata:  map[string]any{"fallback": true, "temporal": true},
		}
	}
	return Result{
		Emotion:   emotion.Label(q.Raw, sb.String()),
		CacheSafe: false,
		Metadata:  map[string]any{"provider": "external", "temporal": true},
	}
}

// genericFallback handles step 8's catch-all: a fixed fallback string,
// emotion forced to confused (not content-classified), and cache_safe
// false.
func (o *Orchestrator) genericFallback(textCh chan<- string) Result {
	streamWords(textCh, fallbackGeneric)
	return Result{
		Emotion:   model.EmotionConfused,
		CacheSafe: false,
		Metadata:  map[string]any{"fallback": true},
	}
}

func streamWords(textCh chan<- string, text string) {
	words := strings.Fields(text)
	for i, w := range words {
		if i < len(words)-1 {
			textCh <- w + " "
		} else {
			textCh <- w
		}
	}
}

func joinBodies(results []model.ScoredResult) string {
	bodies := make([]string, len(results))
	for i, r := range results {
		bodies[i] = r.Chunk.Content
	}
	return strings.Join(bodies, "\n")
}
