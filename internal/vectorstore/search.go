package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/nitk-assistant/query-engine/internal/model"
)

// Hit is a single row returned from the chunk collection, distance in
// pgvector's native cosine-distance space ([0,2]).
type Hit struct {
	Chunk      model.DocumentChunk
	Distance   float64
	ExactMatch bool
}

// Store wraps a pgvector-backed chunk collection.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPool creates a PostgreSQL connection pool configured for pgvector.
func NewPool(ctx context.Context, databaseURL string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.NewPool: parse config: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.MinConns = 2
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute
	cfg.AfterConnect = pgxvector.RegisterTypes

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.NewPool: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("vectorstore.NewPool: ping: %w", err)
	}
	return pool, nil
}

// NewStore returns a Store backed by pool. A zero timeout defaults to 5s,
// the vector query timeout.
func NewStore(pool *pgxpool.Pool, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{pool: pool, timeout: timeout}
}

// SemanticSearch returns the top-k chunks nearest queryVec by cosine
// distance, with no entity filter applied.
func (s *Store) SemanticSearch(ctx context.Context, queryVec []float32, k int) ([]Hit, error) {
	return s.search(ctx, queryVec, k, "")
}

// EntityFirstSearch restricts the semantic search to chunks whose content
// contains entityText, and marks every returned row as an exact match.
func (s *Store) EntityFirstSearch(ctx context.Context, queryVec []float32, k int, entityText string) ([]Hit, error) {
	return s.search(ctx, queryVec, k, entityText)
}

func (s *Store) search(ctx context.Context, queryVec []float32, k int, entityFilter string) ([]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	embedding := pgvector.NewVector(queryVec)

	query := `
		SELECT
			dc.source_id, dc.chunk_position, dc.content,
			dc.source_platform, dc.source_url, dc.created_date, dc.author,
			dc.hashtags, dc.mentions,
			dc.persons, dc.organizations, dc.locations, dc.events, dc.titles,
			dc.embedding <=> $1::vector AS distance
		FROM document_chunks dc
		WHERE 1 = 1`

	args := []any{embedding}
	if entityFilter != "" {
		query += ` AND dc.content ILIKE '%' || $2 || '%'`
		args = append(args, entityFilter)
	}
	query += ` ORDER BY dc.embedding <=> $1::vector LIMIT ` + placeholderFor(len(args)+1)
	args = append(args, k)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h             Hit
			hashtags      []string
			mentions      []string
			sourcePlat    string
			sourceURL     string
			createdDate   time.Time
			author        string
			personsJSON   []byte
			orgsJSON      []byte
			locationsJSON []byte
			eventsJSON    []byte
			titlesJSON    []byte
			distance      float64
		)
		if err := rows.Scan(
			&h.Chunk.SourceID, &h.Chunk.ChunkPosition, &h.Chunk.Content,
			&sourcePlat, &sourceURL, &createdDate, &author,
			&hashtags, &mentions,
			&personsJSON, &orgsJSON, &locationsJSON, &eventsJSON, &titlesJSON,
			&distance,
		); err != nil {
			return nil, fmt.Errorf("vectorstore.search: scan: %w", err)
		}

		entities := map[model.EntityType][]string{
			model.EntityPerson:       decodeEntityList(personsJSON),
			model.EntityOrganization: decodeEntityList(orgsJSON),
			model.EntityLocation:     decodeEntityList(locationsJSON),
			model.EntityEvent:        decodeEntityList(eventsJSON),
			model.EntityTitle:        decodeEntityList(titlesJSON),
		}

		h.Chunk.Metadata = model.ChunkMetadata{
			SourcePlatform: sourcePlat,
			SourceURL:      sourceURL,
			CreatedDate:    createdDate,
			Author:         author,
			Hashtags:       hashtags,
			Mentions:       mentions,
			Entities:       entities,
		}
		h.Distance = distance
		h.ExactMatch = entityFilter != ""
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorstore.search: %w", err)
	}

	slog.Debug("vectorstore search complete", "results", len(hits), "entity_filter", entityFilter != "", "k", k)
	return hits, nil
}

func placeholderFor(n int) string {
	return fmt.Sprintf("$%d", n)
}

// decodeEntityList parses one flattened entity column (a JSON-encoded
// string array per spec §6.2). A null or malformed column yields an empty
// list rather than failing the whole row.
func decodeEntityList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var vals []string
	if err := json.Unmarshal(raw, &vals); err != nil {
		slog.Warn("vectorstore: malformed entity column", "error", err)
		return nil
	}
	return vals
}
