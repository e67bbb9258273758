// Package stats accumulates the in-process query counters exposed by
// GET /stats, replacing the source system's module-level statistics
// dict with a single struct of atomic counters owned by the server.
package stats

import "sync/atomic"

// Counters is safe for concurrent use. Every field is updated once per
// completed query.
type Counters struct {
	totalQueries        atomic.Int64
	temporalQueries     atomic.Int64
	cacheHits           atomic.Int64
	cacheMisses         atomic.Int64
	fallbacks           atomic.Int64
	retrievalCandidates atomic.Int64
}

// New returns a zeroed Counters.
func New() *Counters {
	return &Counters{}
}

// RecordQuery updates every counter for one completed query. cacheHit and
// cacheMiss are mutually exclusive; a temporal query is never a cache
// lookup at all, so callers pass cacheHit=false, cacheMiss=false for it.
func (c *Counters) RecordQuery(temporal, cacheHit, cacheMiss, fallback bool, retrievalCount int) {
	c.totalQueries.Add(1)
	if temporal {
		c.temporalQueries.Add(1)
	}
	if cacheHit {
		c.cacheHits.Add(1)
	}
	if cacheMiss {
		c.cacheMisses.Add(1)
	}
	if fallback {
		c.fallbacks.Add(1)
	}
	c.retrievalCandidates.Add(int64(retrievalCount))
}

// Snapshot is the JSON shape returned by GET /stats.
type Snapshot struct {
	TotalQueries           int64   `json:"total_queries"`
	TemporalQueries        int64   `json:"temporal_queries"`
	CacheHits              int64   `json:"cache_hits"`
	CacheMisses            int64   `json:"cache_misses"`
	CacheHitRate           float64 `json:"cache_hit_rate"`
	FallbackCount          int64   `json:"fallback_count"`
	AvgRetrievalCandidates float64 `json:"avg_retrieval_candidates"`
}

// Snapshot computes a point-in-time read of every counter.
func (c *Counters) Snapshot() Snapshot {
	total := c.totalQueries.Load()
	hits := c.cacheHits.Load()
	misses := c.cacheMisses.Load()
	candidates := c.retrievalCandidates.Load()

	s := Snapshot{
		TotalQueries:    total,
		TemporalQueries: c.temporalQueries.Load(),
		CacheHits:       hits,
		CacheMisses:     misses,
		FallbackCount:   c.fallbacks.Load(),
	}
	if hits+misses > 0 {
		s.CacheHitRate = float64(hits) / float64(hits+misses)
	}
	if total > 0 {
		s.AvgRetrievalCandidates = float64(candidates) / float64(total)
	}
	return s
}
