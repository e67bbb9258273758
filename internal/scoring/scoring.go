// Package scoring computes composite relevance scores for retrieved chunks
// and re-ranks them, following the formula:
//
//	final = initial + term_boost + metadata_boost + entity_boost + person_boost
package scoring

import (
	"strings"
	"sync"

	"github.com/nitk-assistant/query-engine/internal/entity"
	"github.com/nitk-assistant/query-engine/internal/model"
)

// Thresholds bundles the spec's tunable scoring defaults.
type Thresholds struct {
	ExactMatchBoost    float64
	MinTermMatch       float64
	HashtagBoost       float64
	MentionBoost       float64
	PersonBoost        float64
	NameMatchThreshold float64
	MinRelevanceScore  float64
	DefaultResults     int
	MaxEntityCacheSize int
}

// DefaultThresholds are the spec §4.5 defaults.
var DefaultThresholds = Thresholds{
	ExactMatchBoost:    0.15,
	MinTermMatch:       0.7,
	HashtagBoost:       0.02,
	MentionBoost:       0.02,
	PersonBoost:        0.15,
	NameMatchThreshold: 80.0,
	MinRelevanceScore:  0.25,
	DefaultResults:     5,
	MaxEntityCacheSize: 1000,
}

// Scorer computes and re-ranks scored results. It owns a bounded,
// evict-all-on-overflow memo of document entity lists, mirroring the
// source system's entity-extraction cache.
type Scorer struct {
	catalog    *entity.Catalog
	thresholds Thresholds

	mu         sync.Mutex
	entityMemo map[string]map[model.EntityType][]string
}

// New returns a Scorer bound to catalog and thresholds.
func New(catalog *entity.Catalog, thresholds Thresholds) *Scorer {
	return &Scorer{
		catalog:    catalog,
		thresholds: thresholds,
		entityMemo: make(map[string]map[model.EntityType][]string),
	}
}

// docEntities returns the chunk's typed entity lists, lowercased, memoized
// by body hash. On overflow the entire memo is cleared, matching the
// source cache's evict-all policy rather than classic per-entry LRU
// eviction.
func (s *Scorer) docEntities(chunk model.DocumentChunk) map[model.EntityType][]string {
	hash := chunk.BodyHash()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.entityMemo[hash]; ok {
		return cached
	}

	lowered := make(map[model.EntityType][]string, len(chunk.Metadata.Entities))
	for t, vals := range chunk.Metadata.Entities {
		out := make([]string, len(vals))
		for i, v := range vals {
			out[i] = strings.ToLower(v)
		}
		lowered[t] = out
	}

	if len(s.entityMemo) >= s.thresholds.MaxEntityCacheSize {
		s.entityMemo = make(map[string]map[model.EntityType][]string)
	}
	s.entityMemo[hash] = lowered
	return lowered
}
