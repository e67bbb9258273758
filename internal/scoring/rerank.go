package scoring

import (
	"sort"
	"strings"

	"github.com/nitk-assistant/query-engine/internal/model"
	"github.com/nitk-assistant/query-engine/internal/textnorm"
)

// Candidate is a retrieval hit awaiting scoring.
type Candidate struct {
	Chunk      model.DocumentChunk
	Distance   float64
	ExactMatch bool
}

// Score computes the full score breakdown for a candidate against a query's
// search terms and extracted entity.
func (s *Scorer) Score(candidate Candidate, queryTerms []string, queryEntity *model.ExtractedEntity) model.ScoreBreakdown {
	breakdown := model.ScoreBreakdown{}

	initial := 1 - min64(candidate.Distance, 1.0)
	breakdown.Initial = initial

	docTerms := textnorm.Terms(candidate.Chunk.Content)
	overlap := textnorm.TermOverlap(queryTerms, docTerms)
	if overlap >= s.thresholds.MinTermMatch {
		breakdown.TermBoost = overlap * s.thresholds.ExactMatchBoost
		breakdown.Reasons = append(breakdown.Reasons, "term overlap")
	}

	breakdown.MetadataBoost = s.metadataBoost(candidate.Chunk, queryTerms, &breakdown)
	breakdown.EntityBoost = s.entityBoost(candidate, queryEntity, &breakdown)
	breakdown.PersonBoost = s.personBoost(candidate.Chunk, queryEntity, &breakdown)

	breakdown.Final = breakdown.Initial + breakdown.TermBoost + breakdown.MetadataBoost + breakdown.EntityBoost + breakdown.PersonBoost
	return breakdown
}

func (s *Scorer) metadataBoost(chunk model.DocumentChunk, queryTerms []string, breakdown *model.ScoreBreakdown) float64 {
	var boost float64
	for _, tag := range chunk.Metadata.Hashtags {
		if containsAnyTerm(strings.ToLower(tag), queryTerms) {
			boost += s.thresholds.HashtagBoost
			breakdown.Reasons = append(breakdown.Reasons, "hashtag match")
			break
		}
	}
	for _, mention := range chunk.Metadata.Mentions {
		if containsAnyTerm(strings.ToLower(mention), queryTerms) {
			boost += s.thresholds.MentionBoost
			breakdown.Reasons = append(breakdown.Reasons, "mention match")
			break
		}
	}
	return boost
}

func (s *Scorer) entityBoost(candidate Candidate, queryEntity *model.ExtractedEntity, breakdown *model.ScoreBreakdown) float64 {
	if queryEntity == nil {
		return 0
	}
	boostValue, ok := s.catalog.BoostTable[queryEntity.Type]
	if !ok {
		return 0
	}

	if candidate.ExactMatch {
		breakdown.Reasons = append(breakdown.Reasons, "exact entity filter match")
		return boostValue
	}

	docEntities := s.docEntities(candidate.Chunk)
	queryText := strings.ToLower(queryEntity.Text)
	for _, docVal := range docEntities[queryEntity.Type] {
		if docVal == queryText {
			breakdown.Reasons = append(breakdown.Reasons, "entity match")
			return boostValue
		}
	}
	return 0
}

func (s *Scorer) personBoost(chunk model.DocumentChunk, queryEntity *model.ExtractedEntity, breakdown *model.ScoreBreakdown) float64 {
	if queryEntity == nil || queryEntity.Type != model.EntityPerson {
		return 0
	}

	docEntities := s.docEntities(chunk)
	docPersons := docEntities[model.EntityPerson]
	if len(docPersons) == 0 {
		return 0
	}

	best := 0.0
	for _, docPerson := range docPersons {
		sim := s.catalog.NameSimilarity(queryEntity.Text, docPerson)
		if sim > best {
			best = sim
		}
	}

	if best >= s.thresholds.NameMatchThreshold {
		breakdown.Reasons = append(breakdown.Reasons, "person name match")
		return s.thresholds.PersonBoost * (best / 100)
	}
	return 0
}

// Rerank drops candidates below MinRelevanceScore, deduplicates by body
// hash keeping the first occurrence, and sorts descending by final score
// (stable on ties). It applies the early-exit optimization: once
// DefaultResults candidates are held and the current lowest kept score is
// below topScore * MinRelevanceScore * 4, scanning stops.
func (s *Scorer) Rerank(candidates []Candidate, queryTerms []string, queryEntity *model.ExtractedEntity) []model.ScoredResult {
	seen := make(map[string]struct{}, len(candidates))
	results := make([]model.ScoredResult, 0, len(candidates))

	var topScore float64
	for _, c := range candidates {
		hash := c.Chunk.BodyHash()
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}

		breakdown := s.Score(c, queryTerms, queryEntity)
		if breakdown.Final < s.thresholds.MinRelevanceScore {
			continue
		}

		results = append(results, model.ScoredResult{
			Chunk:      c.Chunk,
			Distance:   c.Distance,
			ExactMatch: c.ExactMatch,
			Score:      breakdown,
		})

		if breakdown.Final > topScore {
			topScore = breakdown.Final
		}

		if len(results) >= s.thresholds.DefaultResults {
			lowest := lowestFinal(results)
			if lowest < topScore*s.thresholds.MinRelevanceScore*4 {
				break
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score.Final > results[j].Score.Final
	})

	return results
}

func lowestFinal(results []model.ScoredResult) float64 {
	lowest := results[0].Score.Final
	for _, r := range results[1:] {
		if r.Score.Final < lowest {
			lowest = r.Score.Final
		}
	}
	return lowest
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func containsAnyTerm(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
