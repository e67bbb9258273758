package entity

import (
	"strings"

	"github.com/nitk-assistant/query-engine/internal/model"
)

const (
	maxPrefixChunk      = 5
	nonPersonConfidence = 0.90
	personConfidence    = 0.80
)

// Extract returns at most one entity recognized in query, per the
// tie-break precedence: exact match, then non-PERSON high-confidence
// prefix-chunk match, then PERSON name-similarity match.
func (c *Catalog) Extract(query string) *model.ExtractedEntity {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		return nil
	}

	if e := c.exactMatch(lower); e != nil {
		return e
	}

	tokens := strings.Fields(lower)
	chunks := prefixChunks(tokens, maxPrefixChunk)

	if e := c.nonPersonChunkMatch(chunks); e != nil {
		return e
	}

	if e := c.personChunkMatch(chunks); e != nil {
		return e
	}

	return nil
}

func (c *Catalog) exactMatch(lower string) *model.ExtractedEntity {
	if c.Persons.KnownIndex != nil {
		if _, ok := c.Persons.KnownIndex[lower]; ok {
			return &model.ExtractedEntity{
				Type:           model.EntityPerson,
				Text:           lower,
				NormalizedName: c.NormalizeName(lower),
			}
		}
	}
	for _, cat := range []struct {
		t  model.EntityType
		cs categorySet
	}{
		{model.EntityOrganization, c.Organizations},
		{model.EntityLocation, c.Locations},
		{model.EntityEvent, c.Events},
		{model.EntityTitle, c.Titles},
	} {
		if cat.cs.has(lower) {
			return &model.ExtractedEntity{Type: cat.t, Text: lower}
		}
	}
	return nil
}

// prefixChunks returns every distinct token run of length 1..maxLen
// starting at token 0 through len(tokens)-1, deduplicated by text, matching
// the original's "5-token prefix chunking with dedup by seen chunk" scan.
func prefixChunks(tokens []string, maxLen int) []string {
	seen := make(map[string]struct{})
	var chunks []string
	for start := range tokens {
		for length := 1; length <= maxLen && start+length <= len(tokens); length++ {
			chunk := strings.Join(tokens[start:start+length], " ")
			if _, ok := seen[chunk]; ok {
				continue
			}
			seen[chunk] = struct{}{}
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func (c *Catalog) nonPersonChunkMatch(chunks []string) *model.ExtractedEntity {
	best := struct {
		score float64
		ent   *model.ExtractedEntity
	}{}

	for _, cat := range []struct {
		t  model.EntityType
		cs categorySet
	}{
		{model.EntityOrganization, c.Organizations},
		{model.EntityLocation, c.Locations},
		{model.EntityEvent, c.Events},
		{model.EntityTitle, c.Titles},
	} {
		for _, chunk := range chunks {
			for _, candidate := range cat.cs.values {
				score := TokenSortRatio(chunk, strings.ToLower(candidate))
				if score >= nonPersonConfidence && score > best.score {
					best.score = score
					best.ent = &model.ExtractedEntity{Type: cat.t, Text: candidate}
				}
			}
		}
	}
	return best.ent
}

func (c *Catalog) personChunkMatch(chunks []string) *model.ExtractedEntity {
	best := struct {
		score float64
		ent   *model.ExtractedEntity
	}{}

	for _, chunk := range chunks {
		for _, candidate := range c.Persons.KnownPersons {
			score := c.NameSimilarity(chunk, candidate) / 100
			if score >= personConfidence && score > best.score {
				best.score = score
				best.ent = &model.ExtractedEntity{
					Type:           model.EntityPerson,
					Text:           candidate,
					NormalizedName: c.NormalizeName(candidate),
				}
			}
		}
	}
	return best.ent
}
