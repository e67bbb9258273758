package entity

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	initialWeight = 0.4
	exactWeight   = 0.6
	edgeWeight    = 1.2
	middleWeight  = 1.0
	knownBoost    = 1.1
)

var initialClusterPattern = regexp.MustCompile(`\b([A-Za-z])\.\s*`)

// FuzzyRatio is the Go analog of a 0-1 fuzzy string ratio, backed by
// Jaro-Winkler similarity.
func FuzzyRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	return matchr.JaroWinkler(a, b, false)
}

// TokenSortRatio sorts each string's whitespace tokens alphabetically before
// comparing, so word order differences don't depress the score.
func TokenSortRatio(a, b string) float64 {
	return FuzzyRatio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// NormalizeName applies the PERSON normalization pipeline: transliteration
// lookup, whitespace collapse, initial-cluster rewrite ("J. Smith" ->
// "J Smith"), then each name-format rewrite rule in order.
func (c *Catalog) NormalizeName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if t, ok := c.Persons.Transliterations[lower]; ok {
		lower = strings.ToLower(t)
	}
	lower = strings.Join(strings.Fields(lower), " ")
	lower = initialClusterPattern.ReplaceAllString(lower, "$1 ")
	lower = strings.Join(strings.Fields(lower), " ")

	for _, nf := range c.Persons.NameFormats {
		re, err := regexp.Compile(nf.Pattern)
		if err != nil {
			continue
		}
		lower = re.ReplaceAllString(lower, nf.Replacement)
	}
	return strings.TrimSpace(lower)
}

var nonAlnumSpace = regexp.MustCompile(`[^a-z0-9 ]`)

func normalizeForSimilarity(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	lower = nonAlnumSpace.ReplaceAllString(lower, "")
	return strings.Join(strings.Fields(lower), " ")
}

// NameSimilarity returns a position-weighted 0-100 score between two person
// names. Equal strings score 100. Both empty scores 0.
func (c *Catalog) NameSimilarity(a, b string) float64 {
	na := normalizeForSimilarity(a)
	nb := normalizeForSimilarity(b)

	if na == nb {
		if na == "" {
			return 0
		}
		return 100
	}

	partsA := strings.Fields(na)
	partsB := strings.Fields(nb)
	if len(partsA) == 0 || len(partsB) == 0 {
		return 0
	}

	n := len(partsA)
	if len(partsB) > n {
		n = len(partsB)
	}

	var weightedSum, weightSum float64
	for i := 0; i < n; i++ {
		var pa, pb string
		if i < len(partsA) {
			pa = partsA[i]
		}
		if i < len(partsB) {
			pb = partsB[i]
		}

		weight := middleWeight
		if i == 0 || i == n-1 {
			weight = edgeWeight
		}

		weightedSum += weight * partSimilarity(pa, pb)
		weightSum += weight
	}

	score := (weightedSum / weightSum) * 100
	if c != nil && (c.IsKnownPerson(a) || c.IsKnownPerson(b)) {
		score *= knownBoost
	}
	if score > 100 {
		score = 100
	}
	return score
}

func partSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}
	if (len(a) == 1 || len(b) == 1) && a[0] == b[0] {
		return initialWeight
	}
	return FuzzyRatio(a, b) * exactWeight
}
