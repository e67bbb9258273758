// Package textnorm strips social-media noise from free text and extracts
// search terms for overlap scoring.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	mentionPattern   = regexp.MustCompile(`@\w+`)
	hashtagPattern   = regexp.MustCompile(`#\w+`)
	urlPattern       = regexp.MustCompile(`https?://\S+|www\.\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	disallowedChars  = regexp.MustCompile(`[^A-Za-z0-9 .,!?-]`)
	tokenPunctuation = regexp.MustCompile(`[^\w-]`)
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {},
}

// Clean removes @handles, #tags, and URLs, collapses whitespace, and strips
// characters outside [A-Za-z0-9 .,!?-]. It never fails on well-formed
// strings; empty input returns empty output.
func Clean(text string) string {
	cleaned := mentionPattern.ReplaceAllString(text, "")
	cleaned = hashtagPattern.ReplaceAllString(cleaned, "")
	cleaned = urlPattern.ReplaceAllString(cleaned, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	cleaned = disallowedChars.ReplaceAllString(cleaned, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Terms returns an ordered list of unique lowercase tokens from text with
// stopwords removed and per-token punctuation stripped.
func Terms(text string) []string {
	lowered := strings.ToLower(text)
	fields := strings.Fields(lowered)

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := tokenPunctuation.ReplaceAllString(f, "")
		if tok == "" {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

// TermOverlap returns |queryTerms ∩ docTerms| / |queryTerms|, or 0 when
// queryTerms is empty.
func TermOverlap(queryTerms, docTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	docSet := make(map[string]struct{}, len(docTerms))
	for _, t := range docTerms {
		docSet[t] = struct{}{}
	}
	matches := 0
	for _, t := range queryTerms {
		if _, ok := docSet[t]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}
