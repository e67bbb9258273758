// Package temporal decides whether a question requires information newer
// than the static knowledge base.
package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var temporalKeywords = []string{
	"latest", "recent", "current", "new", "now", "today", "this year",
}

var statusKeywords = []string{
	"updates", "announcements", "changes", "progress", "news",
}

var relativeTimeKeywords = []string{
	"last month", "past year", "recently announced",
}

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// Classifier decides whether a question needs current information, via a
// keyword pattern or a year-in-range check.
type Classifier struct {
	keywordPattern *regexp.Regexp
	yearRange      int
	now            func() time.Time
}

// New builds a Classifier. yearRange is the number of years on either side
// of the current year that still counts as "in range" (spec default 1).
func New(yearRange int) *Classifier {
	return &Classifier{
		keywordPattern: buildKeywordPattern(),
		yearRange:      yearRange,
		now:            time.Now,
	}
}

func buildKeywordPattern() *regexp.Regexp {
	all := make([]string, 0, len(temporalKeywords)+len(statusKeywords)+len(relativeTimeKeywords))
	all = append(all, temporalKeywords...)
	all = append(all, statusKeywords...)
	all = append(all, relativeTimeKeywords...)

	parts := make([]string, len(all))
	for i, kw := range all {
		parts[i] = regexp.QuoteMeta(kw)
	}
	pattern := fmt.Sprintf(`\b(%s)\b`, joinAlternatives(parts))
	return regexp.MustCompile(`(?i)` + pattern)
}

func joinAlternatives(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "|" + p
	}
	return out
}

// NeedsCurrent reports whether question needs current information: either a
// temporal/status/relative-time keyword appears on a word boundary, or a
// 20xx year within yearRange of the current year is present.
func (c *Classifier) NeedsCurrent(question string) bool {
	if c.keywordPattern.MatchString(question) {
		return true
	}
	return c.hasYearInRange(question)
}

func (c *Classifier) hasYearInRange(question string) bool {
	matches := yearPattern.FindAllStringSubmatch(question, -1)
	if len(matches) == 0 {
		return false
	}
	currentYear := c.now().Year()
	for _, m := range matches {
		year, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if year >= currentYear-c.yearRange && year <= currentYear+c.yearRange {
			return true
		}
	}
	return false
}
