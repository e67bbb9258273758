// Package entity loads the curated entity catalogue and matches query text
// against it, including position-weighted person-name similarity.
package entity

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nitk-assistant/query-engine/internal/model"
)

// NameFormat is a single person-name rewrite rule, applied in order during
// normalization.
type NameFormat struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// PersonRules holds the PERSON category's normalization machinery, kept as
// distinct fields rather than a heterogeneous bag of strings and patterns.
type PersonRules struct {
	KnownPersons     []string
	KnownIndex       map[string]struct{}
	TitlePatterns    []*regexp.Regexp
	RolePatterns     []*regexp.Regexp
	NameFormats      []NameFormat
	Transliterations map[string]string
}

// categorySet is an ordered-unique string set with a lowercase index for
// O(1) exact-match lookup.
type categorySet struct {
	values []string
	index  map[string]struct{}
}

func newCategorySet(values []string) categorySet {
	cs := categorySet{values: make([]string, 0, len(values)), index: make(map[string]struct{}, len(values))}
	for _, v := range values {
		lower := strings.ToLower(v)
		if _, dup := cs.index[lower]; dup {
			continue
		}
		cs.index[lower] = struct{}{}
		cs.values = append(cs.values, v)
	}
	return cs
}

func (cs categorySet) has(lower string) bool {
	_, ok := cs.index[lower]
	return ok
}

// Catalog is the process-lifetime, immutable entity catalogue.
type Catalog struct {
	Persons       PersonRules
	Organizations categorySet
	Locations     categorySet
	Events        categorySet
	Titles        categorySet

	// BoostTable maps each EntityType to its scoring boost, replacing
	// dynamic attribute lookup with a fixed mapping built once.
	BoostTable map[model.EntityType]float64
}

type personsFile struct {
	KnownPersons     []string          `json:"known_persons"`
	TitlePatterns    []string          `json:"title_patterns"`
	RolePatterns     []string          `json:"role_patterns"`
	NameFormats      []NameFormat      `json:"name_formats"`
	Transliterations map[string]string `json:"transliterations"`
}

type locationsFile struct {
	Cities          []string `json:"cities"`
	States          []string `json:"states"`
	Countries       []string `json:"countries"`
	CampusLocations []string `json:"campus_locations"`
	Other           []string `json:"other"`
}

// Boosts carries the tunable per-category score boosts used to build a
// Catalog's BoostTable.
type Boosts struct {
	Person       float64
	Organization float64
	Location     float64
	Event        float64
	Entity       float64
}

// DefaultBoosts are the spec's tunable defaults for entity-category boosts.
var DefaultBoosts = Boosts{
	Person:       0.15,
	Organization: 0.10,
	Location:     0.08,
	Event:        0.08,
	Entity:       0.10,
}

// Load reads the five catalogue files from dir. A missing or unparseable
// file yields an empty category and a logged warning; Load never returns a
// fatal error.
func Load(dir string, b Boosts) *Catalog {
	c := &Catalog{
		BoostTable: map[model.EntityType]float64{
			model.EntityPerson:       b.Person,
			model.EntityOrganization: b.Organization,
			model.EntityLocation:     b.Location,
			model.EntityEvent:        b.Event,
		},
	}

	c.Persons = loadPersons(filepath.Join(dir, "persons.json"))
	c.Organizations = newCategorySet(loadStringList(filepath.Join(dir, "organizations.json"), "organizations"))
	c.Locations = newCategorySet(loadLocations(filepath.Join(dir, "locations.json")))
	c.Events = newCategorySet(loadStringList(filepath.Join(dir, "events.json"), "events"))
	c.Titles = newCategorySet(loadStringList(filepath.Join(dir, "titles.json"), "titles"))

	return c
}

func loadPersons(path string) PersonRules {
	rules := PersonRules{
		KnownIndex:       map[string]struct{}{},
		Transliterations: map[string]string{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("entity.loadPersons: catalogue file missing, using empty category", "path", path, "error", err)
		return rules
	}

	var pf personsFile
	if err := json.Unmarshal(data, &pf); err != nil {
		slog.Warn("entity.loadPersons: catalogue file unparseable, using empty category", "path", path, "error", err)
		return rules
	}

	rules.KnownPersons = pf.KnownPersons
	for _, p := range pf.KnownPersons {
		rules.KnownIndex[strings.ToLower(p)] = struct{}{}
	}
	rules.NameFormats = pf.NameFormats
	rules.Transliterations = pf.Transliterations
	if rules.Transliterations == nil {
		rules.Transliterations = map[string]string{}
	}

	rules.TitlePatterns = compilePatterns(pf.TitlePatterns, path, "title_patterns")
	rules.RolePatterns = compilePatterns(pf.RolePatterns, path, "role_patterns")

	return rules
}

func compilePatterns(raw []string, path, field string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		re, err := regexp.Compile(p)
		if err != nil {
			slog.Warn("entity.compilePatterns: invalid pattern skipped", "path", path, "field", field, "pattern", p, "error", err)
			continue
		}
		out = append(out, re)
	}
	return out
}

func loadStringList(path, field string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("entity.loadStringList: catalogue file missing, using empty category", "path", path, "field", field, "error", err)
		return nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		slog.Warn("entity.loadStringList: catalogue file unparseable, using empty category", "path", path, "field", field, "error", err)
		return nil
	}
	return values
}

func loadLocations(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("entity.loadLocations: catalogue file missing, using empty category", "path", path, "error", err)
		return nil
	}
	var lf locationsFile
	if err := json.Unmarshal(data, &lf); err != nil {
		slog.Warn("entity.loadLocations: catalogue file unparseable, using empty category", "path", path, "error", err)
		return nil
	}
	flattened := make([]string, 0, len(lf.Cities)+len(lf.States)+len(lf.Countries)+len(lf.CampusLocations)+len(lf.Other))
	flattened = append(flattened, lf.Cities...)
	flattened = append(flattened, lf.States...)
	flattened = append(flattened, lf.Countries...)
	flattened = append(flattened, lf.CampusLocations...)
	flattened = append(flattened, lf.Other...)
	return flattened
}

// IsKnownPerson reports whether name (case-insensitively) or a token-sort
// ratio of at least 0.90 identifies a catalogued person.
func (c *Catalog) IsKnownPerson(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return false
	}
	if _, ok := c.Persons.KnownIndex[lower]; ok {
		return true
	}
	for _, p := range c.Persons.KnownPersons {
		if TokenSortRatio(lower, strings.ToLower(p)) >= 0.90 {
			return true
		}
	}
	return false
}

func (c *Catalog) category(t model.EntityType) (categorySet, bool) {
	switch t {
	case model.EntityOrganization:
		return c.Organizations, true
	case model.EntityLocation:
		return c.Locations, true
	case model.EntityEvent:
		return c.Events, true
	case model.EntityTitle:
		return c.Titles, true
	default:
		return categorySet{}, false
	}
}
