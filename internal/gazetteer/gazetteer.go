// Package gazetteer loads the entity and stop-word lists the query analyzer
// uses for extraction, so they stay data, not Go source (§9).
package gazetteer

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// entityFile mirrors the category-keyed shape of gazetteer.yaml.
type entityFile map[string][]string

// stopwordFile mirrors stopwords.yaml.
type stopwordFile struct {
	Words []string `yaml:"words"`
}

// Gazetteer is an immutable, longest-match-first entity list plus a
// stop-word set, ready for the analyzer to query.
type Gazetteer struct {
	entities  []string // sorted longest-first, each lower-cased
	entitySet map[string]struct{}
	stopwords map[string]struct{}
}

// Load reads the entity and stop-word YAML files at the given paths.
func Load(gazetteerPath, stopwordsPath string) (*Gazetteer, error) {
	rawEntities, err := os.ReadFile(gazetteerPath)
	if err != nil {
		return nil, fmt.Errorf("gazetteer.Load: read entities: %w", err)
	}
	var ef entityFile
	if err := yaml.Unmarshal(rawEntities, &ef); err != nil {
		return nil, fmt.Errorf("gazetteer.Load: parse entities: %w", err)
	}

	rawStop, err := os.ReadFile(stopwordsPath)
	if err != nil {
		return nil, fmt.Errorf("gazetteer.Load: read stopwords: %w", err)
	}
	var sf stopwordFile
	if err := yaml.Unmarshal(rawStop, &sf); err != nil {
		return nil, fmt.Errorf("gazetteer.Load: parse stopwords: %w", err)
	}

	return newFromParts(ef, sf), nil
}

func newFromParts(ef entityFile, sf stopwordFile) *Gazetteer {
	var entities []string
	for _, terms := range ef {
		for _, t := range terms {
			entities = append(entities, strings.ToLower(strings.TrimSpace(t)))
		}
	}
	sort.Slice(entities, func(i, j int) bool {
		return len(entities[i]) > len(entities[j])
	})

	stop := make(map[string]struct{}, len(sf.Words))
	for _, w := range sf.Words {
		stop[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}

	entitySet := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		entitySet[e] = struct{}{}
	}

	return &Gazetteer{entities: entities, entitySet: entitySet, stopwords: stop}
}

// IsStopword reports whether a lower-cased token should be dropped during
// keyword extraction.
func (g *Gazetteer) IsStopword(token string) bool {
	_, ok := g.stopwords[strings.ToLower(token)]
	return ok
}

// Contains reports whether term is itself a gazetteer entry, for
// single-token keyword checks distinct from the multi-word scan
// ExtractEntities performs.
func (g *Gazetteer) Contains(term string) bool {
	_, ok := g.entitySet[strings.ToLower(term)]
	return ok
}

// ExtractEntities tries the loaded gazetteer entries against normalizedQuery
// longest entry first and returns the matches in that order. Each matched
// span is cut out of the text before shorter entries are tried, so an entry
// contained in a longer match is not reported again.
func (g *Gazetteer) ExtractEntities(normalizedQuery string) []string {
	var found []string
	seen := make(map[string]struct{})
	remaining := normalizedQuery

	for _, entity := range g.entities {
		idx := strings.Index(remaining, entity)
		if idx == -1 {
			continue
		}
		if _, dup := seen[entity]; dup {
			continue
		}
		seen[entity] = struct{}{}
		found = append(found, entity)
		remaining = remaining[:idx] + remaining[idx+len(entity):]
	}
	return found
}
