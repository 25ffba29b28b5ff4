// Package analyzer parses a raw user query into the structured view (§4.3)
// the Retriever and Prompt Assembler consume. Every function here is pure:
// same query and gazetteer always yield the same QueryAnalysis.
package analyzer

import (
	"regexp"
	"strings"

	"github.com/fundvault/ragcore/internal/gazetteer"
	"github.com/fundvault/ragcore/internal/model"
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// questionWords is the closed set of leading interrogatives that mark a
// query as question-form (§4.3).
var questionWords = map[string]struct{}{
	"who": {}, "what": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"which": {}, "can": {}, "does": {}, "is": {}, "are": {},
}

// intentRule is one entry in the ordered rule list §4.3 resolves intent
// from; the first rule whose pattern appears in the normalized query wins.
type intentRule struct {
	intent   model.Intent
	patterns []string
}

var intentRules = []intentRule{
	{model.IntentDefinition, []string{"what is", "what are", "what does", "define", "definition of", "meaning of"}},
	{model.IntentProcedure, []string{"how to", "how do i", "how can i", "steps to", "process for", "procedure for"}},
	{model.IntentComparison, []string{" vs ", " versus ", "compare", "difference between", "better than"}},
	{model.IntentTroubleshooting, []string{"error", "issue", "problem", "not working", "fails", "failed", "broken", "doesn't work", "won't"}},
}

// Analyze produces the structured view of query described by §4.3.
func Analyze(query string, gz *gazetteer.Gazetteer) model.QueryAnalysis {
	trimmed := strings.TrimSpace(query)
	normalized := strings.ToLower(trimmed)
	tokens := tokenPattern.FindAllString(normalized, -1)

	isQuestion := strings.HasSuffix(trimmed, "?")
	if !isQuestion && len(tokens) > 0 {
		_, isQuestion = questionWords[tokens[0]]
	}

	var entities []string
	if gz != nil {
		entities = gz.ExtractEntities(normalized)
	}
	keywords := extractKeywords(tokens, gz)

	return model.QueryAnalysis{
		OriginalQuery:   query,
		NormalizedQuery: normalized,
		Tokens:          tokens,
		Entities:        entities,
		Keywords:        keywords,
		IsQuestion:      isQuestion,
		Intent:          classifyIntent(normalized),
		Complexity:      classifyComplexity(len(tokens)),
		WordCount:       len(tokens),
	}
}

// extractKeywords removes stop words and keeps tokens that either appear in
// the gazetteer or recur at least twice in the query (§4.3), preserving
// first-seen order.
func extractKeywords(tokens []string, gz *gazetteer.Gazetteer) []string {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		if gz != nil && gz.IsStopword(t) {
			continue
		}
		freq[t]++
	}

	var keywords []string
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if gz != nil && gz.IsStopword(t) {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		inGazetteer := gz != nil && gz.Contains(t)
		if freq[t] >= 2 || inGazetteer {
			keywords = append(keywords, t)
			seen[t] = struct{}{}
		}
	}
	return keywords
}

// classifyComplexity buckets a query by word count (§4.3).
func classifyComplexity(wordCount int) model.Complexity {
	switch {
	case wordCount <= 8:
		return model.ComplexitySimple
	case wordCount <= 16:
		return model.ComplexityModerate
	default:
		return model.ComplexityComplex
	}
}

// classifyIntent returns the first matching rule's intent, or general if
// none match (§4.3).
func classifyIntent(normalizedQuery string) model.Intent {
	padded := " " + normalizedQuery + " "
	for _, rule := range intentRules {
		for _, pattern := range rule.patterns {
			if strings.Contains(padded, pattern) {
				return rule.intent
			}
		}
	}
	return model.IntentGeneral
}
