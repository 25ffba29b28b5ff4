package service

import (
	"fmt"
	"math"

	"github.com/fundvault/ragcore/internal/model"
)

// FallbackResponse is a canned reply produced without a further completion
// call when confidence or retrieval conditions fall below threshold (§4.8).
type FallbackResponse struct {
	Message     string
	Confidence  float64
	Suggestions []string
	Strategy    model.Issue
}

type fallbackTemplate struct {
	message     string
	suggestions []string
}

// fallbackTemplates holds one canned message per known issue, parameterized
// by the original query.
var fallbackTemplates = map[model.Issue]fallbackTemplate{
	model.IssueNoRelevantSources: {
		message: "I couldn't find any relevant information in the knowledge base to answer %q.",
		suggestions: []string{
			"Upload documents related to this topic",
			"Try rephrasing your question with more specific terms",
		},
	},
	model.IssueLowRetrievalConfidence: {
		message: "I found some potentially related material for %q, but it isn't closely matched enough to answer with confidence.",
		suggestions: []string{
			"Narrow the scope of your query to a specific document or date range",
			"Try rephrasing your question with more specific terms",
		},
	},
	model.IssuePoorCitationQuality: {
		message: "I drafted a response to %q, but couldn't ground enough of it in your documents to stand behind it.",
		suggestions: []string{
			"Ask about a narrower aspect of this topic",
			"Check whether the source document has finished processing",
		},
	},
	model.IssueQueryAmbiguity: {
		message: "%q could mean a few different things — could you be more specific?",
		suggestions: []string{
			"Mention the fund, document, or section you mean",
			"Add more context to your question",
		},
	},
	model.IssueGenerationError: {
		message: "I retrieved relevant material for %q but ran into a problem generating a response. Please try again.",
		suggestions: []string{
			"Try again in a moment",
		},
	},
	model.IssueSystemError: {
		message: "Something went wrong while answering %q. Please try again.",
	},
}

// fallbackPriority is the fixed issue-priority order (§4.8) SelectFallback
// resolves ties with when more than one issue is detected in a single
// request.
var fallbackPriority = []model.Issue{
	model.IssueNoRelevantSources,
	model.IssueLowRetrievalConfidence,
	model.IssuePoorCitationQuality,
	model.IssueQueryAmbiguity,
	model.IssueGenerationError,
}

// SelectFallback picks the highest-priority issue present in issues and
// builds its canned response. Returns (nil, false) when issues is empty;
// an issue tag outside the priority table maps to system_error at a fixed
// confidence of 0.1.
func SelectFallback(issues []model.Issue, query string, originalConfidence float64) (*FallbackResponse, bool) {
	if len(issues) == 0 {
		return nil, false
	}

	present := make(map[model.Issue]struct{}, len(issues))
	for _, iss := range issues {
		present[iss] = struct{}{}
	}

	var selected model.Issue
	for _, candidate := range fallbackPriority {
		if _, ok := present[candidate]; ok {
			selected = candidate
			break
		}
	}

	tmpl, known := fallbackTemplates[selected]
	if selected == "" || !known {
		selected = model.IssueSystemError
		tmpl = fallbackTemplates[model.IssueSystemError]
	}

	confidence := math.Min(originalConfidence, 0.3)
	if selected == model.IssueSystemError {
		confidence = 0.1
	}

	return &FallbackResponse{
		Message:     fmt.Sprintf(tmpl.message, query),
		Confidence:  confidence,
		Suggestions: tmpl.suggestions,
		Strategy:    selected,
	}, true
}
