package service

import (
	"math"
	"strings"

	"github.com/fundvault/ragcore/internal/config"
	"github.com/fundvault/ragcore/internal/model"
)

// modelConfidence is the generation sub-score's per-model constant table
// (§4.8). Models not listed fall back to defaultModelConfidence.
var modelConfidence = map[string]float64{
	"gemini-3-pro-preview": 0.90,
	"gemini-3-flash":       0.80,
}

const defaultModelConfidence = 0.75

// discourseMarkers are the connective words the coherence heuristic looks
// for (§glossary: "presence of discourse markers").
var discourseMarkers = []string{
	"first", "second", "third", "therefore", "however", "additionally",
	"furthermore", "thus", "finally", "moreover", "consequently", "meanwhile",
}

// ConfidenceInputs bundles everything the Confidence Manager needs to score
// one completed orchestrator pass.
type ConfidenceInputs struct {
	RetrievedChunks []RankedChunk
	Analysis        model.QueryAnalysis
	HasPriorTurns   bool
	ResponseText    string
	Citations       []model.Citation
	TopK            int
	FinishReason    string
	ModelUsed       string
	TokensUsed      int
	MaxTokens       int
	// PresetIssue forces a fallback issue regardless of sub-scores, for
	// conditions the Confidence Manager cannot itself observe: the
	// orchestrator sets this to no_relevant_sources when retrieval (§4.4)
	// returned nothing, or generation_error when the Completion Client
	// (§4.6) failed terminally.
	PresetIssue model.Issue
}

// ConfidenceManager computes the §4.8 weighted overall confidence score,
// classifies it, and detects issues against configured thresholds.
type ConfidenceManager struct {
	weights          config.ConfidenceWeights
	highThreshold    float64
	mediumThreshold  float64
	lowThreshold     float64
	minimumThreshold float64
}

// NewConfidenceManager creates a ConfidenceManager from a configuration
// snapshot. Thresholds and weights are read fresh on every Assess call
// site's snapshot capture, never hard-coded (§9 design note).
func NewConfidenceManager(snap config.Snapshot) *ConfidenceManager {
	return &ConfidenceManager{
		weights:          snap.ConfidenceWeights,
		highThreshold:    snap.ConfidenceHighThreshold,
		mediumThreshold:  snap.ConfidenceMediumThreshold,
		lowThreshold:     snap.ConfidenceLowThreshold,
		minimumThreshold: snap.ConfidenceMinimumThreshold,
	}
}

// MinimumThreshold returns the overall score below which the orchestrator
// must apply a fallback even when no other issue was detected (§4.9 step 8).
func (m *ConfidenceManager) MinimumThreshold() float64 {
	return m.minimumThreshold
}

// Assess computes the full ConfidenceAssessment for one request.
func (m *ConfidenceManager) Assess(in ConfidenceInputs) model.ConfidenceAssessment {
	retrieval, retrievalMetrics := scoreRetrieval(in.RetrievedChunks)
	content, contentMetrics := scoreContent(in.Citations, in.TopK, in.ResponseText)
	context, contextMetrics := scoreContext(in.Analysis, in.HasPriorTurns)
	generation, generationMetrics := scoreGeneration(in.ModelUsed, in.FinishReason, in.ResponseText, in.TokensUsed, in.MaxTokens)

	overall := m.weights.Retrieval*retrieval + m.weights.Content*content +
		m.weights.Context*context + m.weights.Generation*generation

	issues := m.detectIssues(retrieval, contentMetrics, contextMetrics, len(in.RetrievedChunks), in.ResponseText != "")
	if in.PresetIssue != "" {
		issues = append([]model.Issue{in.PresetIssue}, issues...)
	}

	metrics := make(map[string]float64, len(retrievalMetrics)+len(contentMetrics)+len(contextMetrics)+len(generationMetrics))
	for k, v := range retrievalMetrics {
		metrics[k] = v
	}
	for k, v := range contentMetrics {
		metrics[k] = v
	}
	for k, v := range contextMetrics {
		metrics[k] = v
	}
	for k, v := range generationMetrics {
		metrics[k] = v
	}

	return model.ConfidenceAssessment{
		Retrieval:  retrieval,
		Content:    content,
		Context:    context,
		Generation: generation,
		Overall:    overall,
		Level:      m.classify(overall),
		Issues:     issues,
		Metrics:    metrics,
	}
}

func (m *ConfidenceManager) classify(overall float64) model.ConfidenceLevel {
	switch {
	case overall >= m.highThreshold:
		return model.LevelHigh
	case overall >= m.mediumThreshold:
		return model.LevelMedium
	case overall >= m.lowThreshold:
		return model.LevelLow
	default:
		return model.LevelVeryLow
	}
}

// detectIssues emits typed issues when specific sub-factors drop below
// tuned thresholds (§4.8). generation_error (when the Completion Client
// failed terminally) arrives via ConfidenceInputs.PresetIssue instead;
// citation quality is only meaningful once there is a response to judge,
// so hasResponse guards poor_citation_quality to avoid it masking a
// generation failure behind an empty response's degenerate sub-scores.
func (m *ConfidenceManager) detectIssues(retrieval float64, contentMetrics, contextMetrics map[string]float64, numChunks int, hasResponse bool) []model.Issue {
	var issues []model.Issue
	if numChunks == 0 {
		issues = append(issues, model.IssueNoRelevantSources)
	}
	if retrieval < 0.4 {
		issues = append(issues, model.IssueLowRetrievalConfidence)
	}
	if hasResponse && (contentMetrics["citation_accuracy"] < 0.7 || contentMetrics["citation_presence"] < 0.3) {
		issues = append(issues, model.IssuePoorCitationQuality)
	}
	if contextMetrics["query_clarity"] < 0.4 {
		issues = append(issues, model.IssueQueryAmbiguity)
	}
	return issues
}

// scoreRetrieval implements §4.8's retrieval sub-score:
// 0.4*top_similarity + 0.3*mean_similarity_of_top_k + 0.2*mean_quality_of_top_k + 0.1*source_diversity.
func scoreRetrieval(chunks []RankedChunk) (float64, map[string]float64) {
	metrics := map[string]float64{
		"top_similarity":   0,
		"mean_similarity":  0,
		"mean_quality":     0,
		"source_diversity": 0,
	}
	if len(chunks) == 0 {
		return 0, metrics
	}

	topSimilarity := chunks[0].FusedScore
	var sumSimilarity, sumQuality float64
	sources := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		sumSimilarity += c.FusedScore
		sumQuality += c.Chunk.QualityScore
		sources[c.Chunk.SourceID] = struct{}{}
	}
	meanSimilarity := sumSimilarity / float64(len(chunks))
	meanQuality := sumQuality / float64(len(chunks))
	sourceDiversity := math.Min(float64(len(sources))/3.0, 1.0)

	metrics["top_similarity"] = topSimilarity
	metrics["mean_similarity"] = meanSimilarity
	metrics["mean_quality"] = meanQuality
	metrics["source_diversity"] = sourceDiversity

	score := 0.4*topSimilarity + 0.3*meanSimilarity + 0.2*meanQuality + 0.1*sourceDiversity
	return clamp01(score), metrics
}

// scoreContent implements §4.8's content sub-score:
// 0.3*citation_presence + 0.3*citation_accuracy + 0.2*response_completeness + 0.2*coherence.
func scoreContent(citations []model.Citation, topK int, responseText string) (float64, map[string]float64) {
	valid := 0
	for _, c := range citations {
		if c.Valid {
			valid++
		}
	}

	expected := int(math.Ceil(float64(topK) / 2))
	if expected < 1 {
		expected = 1
	}
	citationPresence := math.Min(float64(valid)/float64(expected), 1.0)

	citationAccuracy := 1.0
	if len(citations) > 0 {
		citationAccuracy = float64(valid) / float64(len(citations))
	}

	wordCount := len(strings.Fields(responseText))
	completeness := math.Min(float64(wordCount)/40.0, 1.0)

	coherence := scoreCoherence(responseText)

	metrics := map[string]float64{
		"citation_presence":     citationPresence,
		"citation_accuracy":     citationAccuracy,
		"response_completeness": completeness,
		"coherence":             coherence,
	}

	score := 0.3*citationPresence + 0.3*citationAccuracy + 0.2*completeness + 0.2*coherence
	return clamp01(score), metrics
}

// scoreCoherence implements the glossary's bounded coherence estimate:
// sentence-count > 1 yields a bonus, discourse markers yield a bonus,
// and any single token occupying more than 25% of all tokens yields a
// penalty.
func scoreCoherence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	score := 0.5

	if len(splitNonEmptySentences(text)) > 1 {
		score += 0.2
	}

	lower := strings.ToLower(text)
	for _, marker := range discourseMarkers {
		if strings.Contains(lower, marker) {
			score += 0.2
			break
		}
	}

	words := strings.Fields(lower)
	if len(words) > 0 {
		freq := make(map[string]int, len(words))
		for _, w := range words {
			freq[stripPunctuation(w)]++
		}
		maxFreq := 0
		for _, n := range freq {
			if n > maxFreq {
				maxFreq = n
			}
		}
		if float64(maxFreq)/float64(len(words)) > 0.25 {
			score -= 0.3
		}
	}

	return clamp01(score)
}

// scoreContext implements §4.8's context sub-score:
// 0.4*query_clarity + 0.3*domain_relevance + 0.2*query_complexity_penalty + 0.1*conversation_context.
func scoreContext(a model.QueryAnalysis, hasPriorTurns bool) (float64, map[string]float64) {
	clarity := 0.0
	if a.IsQuestion {
		clarity += 0.3
	}
	if a.Intent != "" && a.Intent != model.IntentGeneral {
		clarity += 0.2
	}
	if len(a.Entities) > 0 {
		clarity += 0.3
	}
	if a.WordCount >= 4 && a.WordCount <= 20 {
		clarity += 0.2
	}
	clarity = clamp01(clarity)

	domainRelevance := math.Min(float64(len(a.Entities)+len(a.Keywords))/5.0, 1.0)

	complexityPenalty := 1.0
	switch a.Complexity {
	case model.ComplexityModerate:
		complexityPenalty = 0.8
	case model.ComplexityComplex:
		complexityPenalty = 0.5
	}

	conversationContext := 0.5
	if hasPriorTurns {
		conversationContext = 0.8
	}

	metrics := map[string]float64{
		"query_clarity":     clarity,
		"domain_relevance":  domainRelevance,
		"complexity_penalty": complexityPenalty,
		"conversation_context": conversationContext,
	}

	score := 0.4*clarity + 0.3*domainRelevance + 0.2*complexityPenalty + 0.1*conversationContext
	return clamp01(score), metrics
}

// scoreGeneration implements §4.8's generation sub-score:
// 0.4*model_confidence + 0.3*finish_reason_score + 0.2*length_score + 0.1*token_utilization.
func scoreGeneration(modelUsed, finishReason, responseText string, tokensUsed, maxTokens int) (float64, map[string]float64) {
	mc, ok := modelConfidence[modelUsed]
	if !ok {
		mc = defaultModelConfidence
	}

	var finishScore float64
	switch finishReason {
	case "stop":
		finishScore = 1.0
	case "length":
		finishScore = 0.7
	case "content_filter":
		finishScore = 0.3
	case "error":
		finishScore = 0.0
	default:
		finishScore = 0.5
	}

	wordCount := len(strings.Fields(responseText))
	lengthScore := 0.7
	if wordCount >= 30 && wordCount <= 400 {
		lengthScore = 1.0
	}

	tokenUtilization := 0.0
	if maxTokens > 0 {
		tokenUtilization = math.Min(float64(tokensUsed)/float64(maxTokens), 1.0)
	}

	metrics := map[string]float64{
		"model_confidence":  mc,
		"finish_reason":     finishScore,
		"length_score":      lengthScore,
		"token_utilization": tokenUtilization,
	}

	score := 0.4*mc + 0.3*finishScore + 0.2*lengthScore + 0.1*tokenUtilization
	return clamp01(score), metrics
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// splitNonEmptySentences splits text into sentences on ". ", "! ", "? ",
// skipping empty pieces.
func splitNonEmptySentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// stripPunctuation removes leading/trailing punctuation from a word.
func stripPunctuation(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return r == '.' || r == ',' || r == '!' || r == '?' || r == ';' || r == ':' || r == '"' || r == '\'' || r == '(' || r == ')' || r == '[' || r == ']'
	})
}
