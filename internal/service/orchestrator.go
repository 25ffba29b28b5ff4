package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fundvault/ragcore/internal/analyzer"
	"github.com/fundvault/ragcore/internal/config"
	"github.com/fundvault/ragcore/internal/gazetteer"
	"github.com/fundvault/ragcore/internal/middleware"
	"github.com/fundvault/ragcore/internal/model"
)

// AnswerOptions carries the per-request overrides recognized on
// POST /chat/message (§6). A nil pointer means "use the config snapshot's
// default"; Model is accepted for forward compatibility but the current
// Completion Client resolves its own fallback list rather than honoring a
// per-call override.
type AnswerOptions struct {
	UseKnowledgeBase *bool
	MaxResults       *int
	MaxTokens        *int
	Temperature      *float64
	Model            *string
}

// RetrievedChunkSummary is the trimmed view of a ranked chunk returned to
// the caller (§4.9 response shape).
type RetrievedChunkSummary struct {
	ChunkID string  `json:"chunkId"`
	Score   float64 `json:"score"`
	Title   string  `json:"title"`
}

// SourceSummary is a deduplicated (title, page) pair from the retrieved
// set, sorted by the best relevance among its contributing chunks.
type SourceSummary struct {
	Title string `json:"title"`
	Page  *int   `json:"page,omitempty"`
}

// AnswerMetadata is the metadata sub-object of the response record.
type AnswerMetadata struct {
	RetrievalStrategy Strategy `json:"retrievalStrategy,omitempty"`
	Model             string   `json:"model,omitempty"`
	TokensUsed        int      `json:"tokensUsed"`
	FallbackApplied   bool     `json:"fallbackApplied,omitempty"`
}

// AnswerResponse is the full response record for a chat turn (§4.9).
type AnswerResponse struct {
	Message           string                  `json:"message"`
	SessionID         string                  `json:"sessionId"`
	UsedKnowledgeBase bool                    `json:"usedKnowledgeBase"`
	Confidence        float64                 `json:"confidence"`
	ConfidenceLevel   model.ConfidenceLevel   `json:"confidenceLevel"`
	Citations         []model.Citation        `json:"citations"`
	Sources           []SourceSummary         `json:"sources"`
	RetrievedChunks   []RetrievedChunkSummary `json:"retrievedChunks"`
	QualityIndicators map[string]float64      `json:"qualityIndicators"`
	ProcessingTimeMS  int64                   `json:"processingTimeMs"`
	Metadata          AnswerMetadata          `json:"metadata"`
}

// Orchestrator wires the Query Analyzer, Retriever, Prompt Assembler,
// Completion Client, Citation Extractor, and Confidence Manager into the
// ten-step request pipeline of §4.9.
type Orchestrator struct {
	cfg           *config.Store
	gazetteer     *gazetteer.Gazetteer
	conversations *ConversationService
	retriever     Retriever
	assembler     *PromptAssembler
	completion    *CompletionService
	confidence    *ConfidenceManager
	metrics       *middleware.Metrics
}

// NewOrchestrator wires the pipeline's components together. metrics may be
// nil, in which case fallback triggers are simply not counted.
func NewOrchestrator(
	cfg *config.Store,
	gz *gazetteer.Gazetteer,
	conversations *ConversationService,
	retriever Retriever,
	assembler *PromptAssembler,
	completion *CompletionService,
	confidence *ConfidenceManager,
	metrics *middleware.Metrics,
) *Orchestrator {
	return &Orchestrator{
		cfg:           cfg,
		gazetteer:     gz,
		conversations: conversations,
		retriever:     retriever,
		assembler:     assembler,
		completion:    completion,
		confidence:    confidence,
		metrics:       metrics,
	}
}

// Answer runs the full pipeline for one chat turn.
func (o *Orchestrator) Answer(ctx context.Context, query string, sessionID string, opts AnswerOptions) (*AnswerResponse, error) {
	start := time.Now()
	snap := o.cfg.Load()

	// Step 1: validate, load/create conversation state.
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("orchestrator.Answer: %w", ErrInvalidQuery)
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	sessionID, err := o.conversations.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator.Answer: %w", err)
	}
	priorTurns, err := o.conversations.RecentTurns(ctx, sessionID, model.DefaultConversationRetention)
	if err != nil {
		return nil, fmt.Errorf("orchestrator.Answer: %w", err)
	}

	// Step 2: analyze.
	analysis := analyzer.Analyze(query, o.gazetteer)

	useKB := true
	if opts.UseKnowledgeBase != nil {
		useKB = *opts.UseKnowledgeBase
	}

	kFinal := snap.RetrievalMaxChunks
	if opts.MaxResults != nil && *opts.MaxResults > 0 {
		kFinal = *opts.MaxResults
	}

	var retrieved []RankedChunk
	var presetIssue model.Issue
	var retrievalStrategy Strategy

	if useKB {
		retrievalStrategy = StrategyVector
		if snap.RetrievalEnableHybrid {
			retrievalStrategy = StrategyHybrid
		}
		o.retriever.Configure(snap.RetrievalWeightVector, snap.RetrievalWeightLexical, model.DefaultMinQuality, snap.RetrievalDiversityThreshold)

		// Step 4: retrieve.
		result, err := o.retriever.Retrieve(ctx, query, retrievalStrategy, RetrievalFilter{}, kFinal)
		if err != nil {
			return nil, fmt.Errorf("orchestrator.Answer: %w", err)
		}
		retrieved = result.Chunks
		if len(retrieved) == 0 {
			presetIssue = model.IssueNoRelevantSources
		}
	}

	var completionText, finishReason, modelUsed string
	var tokensUsed int
	var citationResult CitationExtraction

	// Steps 5-7 only run when retrieval didn't already force the
	// no-relevant-sources fallback path.
	if presetIssue != model.IssueNoRelevantSources {
		// Step 5: assemble prompt.
		maxTokens := snap.ResponseMaxTokens
		if opts.MaxTokens != nil && *opts.MaxTokens > 0 {
			maxTokens = *opts.MaxTokens
		}
		temperature := snap.ResponseTemperature
		if opts.Temperature != nil {
			temperature = *opts.Temperature
		}
		prompt := o.assembler.Assemble(query, retrieved, priorTurns)

		// Step 6: complete.
		result, err := o.completion.Complete(ctx, prompt.SystemPrompt, prompt.UserPrompt, CompletionOptions{
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			if errors.Is(err, ErrOverloaded) {
				return nil, fmt.Errorf("orchestrator.Answer: %w", ErrOverloaded)
			}
			presetIssue = model.IssueGenerationError
		} else {
			completionText = result.Text
			finishReason = result.FinishReason
			modelUsed = result.Model
			tokensUsed = result.TokensUsed

			// Step 7: extract and validate citations.
			if snap.ResponseEnableCitationValidation {
				citationResult = ExtractCitations(completionText, retrieved)
			}
		}
	}

	// Step 8: score confidence.
	assessment := o.confidence.Assess(ConfidenceInputs{
		RetrievedChunks: retrieved,
		Analysis:        analysis,
		HasPriorTurns:   len(priorTurns) > 0,
		ResponseText:    completionText,
		Citations:       citationResult.Valid,
		TopK:            kFinal,
		FinishReason:    finishReason,
		ModelUsed:       modelUsed,
		TokensUsed:      tokensUsed,
		MaxTokens:       snap.ResponseMaxTokens,
		PresetIssue:     presetIssue,
	})

	message := completionText
	fallbackApplied := false
	confidenceScore := assessment.Overall

	if assessment.Overall < o.confidence.MinimumThreshold() || presetIssue != "" {
		if fb, ok := SelectFallback(assessment.Issues, query, assessment.Overall); ok {
			message = fb.Message
			confidenceScore = fb.Confidence
			fallbackApplied = true
			if o.metrics != nil {
				o.metrics.IncrementSilenceTrigger()
			}
		}
	}
	if message == "" {
		message = completionText
	}

	// Step 9: persist, unless the request was cancelled first.
	if ctx.Err() == nil {
		userTurn := &model.Turn{SessionID: sessionID, Role: model.RoleUser, Text: query}
		if err := o.conversations.AppendTurn(ctx, userTurn); err != nil {
			return nil, fmt.Errorf("orchestrator.Answer: persist user turn: %w", err)
		}
		assistantTurn := &model.Turn{SessionID: sessionID, Role: model.RoleAssistant, Text: message}
		if err := o.conversations.AppendTurn(ctx, assistantTurn); err != nil {
			return nil, fmt.Errorf("orchestrator.Answer: persist assistant turn: %w", err)
		}
	}

	// Step 10: build the response record.
	return &AnswerResponse{
		Message:           message,
		SessionID:         sessionID,
		UsedKnowledgeBase: useKB,
		Confidence:        confidenceScore,
		ConfidenceLevel:   assessment.Level,
		Citations:         append(citationResult.Valid, citationResult.Invalid...),
		Sources:           dedupSources(retrieved),
		RetrievedChunks:   summarizeChunks(retrieved),
		QualityIndicators: assessment.Metrics,
		ProcessingTimeMS:  time.Since(start).Milliseconds(),
		Metadata: AnswerMetadata{
			RetrievalStrategy: retrievalStrategy,
			Model:             modelUsed,
			TokensUsed:        tokensUsed,
			FallbackApplied:   fallbackApplied,
		},
	}, nil
}

// dedupSources collapses the ranked chunks to one entry per (title, page),
// in descending relevance order, keeping the first (highest-ranked)
// occurrence of each pair.
func dedupSources(chunks []RankedChunk) []SourceSummary {
	seen := make(map[string]struct{}, len(chunks))
	var sources []SourceSummary
	for _, c := range chunks {
		key := c.SourceTitle
		if c.Chunk.PageNumber != nil {
			key = fmt.Sprintf("%s|%d", c.SourceTitle, *c.Chunk.PageNumber)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sources = append(sources, SourceSummary{Title: c.SourceTitle, Page: c.Chunk.PageNumber})
	}
	return sources
}

// summarizeChunks trims each ranked chunk down to the id/score/title view
// returned to the caller.
func summarizeChunks(chunks []RankedChunk) []RetrievedChunkSummary {
	out := make([]RetrievedChunkSummary, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, RetrievedChunkSummary{ChunkID: c.Chunk.ID, Score: c.FusedScore, Title: c.SourceTitle})
	}
	return out
}
