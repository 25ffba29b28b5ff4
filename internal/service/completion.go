package service

import (
	"context"
	"fmt"
	"time"
)

// GenAIClient abstracts the Vertex AI Gemini generative model for
// testability. The returned model name is whichever entry in the adapter's
// fallback list actually produced the response (§4.6).
type GenAIClient interface {
	GenerateContent(ctx context.Context, systemPrompt string, userPrompt string) (text string, modelUsed string, err error)
}

// CompletionOptions configures a single completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// CompletionResult is the output of a single completion call, matching the
// Completion Client's contract of {text, finish_reason, model, tokens_used}.
type CompletionResult struct {
	Text         string
	FinishReason string
	Model        string
	TokensUsed   int
}

// CompletionService wraps a GenAIClient with bounded in-flight admission
// control. New requests wait up to queueDeadline for a free slot once
// maxInFlight concurrent completions are outstanding (§5), surfacing
// ErrOverloaded once that deadline expires, or the context's error if the
// caller's context ends first.
type CompletionService struct {
	client        GenAIClient
	sem           chan struct{}
	queueDeadline time.Duration
}

// NewCompletionService creates a CompletionService. maxInFlight <= 0 disables
// admission control (unbounded concurrency); queueDeadline <= 0 falls back
// to an immediate reject when the semaphore is saturated.
func NewCompletionService(client GenAIClient, maxInFlight int, queueDeadline time.Duration) *CompletionService {
	var sem chan struct{}
	if maxInFlight > 0 {
		sem = make(chan struct{}, maxInFlight)
	}
	return &CompletionService{client: client, sem: sem, queueDeadline: queueDeadline}
}

// Complete generates a response for the given prompt pair. Waits up to
// queueDeadline for an in-flight slot before surfacing ErrOverloaded, and
// propagates the GenAIClient's typed terminal errors (ErrQuotaExceeded,
// ErrUnauthorized, ErrContentFiltered, ErrModelUnavailable) wrapped with %w
// so callers can match them with errors.Is.
func (s *CompletionService) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (*CompletionResult, error) {
	if s.sem != nil {
		if s.queueDeadline <= 0 {
			select {
			case s.sem <- struct{}{}:
				defer func() { <-s.sem }()
			default:
				return nil, ErrOverloaded
			}
		} else {
			timer := time.NewTimer(s.queueDeadline)
			defer timer.Stop()
			select {
			case s.sem <- struct{}{}:
				defer func() { <-s.sem }()
			case <-timer.C:
				return nil, ErrOverloaded
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	text, modelUsed, err := s.client.GenerateContent(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("service.Complete: %w", err)
	}

	tokensUsed := estimateTokens(systemPrompt) + estimateTokens(userPrompt) + estimateTokens(text)

	return &CompletionResult{
		Text:         text,
		FinishReason: "stop",
		Model:        modelUsed,
		TokensUsed:   tokensUsed,
	}, nil
}

// InFlight returns the number of completions currently outstanding.
func (s *CompletionService) InFlight() int {
	if s.sem == nil {
		return 0
	}
	return len(s.sem)
}
