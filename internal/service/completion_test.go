package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeGenAIClient struct {
	mu        sync.Mutex
	text      string
	model     string
	err       error
	calls     int
	startedCh chan struct{} // closed once GenerateContent is entered, if set
	blockCh   chan struct{} // if set, GenerateContent blocks until this is closed
}

func (f *fakeGenAIClient) GenerateContent(ctx context.Context, systemPrompt, userPrompt string) (string, string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.startedCh != nil {
		close(f.startedCh)
	}
	if f.blockCh != nil {
		<-f.blockCh
	}
	if f.err != nil {
		return "", "", f.err
	}
	return f.text, f.model, nil
}

func TestCompleteReturnsModelAndTokens(t *testing.T) {
	client := &fakeGenAIClient{text: "the fund charges a 2% management fee", model: "gemini-3-pro-preview"}
	svc := NewCompletionService(client, 4, time.Second)

	result, err := svc.Complete(context.Background(), "system", "what is the fee", CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if result.Model != "gemini-3-pro-preview" {
		t.Errorf("Model = %q, want gemini-3-pro-preview", result.Model)
	}
	if result.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", result.FinishReason)
	}
	if result.TokensUsed <= 0 {
		t.Errorf("TokensUsed = %d, want > 0", result.TokensUsed)
	}
}

func TestCompletePropagatesTerminalError(t *testing.T) {
	client := &fakeGenAIClient{err: ErrContentFiltered}
	svc := NewCompletionService(client, 4, time.Second)

	_, err := svc.Complete(context.Background(), "system", "query", CompletionOptions{})
	if !errors.Is(err, ErrContentFiltered) {
		t.Errorf("error = %v, want wrapping ErrContentFiltered", err)
	}
}

func TestCompleteRejectsWhenOverloaded(t *testing.T) {
	blockCh := make(chan struct{})
	startedCh := make(chan struct{})
	client := &fakeGenAIClient{text: "answer", model: "gemini-3-pro-preview", blockCh: blockCh, startedCh: startedCh}
	svc := NewCompletionService(client, 1, 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		svc.Complete(context.Background(), "s", "u", CompletionOptions{})
		close(done)
	}()

	<-startedCh // first call now holds the single in-flight slot

	// Second call waits out the queueing deadline before the slot frees up.
	_, err := svc.Complete(context.Background(), "s", "u", CompletionOptions{})
	if !errors.Is(err, ErrOverloaded) {
		t.Errorf("error = %v, want ErrOverloaded", err)
	}

	close(blockCh)
	<-done
}

func TestCompleteWaitsForFreedSlotWithinQueueDeadline(t *testing.T) {
	blockCh := make(chan struct{})
	startedCh := make(chan struct{})
	client := &fakeGenAIClient{text: "answer", model: "gemini-3-pro-preview", blockCh: blockCh, startedCh: startedCh}
	svc := NewCompletionService(client, 1, time.Second)

	go func() {
		svc.Complete(context.Background(), "s", "u", CompletionOptions{})
	}()
	<-startedCh // first call now holds the single in-flight slot

	// Release the first call's slot shortly after the second call starts
	// waiting, well within the one-second queue deadline.
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(blockCh)
	}()

	result, err := svc.Complete(context.Background(), "s", "u", CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete() error = %v, want the queued call to succeed once the slot frees up", err)
	}
	if result.Text != "answer" {
		t.Errorf("Text = %q, want %q", result.Text, "answer")
	}
}

func TestCompleteAbortsOnContextCancelWhileQueued(t *testing.T) {
	blockCh := make(chan struct{})
	startedCh := make(chan struct{})
	client := &fakeGenAIClient{text: "answer", model: "gemini-3-pro-preview", blockCh: blockCh, startedCh: startedCh}
	svc := NewCompletionService(client, 1, time.Minute)

	go func() {
		svc.Complete(context.Background(), "s", "u", CompletionOptions{})
	}()
	<-startedCh // first call now holds the single in-flight slot
	defer close(blockCh)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := svc.Complete(ctx, "s", "u", CompletionOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
