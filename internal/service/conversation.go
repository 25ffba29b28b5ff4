package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/fundvault/ragcore/internal/model"
)

// ConversationStore defines persistence operations for the append-only
// conversation turn log (§3 Conversation).
type ConversationStore interface {
	GetOrCreateSession(ctx context.Context, sessionID string) (string, error)
	AppendTurn(ctx context.Context, turn *model.Turn) error
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.Turn, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// ConversationService manages per-session conversation state. Writes for the
// same session serialize under a per-session lock so concurrent requests
// never interleave turns mid-record (§5); different sessions proceed fully
// in parallel since each gets its own lock.
type ConversationService struct {
	store     ConversationStore
	retention int
	locks     sync.Map // session id -> *sync.Mutex
}

// NewConversationService creates a ConversationService. retention bounds how
// many of a session's most recent turns RecentTurns will ever return,
// regardless of the requested limit; retention <= 0 falls back to
// model.DefaultConversationRetention.
func NewConversationService(store ConversationStore, retention int) *ConversationService {
	if retention <= 0 {
		retention = model.DefaultConversationRetention
	}
	return &ConversationService{store: store, retention: retention}
}

func (s *ConversationService) lockFor(sessionID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// GetOrCreate returns the conversation id for sessionID, creating a new
// conversation row if none exists yet.
func (s *ConversationService) GetOrCreate(ctx context.Context, sessionID string) (string, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	id, err := s.store.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("service.GetOrCreate: %w", err)
	}
	return id, nil
}

// RecentTurns returns the session's most recent turns, oldest first, for
// prompt assembly (§4.5). limit is clamped to the configured retention
// window.
func (s *ConversationService) RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.Turn, error) {
	if limit <= 0 || limit > s.retention {
		limit = s.retention
	}
	turns, err := s.store.RecentTurns(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("service.RecentTurns: %w", err)
	}
	return turns, nil
}

// AppendTurn records one turn under the session's lock. Turns for the same
// session are never persisted concurrently; the later-committing write
// under lock contention is preserved per §5's ordering guarantee.
func (s *ConversationService) AppendTurn(ctx context.Context, turn *model.Turn) error {
	mu := s.lockFor(turn.SessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.AppendTurn(ctx, turn); err != nil {
		return fmt.Errorf("service.AppendTurn: %w", err)
	}
	return nil
}

// DeleteSession removes a conversation's full turn history and releases its
// lock entry.
func (s *ConversationService) DeleteSession(ctx context.Context, sessionID string) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("service.DeleteSession: %w", err)
	}
	s.locks.Delete(sessionID)
	return nil
}
