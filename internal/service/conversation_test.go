package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fundvault/ragcore/internal/model"
)

type fakeConversationStore struct {
	mu    sync.Mutex
	turns map[string][]model.Turn
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{turns: make(map[string][]model.Turn)}
}

func (f *fakeConversationStore) GetOrCreateSession(ctx context.Context, sessionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.turns[sessionID]; !ok {
		f.turns[sessionID] = nil
	}
	return sessionID, nil
}

func (f *fakeConversationStore) AppendTurn(ctx context.Context, turn *model.Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns[turn.SessionID] = append(f.turns[turn.SessionID], *turn)
	return nil
}

func (f *fakeConversationStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.turns[sessionID]
	if len(all) <= limit {
		return append([]model.Turn{}, all...), nil
	}
	return append([]model.Turn{}, all[len(all)-limit:]...), nil
}

func (f *fakeConversationStore) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.turns, sessionID)
	return nil
}

func TestAppendTurnThenRecentTurns(t *testing.T) {
	store := newFakeConversationStore()
	svc := NewConversationService(store, 20)

	if _, err := svc.GetOrCreate(context.Background(), "sess-1"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := svc.AppendTurn(context.Background(), &model.Turn{SessionID: "sess-1", Role: model.RoleUser, Text: "hello"}); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	turns, err := svc.RecentTurns(context.Background(), "sess-1", 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 1 || turns[0].Text != "hello" {
		t.Errorf("turns = %+v, want one turn with text hello", turns)
	}
}

func TestRecentTurnsClampsToRetention(t *testing.T) {
	store := newFakeConversationStore()
	svc := NewConversationService(store, 3)

	for i := 0; i < 5; i++ {
		svc.AppendTurn(context.Background(), &model.Turn{SessionID: "sess-2", Role: model.RoleUser, Text: fmt.Sprintf("turn-%d", i)})
	}

	turns, err := svc.RecentTurns(context.Background(), "sess-2", 100)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 3 {
		t.Errorf("len(turns) = %d, want 3 (clamped to retention)", len(turns))
	}
}

func TestAppendTurnSerializesPerSession(t *testing.T) {
	store := newFakeConversationStore()
	svc := NewConversationService(store, 20)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.AppendTurn(context.Background(), &model.Turn{SessionID: "sess-3", Role: model.RoleUser, Text: fmt.Sprintf("turn-%d", i)})
		}(i)
	}
	wg.Wait()

	turns, err := svc.RecentTurns(context.Background(), "sess-3", 20)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 20 {
		t.Errorf("len(turns) = %d, want 20 (no turn lost to a race)", len(turns))
	}
}

func TestDeleteSessionClearsTurns(t *testing.T) {
	store := newFakeConversationStore()
	svc := NewConversationService(store, 20)

	svc.AppendTurn(context.Background(), &model.Turn{SessionID: "sess-4", Role: model.RoleUser, Text: "hi"})
	if err := svc.DeleteSession(context.Background(), "sess-4"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	turns, err := svc.RecentTurns(context.Background(), "sess-4", 20)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("len(turns) = %d, want 0 after delete", len(turns))
	}
}
