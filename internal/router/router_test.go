package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fundvault/ragcore/internal/config"
	"github.com/fundvault/ragcore/internal/model"
	"github.com/fundvault/ragcore/internal/repository"
	"github.com/fundvault/ragcore/internal/service"
)

type fakeOrchestrator struct{}

func (fakeOrchestrator) Answer(ctx context.Context, query, sessionID string, opts service.AnswerOptions) (*service.AnswerResponse, error) {
	if query == "" {
		return nil, service.ErrInvalidQuery
	}
	return &service.AnswerResponse{Message: "ok", SessionID: sessionID}, nil
}

type fakeConversations struct{}

func (fakeConversations) RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.Turn, error) {
	return nil, nil
}
func (fakeConversations) DeleteSession(ctx context.Context, sessionID string) error { return nil }

type fakeFeedback struct{}

func (fakeFeedback) Record(ctx context.Context, f *repository.Feedback) error {
	f.ID = "fb-1"
	return nil
}

func testDeps() *Dependencies {
	return &Dependencies{
		Version:             "test",
		Orchestrator:        fakeOrchestrator{},
		Conversations:       fakeConversations{},
		Feedback:            fakeFeedback{},
		ConfigStore:         config.NewStore(config.Snapshot{VectorDimension: 768}),
		InternalAuthSecret:  "secret",
	}
}

func TestHealthzIsPublic(t *testing.T) {
	r := New(testDeps())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestChatMessageRouteReachesOrchestrator(t *testing.T) {
	r := New(testDeps())
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"message":"hello","sessionId":"s1"}`))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAdminConfigRequiresInternalAuth(t *testing.T) {
	r := New(testDeps())
	req := httptest.NewRequest(http.MethodGet, "/admin/rag/config", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without X-Internal-Auth", w.Code)
	}
}

func TestAdminConfigSucceedsWithInternalAuth(t *testing.T) {
	r := New(testDeps())
	req := httptest.NewRequest(http.MethodGet, "/admin/rag/config", nil)
	req.Header.Set("X-Internal-Auth", "secret")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	r := New(testDeps())
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
