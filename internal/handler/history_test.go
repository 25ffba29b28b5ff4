package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fundvault/ragcore/internal/model"
)

type fakeConversationManager struct {
	turns   []model.Turn
	err     error
	deleted []string
}

func (f *fakeConversationManager) RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.turns, nil
}

func (f *fakeConversationManager) DeleteSession(ctx context.Context, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func withSessionIDParam(req *http.Request, sessionID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionId", sessionID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGetHistoryReturnsTurnsInOrder(t *testing.T) {
	mgr := &fakeConversationManager{turns: []model.Turn{
		{SessionID: "s3", Role: model.RoleUser, Text: "hi"},
		{SessionID: "s3", Role: model.RoleAssistant, Text: "hello"},
	}}
	req := withSessionIDParam(httptest.NewRequest(http.MethodGet, "/chat/history/s3", nil), "s3")
	w := httptest.NewRecorder()

	GetHistory(mgr)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got historyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", got.MessageCount)
	}
	if got.Conversation[0].Role != model.RoleUser || got.Conversation[1].Role != model.RoleAssistant {
		t.Errorf("Conversation = %+v, want [user, assistant]", got.Conversation)
	}
}

func TestGetHistoryIncludesMetadataWhenRequested(t *testing.T) {
	mgr := &fakeConversationManager{turns: []model.Turn{
		{SessionID: "s3", Role: model.RoleUser, Text: "hi"},
		{SessionID: "s3", Role: model.RoleAssistant, Text: "hello"},
	}}
	req := withSessionIDParam(httptest.NewRequest(http.MethodGet, "/chat/history/s3?includeMetadata=true", nil), "s3")
	w := httptest.NewRecorder()

	GetHistory(mgr)(w, req)

	var got historyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Metadata == nil {
		t.Fatal("Metadata = nil, want populated when includeMetadata=true")
	}
}

func TestGetHistoryRejectsMissingSessionID(t *testing.T) {
	mgr := &fakeConversationManager{}
	req := withSessionIDParam(httptest.NewRequest(http.MethodGet, "/chat/history/", nil), "")
	w := httptest.NewRecorder()

	GetHistory(mgr)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDeleteHistoryAcknowledges(t *testing.T) {
	mgr := &fakeConversationManager{}
	req := withSessionIDParam(httptest.NewRequest(http.MethodDelete, "/chat/history/s3", nil), "s3")
	w := httptest.NewRecorder()

	DeleteHistory(mgr)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(mgr.deleted) != 1 || mgr.deleted[0] != "s3" {
		t.Errorf("deleted = %v, want [s3]", mgr.deleted)
	}
}
