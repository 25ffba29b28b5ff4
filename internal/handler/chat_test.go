package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fundvault/ragcore/internal/service"
)

type fakeOrchestrator struct {
	resp *service.AnswerResponse
	err  error
}

func (f *fakeOrchestrator) Answer(ctx context.Context, query, sessionID string, opts service.AnswerOptions) (*service.AnswerResponse, error) {
	return f.resp, f.err
}

func TestChatMessageReturns200OnSuccess(t *testing.T) {
	orch := &fakeOrchestrator{resp: &service.AnswerResponse{
		Message:    "To create a fund, file the formation documents.",
		SessionID:  "s1",
		Confidence: 0.8,
	}}
	body, _ := json.Marshal(chatMessageRequest{Message: "How do I create a fund?", SessionID: "s1"})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	w := httptest.NewRecorder()

	ChatMessage(orch)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got service.AnswerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", got.SessionID)
	}
}

func TestChatMessageRejectsInvalidJSON(t *testing.T) {
	orch := &fakeOrchestrator{}
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	ChatMessage(orch)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestChatMessageRejectsOutOfRangeMaxResults(t *testing.T) {
	orch := &fakeOrchestrator{}
	bad := 500
	body, _ := json.Marshal(chatMessageRequest{Message: "hi", Options: &chatMessageOpts{MaxResults: &bad}})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	w := httptest.NewRecorder()

	ChatMessage(orch)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestChatMessageMapsInvalidQueryTo400(t *testing.T) {
	orch := &fakeOrchestrator{err: service.ErrInvalidQuery}
	body, _ := json.Marshal(chatMessageRequest{Message: ""})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	w := httptest.NewRecorder()

	ChatMessage(orch)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestChatMessageMapsOverloadedTo429(t *testing.T) {
	orch := &fakeOrchestrator{err: service.ErrOverloaded}
	body, _ := json.Marshal(chatMessageRequest{Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	w := httptest.NewRecorder()

	ChatMessage(orch)(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func TestChatMessageMapsNoIndexTo503(t *testing.T) {
	orch := &fakeOrchestrator{err: service.ErrNoIndex}
	body, _ := json.Marshal(chatMessageRequest{Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	w := httptest.NewRecorder()

	ChatMessage(orch)(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestChatMessageMapsUnknownErrorTo500(t *testing.T) {
	orch := &fakeOrchestrator{err: errors.New("boom")}
	body, _ := json.Marshal(chatMessageRequest{Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	w := httptest.NewRecorder()

	ChatMessage(orch)(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
