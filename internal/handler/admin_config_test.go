package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fundvault/ragcore/internal/config"
)

func testAdminSnapshot() config.Snapshot {
	return config.Snapshot{
		VectorDimension:             768,
		RetrievalMaxChunks:          5,
		RetrievalDiversityThreshold: 0.92,
		RetrievalWeightVector:       0.7,
		RetrievalWeightLexical:      0.3,
		ResponseMaxTokens:           2048,
		ResponseTemperature:         0.2,
		ResponseConfidenceThreshold: 0.6,
	}
}

func TestGetConfigReturnsSnapshot(t *testing.T) {
	store := config.NewStore(testAdminSnapshot())
	req := httptest.NewRequest(http.MethodGet, "/admin/rag/config", nil)
	w := httptest.NewRecorder()

	GetConfig(store)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got config.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.RetrievalMaxChunks != 5 {
		t.Errorf("RetrievalMaxChunks = %d, want 5", got.RetrievalMaxChunks)
	}
}

func TestPutConfigSwapsSnapshot(t *testing.T) {
	store := config.NewStore(testAdminSnapshot())
	next := testAdminSnapshot()
	next.RetrievalMaxChunks = 10
	body, _ := json.Marshal(next)
	req := httptest.NewRequest(http.MethodPut, "/admin/rag/config", bytes.NewReader(body))
	w := httptest.NewRecorder()

	PutConfig(store)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.Load().RetrievalMaxChunks != 10 {
		t.Errorf("RetrievalMaxChunks = %d, want 10 after swap", store.Load().RetrievalMaxChunks)
	}
}

func TestPutConfigRejectsInvalidWeights(t *testing.T) {
	store := config.NewStore(testAdminSnapshot())
	next := testAdminSnapshot()
	next.RetrievalWeightVector = 0
	next.RetrievalWeightLexical = 0
	body, _ := json.Marshal(next)
	req := httptest.NewRequest(http.MethodPut, "/admin/rag/config", bytes.NewReader(body))
	w := httptest.NewRecorder()

	PutConfig(store)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if store.Load().RetrievalMaxChunks != 5 {
		t.Error("snapshot was swapped despite validation failure")
	}
}

func TestPutConfigRejectsMalformedJSON(t *testing.T) {
	store := config.NewStore(testAdminSnapshot())
	req := httptest.NewRequest(http.MethodPut, "/admin/rag/config", bytes.NewReader([]byte("{bad")))
	w := httptest.NewRecorder()

	PutConfig(store)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
