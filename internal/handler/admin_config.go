package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fundvault/ragcore/internal/config"
)

// GetConfig returns the GET /admin/rag/config handler (§6). It must be
// wrapped with an internal-auth gate (system:configure) by the router.
func GetConfig(store *config.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Load())
	}
}

// PutConfig returns the PUT /admin/rag/config handler (§6). It replaces the
// whole live snapshot atomically; a request missing any weight or threshold
// keeps that field's zero value since this is a full replace, not a patch.
func PutConfig(store *config.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var next config.Snapshot
		if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "request body is not valid JSON")
			return
		}
		if err := validateSnapshot(next); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}

		store.Swap(next)
		writeJSON(w, http.StatusOK, store.Load())
	}
}

func validateSnapshot(s config.Snapshot) error {
	if s.VectorDimension <= 0 {
		return errInvalidSnapshot("vector.dimension must be positive")
	}
	if s.RetrievalMaxChunks <= 0 {
		return errInvalidSnapshot("retrieval.maxChunks must be positive")
	}
	if s.RetrievalWeightVector < 0 || s.RetrievalWeightLexical < 0 || s.RetrievalWeightVector+s.RetrievalWeightLexical <= 0 {
		return errInvalidSnapshot("retrieval.weights must be non-negative and sum to more than zero")
	}
	if s.ResponseTemperature < 0 || s.ResponseTemperature > 2 {
		return errInvalidSnapshot("response.temperature must be between 0 and 2")
	}
	return nil
}

type invalidSnapshotError string

func (e invalidSnapshotError) Error() string { return string(e) }

func errInvalidSnapshot(msg string) error { return invalidSnapshotError(msg) }
