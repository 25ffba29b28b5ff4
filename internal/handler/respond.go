package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fundvault/ragcore/internal/service"
)

// errorEnvelope is the stable JSON shape for every non-2xx response (§7):
// a machine-readable code plus a human-readable message. Provider error
// strings and stack traces never reach it.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var env errorEnvelope
	env.Error.Code = code
	env.Error.Message = message
	writeJSON(w, status, env)
}

// WriteError is writeError exported for callers outside this package (the
// router's catch-all 404) that still need to emit the §7 error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, code, message)
}

// statusForOrchestratorError maps the orchestrator's sentinel errors to the
// HTTP status codes of §6/§7. Anything unrecognized is a generic 500.
func statusForOrchestratorError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_query"
	case errors.Is(err, service.ErrQuotaExceeded), errors.Is(err, service.ErrOverloaded):
		return http.StatusTooManyRequests, "overloaded"
	case errors.Is(err, service.ErrNoIndex):
		return http.StatusServiceUnavailable, "no_index"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
