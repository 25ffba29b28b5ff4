package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fundvault/ragcore/internal/service"
)

// Orchestrator is the subset of *service.Orchestrator the chat handlers
// depend on.
type Orchestrator interface {
	Answer(ctx context.Context, query, sessionID string, opts service.AnswerOptions) (*service.AnswerResponse, error)
}

// chatMessageRequest is the POST /chat/message request body (§6).
type chatMessageRequest struct {
	Message          string           `json:"message"`
	SessionID        string           `json:"sessionId"`
	UseKnowledgeBase *bool            `json:"useKnowledgeBase"`
	Options          *chatMessageOpts `json:"options"`
}

type chatMessageOpts struct {
	MaxResults  *int     `json:"maxResults"`
	MaxTokens   *int     `json:"maxTokens"`
	Temperature *float64 `json:"temperature"`
	Model       *string  `json:"model"`
}

// ChatMessage returns the POST /chat/message handler (§4.9, §6).
func ChatMessage(orch Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "request body is not valid JSON")
			return
		}

		opts := service.AnswerOptions{UseKnowledgeBase: req.UseKnowledgeBase}
		if req.Options != nil {
			if req.Options.MaxResults != nil {
				if *req.Options.MaxResults < 1 || *req.Options.MaxResults > 50 {
					writeError(w, http.StatusBadRequest, "invalid_query", "maxResults must be between 1 and 50")
					return
				}
				opts.MaxResults = req.Options.MaxResults
			}
			if req.Options.Temperature != nil {
				if *req.Options.Temperature < 0 || *req.Options.Temperature > 2 {
					writeError(w, http.StatusBadRequest, "invalid_query", "temperature must be between 0 and 2")
					return
				}
				opts.Temperature = req.Options.Temperature
			}
			opts.MaxTokens = req.Options.MaxTokens
			opts.Model = req.Options.Model
		}

		resp, err := orch.Answer(r.Context(), req.Message, req.SessionID, opts)
		if err != nil {
			status, code := statusForOrchestratorError(err)
			if status == http.StatusInternalServerError {
				slog.Error("chat message failed",
					"request_id", r.Header.Get("X-Request-ID"),
					"error", err)
			}
			writeError(w, status, code, publicMessageFor(code))
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func publicMessageFor(code string) string {
	switch code {
	case "invalid_query":
		return "the request could not be understood"
	case "overloaded":
		return "the service is at capacity, try again shortly"
	case "no_index":
		return "no searchable content is currently available"
	default:
		return "an internal error occurred"
	}
}
