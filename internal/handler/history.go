package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fundvault/ragcore/internal/model"
)

// ConversationManager is the subset of *service.ConversationService the
// history handlers depend on.
type ConversationManager interface {
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.Turn, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type historyResponse struct {
	Conversation []model.Turn   `json:"conversation"`
	MessageCount int            `json:"messageCount"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// GetHistory returns the GET /chat/history/:sessionId handler (§6).
func GetHistory(conversations ConversationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "invalid_query", "sessionId is required")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_query", "limit must be a positive integer")
				return
			}
			limit = n
		}

		turns, err := conversations.RecentTurns(r.Context(), sessionID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
			return
		}
		if turns == nil {
			turns = []model.Turn{}
		}

		resp := historyResponse{Conversation: turns, MessageCount: len(turns)}
		if includeMetadata, _ := strconv.ParseBool(r.URL.Query().Get("includeMetadata")); includeMetadata {
			userTurns, assistantTurns := 0, 0
			for _, t := range turns {
				if t.Role == model.RoleUser {
					userTurns++
				} else if t.Role == model.RoleAssistant {
					assistantTurns++
				}
			}
			resp.Metadata = map[string]any{"userTurns": userTurns, "assistantTurns": assistantTurns}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// DeleteHistory returns the DELETE /chat/history/:sessionId handler (§6).
func DeleteHistory(conversations ConversationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "invalid_query", "sessionId is required")
			return
		}

		if err := conversations.DeleteSession(r.Context(), sessionID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": true})
	}
}
