package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fundvault/ragcore/internal/repository"
)

// FeedbackRecorder is the subset of *repository.FeedbackRepo the feedback
// handler depends on.
type FeedbackRecorder interface {
	Record(ctx context.Context, f *repository.Feedback) error
}

type feedbackRequest struct {
	MessageID    string   `json:"messageId"`
	SessionID    string   `json:"sessionId"`
	Rating       int      `json:"rating"`
	FeedbackText string   `json:"feedbackText"`
	Categories   []string `json:"categories"`
	QualityScore *float64 `json:"qualityScore"`
}

// PostFeedback returns the POST /chat/feedback handler (§6). Feedback is
// persisted verbatim; it never feeds back into retrieval or confidence at
// runtime.
func PostFeedback(feedback FeedbackRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req feedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "request body is not valid JSON")
			return
		}
		if req.MessageID == "" || req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "invalid_query", "messageId and sessionId are required")
			return
		}
		if req.Rating != -1 && req.Rating != 1 {
			writeError(w, http.StatusBadRequest, "invalid_query", "rating must be -1 or 1")
			return
		}
		if req.QualityScore != nil && (*req.QualityScore < 0 || *req.QualityScore > 1) {
			writeError(w, http.StatusBadRequest, "invalid_query", "qualityScore must be between 0 and 1")
			return
		}

		quality := 0.0
		if req.QualityScore != nil {
			quality = *req.QualityScore
		}
		record := &repository.Feedback{
			MessageID:    req.MessageID,
			SessionID:    req.SessionID,
			Rating:       req.Rating,
			FeedbackText: req.FeedbackText,
			Categories:   req.Categories,
			QualityScore: quality,
		}
		if err := feedback.Record(r.Context(), record); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"feedbackId": record.ID})
	}
}
