package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// Feedback is one user rating of a generated message (§3 feedback table).
type Feedback struct {
	ID           string
	MessageID    string
	SessionID    string
	Rating       int
	FeedbackText string
	Categories   []string
	QualityScore float64
	CreatedAt    time.Time
}

// FeedbackRepo persists user feedback on generated answers.
type FeedbackRepo struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepo creates a FeedbackRepo.
func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

// Record inserts a feedback row. A second submission for the same
// (session_id, message_id) replaces the first.
func (r *FeedbackRepo) Record(ctx context.Context, f *Feedback) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO feedback (id, message_id, session_id, rating, feedback_text, categories, quality_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, message_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			feedback_text = EXCLUDED.feedback_text,
			categories = EXCLUDED.categories,
			quality_score = EXCLUDED.quality_score,
			created_at = EXCLUDED.created_at`,
		f.ID, f.MessageID, f.SessionID, f.Rating, f.FeedbackText, pq.Array(f.Categories), f.QualityScore, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository.Feedback.Record: %w", err)
	}
	return nil
}
