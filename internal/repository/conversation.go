package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundvault/ragcore/internal/model"
)

// ConversationRepo persists the append-only conversations/conversation_turns
// log (§3).
type ConversationRepo struct {
	pool *pgxpool.Pool
}

// NewConversationRepo creates a ConversationRepo.
func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

// GetOrCreateSession finds an existing conversation row for sessionID or
// creates one. Returns the conversation ID (equal to sessionID).
func (r *ConversationRepo) GetOrCreateSession(ctx context.Context, sessionID string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id FROM conversations WHERE id = $1`, sessionID).Scan(&id)
	if err == nil {
		return id, nil
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO conversations (id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (id) DO NOTHING`,
		sessionID, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("repository.GetOrCreateSession: %w", err)
	}
	return sessionID, nil
}

// AppendTurn inserts a turn into the conversation's log and touches the
// conversation's updated_at.
func (r *ConversationRepo) AppendTurn(ctx context.Context, turn *model.Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_turns (id, session_id, role, text, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.ID, turn.SessionID, string(turn.Role), turn.Text, metadataJSON(turn.Metadata), turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository.AppendTurn: %w", err)
	}

	_, err = r.pool.Exec(ctx, `UPDATE conversations SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), turn.SessionID)
	if err != nil {
		return fmt.Errorf("repository.AppendTurn: touch conversation: %w", err)
	}
	return nil
}

// RecentTurns returns the most recent limit turns for a session, oldest
// first, matching the order the Prompt Assembler expects (§4.5).
func (r *ConversationRepo) RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.Turn, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, role, text, metadata, created_at
		FROM conversation_turns
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository.RecentTurns: %w", err)
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		var (
			t    model.Turn
			role string
			meta []byte
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &role, &t.Text, &meta, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.RecentTurns: scan: %w", err)
		}
		t.Role = model.Role(role)
		turns = append(turns, t)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// DeleteSession removes a conversation and its turns (cascade).
func (r *ConversationRepo) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("repository.DeleteSession: %w", err)
	}
	return nil
}

func metadataJSON(m map[string]any) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}
