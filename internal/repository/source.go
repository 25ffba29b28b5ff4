package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundvault/ragcore/internal/model"
)

// SourceRepo persists Source rows (§3 sources table).
type SourceRepo struct {
	pool *pgxpool.Pool
}

// NewSourceRepo creates a SourceRepo.
func NewSourceRepo(pool *pgxpool.Pool) *SourceRepo {
	return &SourceRepo{pool: pool}
}

// Create inserts a new source in ProcessingPending state.
func (r *SourceRepo) Create(ctx context.Context, s *model.Source) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.ProcessingStatus == "" {
		s.ProcessingStatus = model.ProcessingPending
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO sources (id, filename, title, author, version, content_hash, document_type, processing_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		s.ID, s.Filename, s.Title, s.Author, s.Version, s.ContentHash, s.DocumentType, string(s.ProcessingStatus), now,
	)
	if err != nil {
		return fmt.Errorf("repository.Source.Create: %w", err)
	}
	return nil
}

// UpdateStatus transitions a source's processing_status.
func (r *SourceRepo) UpdateStatus(ctx context.Context, id string, status model.ProcessingStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sources SET processing_status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository.Source.UpdateStatus: %w", err)
	}
	return nil
}

// Get fetches a source by ID.
func (r *SourceRepo) Get(ctx context.Context, id string) (*model.Source, error) {
	var (
		s      model.Source
		status string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, filename, title, author, version, content_hash, document_type, processing_status, created_at, updated_at
		FROM sources WHERE id = $1`, id,
	).Scan(&s.ID, &s.Filename, &s.Title, &s.Author, &s.Version, &s.ContentHash, &s.DocumentType, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.Source.Get: %w", err)
	}
	s.ProcessingStatus = model.ProcessingStatus(status)
	return &s, nil
}
