package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/fundvault/ragcore/internal/model"
	"github.com/fundvault/ragcore/internal/service"
)

// ChunkRepo implements service.ChunkStore and service.VectorSearcher against
// the chunks table's pgvector column.
type ChunkRepo struct {
	pool *pgxpool.Pool
}

// NewChunkRepo creates a ChunkRepo.
func NewChunkRepo(pool *pgxpool.Pool) *ChunkRepo {
	return &ChunkRepo{pool: pool}
}

// Compile-time checks.
var (
	_ service.ChunkStore     = (*ChunkRepo)(nil)
	_ service.VectorSearcher = (*ChunkRepo)(nil)
)

// BulkInsert stores chunk drafts with their embedding vectors using pgx batching.
func (r *ChunkRepo) BulkInsert(ctx context.Context, drafts []service.ChunkDraft, vectors [][]float32) error {
	if len(drafts) == 0 {
		return nil
	}
	if len(drafts) != len(vectors) {
		return fmt.Errorf("repository.BulkInsert: draft count (%d) != vector count (%d)", len(drafts), len(vectors))
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()

	for i, d := range drafts {
		id := uuid.New().String()
		embedding := pgvector.NewVector(vectors[i])

		batch.Queue(`
			INSERT INTO chunks (
				id, source_id, chunk_index, heading, section_path, page_number,
				content, content_type, token_count, character_count, word_count,
				quality_score, embedding, lexical_field, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10, $11,
				$12, $13, to_tsvector('english', $7), $14
			)`,
			id, d.SourceID, d.ChunkIndex, d.Heading, pq.Array(d.SectionPath), d.PageNumber,
			d.Content, string(d.ContentType), d.TokenCount, d.CharCount, d.WordCount,
			d.QualityScore, embedding, now,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(drafts); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("repository.BulkInsert: chunk %d: %w", i, err)
		}
	}

	return nil
}

// SimilaritySearch finds the top-K chunks most similar to queryVec using
// cosine distance, rescaled to [0,1] via (s+1)/2 per the glossary, scoped by
// filter (source IDs, content types, minimum quality).
func (r *ChunkRepo) SimilaritySearch(ctx context.Context, queryVec []float32, topK int, filter service.RetrievalFilter) ([]service.VectorSearchResult, error) {
	embedding := pgvector.NewVector(queryVec)

	query := `
		SELECT
			c.id, c.source_id, c.chunk_index, c.heading, c.subheading, c.page_number,
			c.section_path, c.content, c.content_type, c.token_count, c.character_count,
			c.word_count, c.quality_score, c.embedding, c.created_at,
			(1 - (c.embedding <=> $1::vector)) / 2 + 0.5 AS similarity,
			s.title
		FROM chunks c
		JOIN sources s ON c.source_id = s.id
		WHERE s.processing_status = 'completed'
			AND c.quality_score >= $2`

	args := []any{embedding, filter.MinQuality}
	args, query = appendFilterClauses(args, query, filter)

	query += fmt.Sprintf(` ORDER BY c.embedding <=> $1::vector LIMIT $%d`, len(args)+1)
	args = append(args, topK)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		slog.Error("repository.SimilaritySearch query failed", "error", err)
		return nil, fmt.Errorf("repository.SimilaritySearch: %w", err)
	}
	defer rows.Close()

	var results []service.VectorSearchResult
	for rows.Next() {
		var (
			cr          service.VectorSearchResult
			sectionPath []string
			embedding   pgvector.Vector
		)
		err := rows.Scan(
			&cr.Chunk.ID, &cr.Chunk.SourceID, &cr.Chunk.ChunkIndex, &cr.Chunk.Heading, &cr.Chunk.Subheading, &cr.Chunk.PageNumber,
			pq.Array(&sectionPath), &cr.Chunk.Content, &cr.Chunk.ContentType, &cr.Chunk.TokenCount, &cr.Chunk.CharCount,
			&cr.Chunk.WordCount, &cr.Chunk.QualityScore, &embedding, &cr.Chunk.CreatedAt,
			&cr.Score, &cr.SourceTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("repository.SimilaritySearch: scan: %w", err)
		}
		cr.Chunk.SectionPath = sectionPath
		cr.Chunk.Embedding = embedding.Slice()
		results = append(results, cr)
	}

	return results, nil
}

// GetByIDs fetches chunks, including their stored embedding vectors, as a
// map keyed by chunk ID; the order of ids is not carried over. Nothing in
// this module calls it.
func (r *ChunkRepo) GetByIDs(ctx context.Context, ids []string) (map[string]model.Chunk, error) {
	if len(ids) == 0 {
		return map[string]model.Chunk{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, source_id, chunk_index, heading, subheading, page_number,
		       section_path, content, content_type, token_count, character_count,
		       word_count, quality_score, embedding, created_at
		FROM chunks
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("repository.GetByIDs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Chunk, len(ids))
	for rows.Next() {
		var (
			c           model.Chunk
			sectionPath []string
			embedding   pgvector.Vector
		)
		err := rows.Scan(
			&c.ID, &c.SourceID, &c.ChunkIndex, &c.Heading, &c.Subheading, &c.PageNumber,
			pq.Array(&sectionPath), &c.Content, &c.ContentType, &c.TokenCount, &c.CharCount,
			&c.WordCount, &c.QualityScore, &embedding, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository.GetByIDs: scan: %w", err)
		}
		c.SectionPath = sectionPath
		c.Embedding = embedding.Slice()
		out[c.ID] = c
	}

	return out, nil
}

// DeleteBySourceID removes all chunks for a source (cascade also handles
// this on source deletion; exposed for re-indexing).
func (r *ChunkRepo) DeleteBySourceID(ctx context.Context, sourceID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE source_id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("repository.DeleteBySourceID: %w", err)
	}
	return nil
}

// CountBySourceID returns the number of chunks for a source.
func (r *ChunkRepo) CountBySourceID(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE source_id = $1`, sourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository.CountBySourceID: %w", err)
	}
	return count, nil
}

// appendFilterClauses adds the optional source-id and content-type
// conjunctions from filter to query, appending their parameters to args.
func appendFilterClauses(args []any, query string, filter service.RetrievalFilter) ([]any, string) {
	if len(filter.SourceIDs) > 0 {
		args = append(args, pq.Array(filter.SourceIDs))
		query += fmt.Sprintf(` AND c.source_id = ANY($%d)`, len(args))
	}
	if len(filter.ContentTypes) > 0 {
		types := make([]string, len(filter.ContentTypes))
		for i, ct := range filter.ContentTypes {
			types[i] = string(ct)
		}
		args = append(args, pq.Array(types))
		query += fmt.Sprintf(` AND c.content_type = ANY($%d)`, len(args))
	}
	return args, query
}
