package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/fundvault/ragcore/internal/service"
)

// BM25Repository implements service.BM25Searcher using PostgreSQL's
// ts_rank_cd over the GIN index on chunks.lexical_field.
type BM25Repository struct {
	pool *pgxpool.Pool
}

// NewBM25Repository creates a BM25Repository.
func NewBM25Repository(pool *pgxpool.Pool) *BM25Repository {
	return &BM25Repository{pool: pool}
}

// Compile-time check.
var _ service.BM25Searcher = (*BM25Repository)(nil)

// FullTextSearch finds chunks matching query via PostgreSQL full-text
// search, scoped by filter, and rescales ts_rank_cd scores into [0,1] by
// dividing by the top score in the result set (0 when the set is empty).
func (r *BM25Repository) FullTextSearch(ctx context.Context, query string, topK int, filter service.RetrievalFilter) ([]service.VectorSearchResult, error) {
	sqlQuery := `
		SELECT c.id, c.source_id, c.chunk_index, c.heading, c.subheading, c.page_number,
		       c.section_path, c.content, c.content_type, c.token_count, c.character_count,
		       c.word_count, c.quality_score, c.embedding, c.created_at,
		       ts_rank_cd(c.lexical_field, plainto_tsquery('english', $1)) AS rank,
		       s.title
		FROM chunks c
		JOIN sources s ON c.source_id = s.id
		WHERE s.processing_status = 'completed'
		  AND c.quality_score >= $2
		  AND c.lexical_field @@ plainto_tsquery('english', $1)`

	args := []any{query, filter.MinQuality}
	args, sqlQuery = appendFilterClauses(args, sqlQuery, filter)

	sqlQuery += fmt.Sprintf(` ORDER BY rank DESC LIMIT $%d`, len(args)+1)
	args = append(args, topK)

	rows, err := r.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.FullTextSearch: %w", err)
	}
	defer rows.Close()

	var results []service.VectorSearchResult
	var topRank float64
	for rows.Next() {
		var (
			cr          service.VectorSearchResult
			sectionPath []string
			embedding   pgvector.Vector
			rank        float64
		)
		err := rows.Scan(
			&cr.Chunk.ID, &cr.Chunk.SourceID, &cr.Chunk.ChunkIndex, &cr.Chunk.Heading, &cr.Chunk.Subheading, &cr.Chunk.PageNumber,
			pq.Array(&sectionPath), &cr.Chunk.Content, &cr.Chunk.ContentType, &cr.Chunk.TokenCount, &cr.Chunk.CharCount,
			&cr.Chunk.WordCount, &cr.Chunk.QualityScore, &embedding, &cr.Chunk.CreatedAt,
			&rank, &cr.SourceTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("repository.FullTextSearch: scan: %w", err)
		}
		cr.Chunk.SectionPath = sectionPath
		cr.Chunk.Embedding = embedding.Slice()
		cr.Score = rank
		if rank > topRank {
			topRank = rank
		}
		results = append(results, cr)
	}

	if topRank > 0 {
		for i := range results {
			results[i].Score = results[i].Score / topRank
		}
	}

	return results, nil
}
