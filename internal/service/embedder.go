package service

import (
	"context"
	"fmt"
	"math"
)

const maxEmbedBatchSize = 250

// TaskType selects Vertex AI's asymmetric embedding mode: documents and
// queries are embedded differently even though they share a model (§4.2).
type TaskType string

const (
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    TaskType = "RETRIEVAL_QUERY"
)

// EmbeddingClient abstracts the Vertex AI embedding API for testability.
type EmbeddingClient interface {
	EmbedTexts(ctx context.Context, texts []string, task TaskType) ([][]float32, error)
}

// ChunkStore abstracts bulk insertion of chunk drafts with vectors.
type ChunkStore interface {
	BulkInsert(ctx context.Context, drafts []ChunkDraft, vectors [][]float32) error
}

// EmbeddingCache abstracts the two-tier embedding cache for testability.
type EmbeddingCache interface {
	Get(ctx context.Context, text, model string) ([]float32, bool)
	Set(ctx context.Context, text, model string, vec []float32)
}

// EmbedderService generates vector embeddings and stores them with chunks.
// Dimension mismatches are surfaced as ErrDimensionMismatch rather than a
// partially stored batch (§4.2).
type EmbedderService struct {
	client     EmbeddingClient
	chunkStore ChunkStore
	cache      EmbeddingCache
	modelName  string
	dimensions int
}

// NewEmbedderService creates an EmbedderService. cache may be nil to
// disable caching.
func NewEmbedderService(client EmbeddingClient, chunkStore ChunkStore, cache EmbeddingCache, modelName string, dimensions int) *EmbedderService {
	return &EmbedderService{
		client:     client,
		chunkStore: chunkStore,
		cache:      cache,
		modelName:  modelName,
		dimensions: dimensions,
	}
}

// Embed generates embeddings for a slice of texts under the given task
// type, batching as needed, validating dimensionality, and L2-normalizing.
// A cache hit (query embeddings only — document embeddings are never
// re-queried after ingestion) short-circuits the remote call per text.
func (s *EmbedderService) Embed(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("service.Embed: no texts provided")
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	if s.cache != nil && task == TaskRetrievalQuery {
		for i, t := range texts {
			if vec, ok := s.cache.Get(ctx, t, s.modelName); ok {
				results[i] = vec
				continue
			}
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, t)
		}
	} else {
		for i, t := range texts {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, t)
		}
	}

	for i := 0; i < len(missTexts); i += maxEmbedBatchSize {
		end := i + maxEmbedBatchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		batch := missTexts[i:end]

		vectors, err := s.client.EmbedTexts(ctx, batch, task)
		if err != nil {
			return nil, fmt.Errorf("service.Embed: batch %d-%d: %w", i, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("service.Embed: got %d vectors for %d texts in batch", len(vectors), len(batch))
		}

		for j, vec := range vectors {
			if len(vec) != s.dimensions {
				return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrDimensionMismatch, len(vec), s.dimensions)
			}
			normalized := l2Normalize(vec)
			results[missIdx[i+j]] = normalized

			if s.cache != nil && task == TaskRetrievalQuery {
				s.cache.Set(ctx, batch[j], s.modelName, normalized)
			}
		}
	}

	return results, nil
}

// EmbedAndStore generates document embeddings for chunk drafts and persists
// them via ChunkStore. On any dimension mismatch, nothing is stored.
func (s *EmbedderService) EmbedAndStore(ctx context.Context, drafts []ChunkDraft) error {
	if len(drafts) == 0 {
		return nil
	}

	texts := make([]string, len(drafts))
	for i, d := range drafts {
		texts[i] = d.Content
	}

	vectors, err := s.Embed(ctx, texts, TaskRetrievalDocument)
	if err != nil {
		return fmt.Errorf("service.EmbedAndStore: %w", err)
	}

	if err := s.chunkStore.BulkInsert(ctx, drafts, vectors); err != nil {
		return fmt.Errorf("service.EmbedAndStore: store: %w", err)
	}

	return nil
}

// QueryEmbedder adapts EmbedderService to the Retriever's QueryEmbedder
// interface, which only knows about query-time embedding.
type queryEmbedderAdapter struct {
	embedder *EmbedderService
}

// AsQueryEmbedder wraps an EmbedderService for use by RetrieverService.
func AsQueryEmbedder(embedder *EmbedderService) QueryEmbedder {
	return &queryEmbedderAdapter{embedder: embedder}
}

func (a *queryEmbedderAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return a.embedder.Embed(ctx, texts, TaskRetrievalQuery)
}

// l2Normalize normalizes a vector to unit length (L2 norm = 1).
func l2Normalize(vec []float32) []float32 {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return vec
	}

	result := make([]float32, len(vec))
	for i, v := range vec {
		result[i] = float32(float64(v) / norm)
	}
	return result
}
