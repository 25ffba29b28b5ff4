package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/fundvault/ragcore/internal/model"
	"golang.org/x/sync/errgroup"
)

// Strategy selects which index(es) the Retriever searches (§4.4, §9).
type Strategy string

const (
	StrategyVector  Strategy = "vector"
	StrategyLexical Strategy = "lexical"
	StrategyHybrid  Strategy = "hybrid"
)

// RetrievalFilter scopes a retrieval call to a subset of the index.
type RetrievalFilter struct {
	SourceIDs    []string
	ContentTypes []model.ContentType
	MinQuality   float64
}

// CacheKey returns a deterministic string for use as a cache-key component.
// Order-independent in the set fields so equivalent filters hash the same.
func (f RetrievalFilter) CacheKey() string {
	sourceIDs := append([]string(nil), f.SourceIDs...)
	sort.Strings(sourceIDs)
	contentTypes := make([]string, len(f.ContentTypes))
	for i, ct := range f.ContentTypes {
		contentTypes[i] = string(ct)
	}
	sort.Strings(contentTypes)
	return fmt.Sprintf("%v|%v|%.3f", sourceIDs, contentTypes, f.MinQuality)
}

// VectorSearchResult is one candidate chunk from a single-strategy search,
// carrying the similarity score on that strategy's own scale.
type VectorSearchResult struct {
	Chunk       model.Chunk
	SourceTitle string
	Score       float64
}

// VectorSearcher abstracts cosine similarity search for testability.
type VectorSearcher interface {
	SimilaritySearch(ctx context.Context, queryVec []float32, topK int, filter RetrievalFilter) ([]VectorSearchResult, error)
}

// QueryEmbedder abstracts query embedding for testability.
type QueryEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BM25Searcher abstracts lexical full-text search for testability.
type BM25Searcher interface {
	FullTextSearch(ctx context.Context, query string, topK int, filter RetrievalFilter) ([]VectorSearchResult, error)
}

// Retriever is the subset of *RetrieverService the Orchestrator depends on.
// It is satisfied directly by *RetrieverService and, in production, by a
// caching decorator in front of it (§9 query caching).
type Retriever interface {
	Configure(weightVector, weightLexical, minQuality, diversity float64)
	Retrieve(ctx context.Context, query string, strategy Strategy, filter RetrievalFilter, kFinal int) (*RetrievalResult, error)
}

// RankedChunk is a chunk with its fused score and per-strategy components,
// as returned to a caller after fusion, quality filtering, diversity
// pruning, and truncation (§4.4).
type RankedChunk struct {
	Chunk        model.Chunk `json:"chunk"`
	SourceTitle  string      `json:"sourceTitle"`
	VectorScore  float64     `json:"vectorScore"`
	LexicalScore float64     `json:"lexicalScore"`
	FusedScore   float64     `json:"fusedScore"`
}

// RetrievalResult is the outcome of a Retrieve call.
type RetrievalResult struct {
	Chunks          []RankedChunk `json:"chunks"`
	QueryEmbedding  []float32     `json:"-"`
	Strategy        Strategy      `json:"strategy"`
	TotalCandidates int           `json:"totalCandidates"`
	// Diagnostic is set when retrieval degraded gracefully instead of
	// failing outright — e.g. "no_index" when neither index has content
	// for the requested filter (§4.4 failure semantics).
	Diagnostic string `json:"diagnostic,omitempty"`
}

const (
	defaultTopK      = 20
	defaultDiversity = 0.92
)

// RetrieverService embeds the query, runs the requested strategy (vector,
// lexical, or hybrid) against the index, fuses, filters, prunes, and
// truncates to the caller's K_final (§4.4).
type RetrieverService struct {
	embedder QueryEmbedder
	vector   VectorSearcher
	lexical  BM25Searcher // nil disables lexical search; hybrid then degrades to vector-only

	weightVector  float64
	weightLexical float64
	minQuality    float64
	diversity     float64
}

// NewRetrieverService creates a RetrieverService. weightVector+weightLexical
// need not sum to 1; they are applied as given to each candidate's scores.
func NewRetrieverService(embedder QueryEmbedder, vector VectorSearcher, lexical BM25Searcher) *RetrieverService {
	return &RetrieverService{
		embedder:      embedder,
		vector:        vector,
		lexical:       lexical,
		weightVector:  0.7,
		weightLexical: 0.3,
		minQuality:    model.DefaultMinQuality,
		diversity:     defaultDiversity,
	}
}

// Configure applies runtime-tunable retrieval parameters from a config
// snapshot (§9 Config snapshots).
func (s *RetrieverService) Configure(weightVector, weightLexical, minQuality, diversity float64) {
	s.weightVector = weightVector
	s.weightLexical = weightLexical
	s.minQuality = minQuality
	s.diversity = diversity
}

// Embedder returns the underlying QueryEmbedder for external embedding.
func (s *RetrieverService) Embedder() QueryEmbedder {
	return s.embedder
}

// Retrieve embeds the query and runs retrieval under the requested strategy.
func (s *RetrieverService) Retrieve(ctx context.Context, query string, strategy Strategy, filter RetrievalFilter, kFinal int) (*RetrievalResult, error) {
	if query == "" {
		return nil, fmt.Errorf("service.Retrieve: query is empty")
	}

	queryVecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("service.Retrieve: embed: %w", err)
	}
	return s.RetrieveWithVec(ctx, query, queryVecs[0], strategy, filter, kFinal)
}

// RetrieveWithVec performs retrieval using a pre-computed query embedding,
// letting a caller overlap embedding with a cache lookup.
func (s *RetrieverService) RetrieveWithVec(ctx context.Context, query string, queryVec []float32, strategy Strategy, filter RetrievalFilter, kFinal int) (*RetrievalResult, error) {
	var vectorResults, lexicalResults []VectorSearchResult

	g, gCtx := errgroup.WithContext(ctx)

	runVector := strategy == StrategyVector || strategy == StrategyHybrid
	runLexical := (strategy == StrategyLexical || strategy == StrategyHybrid) && s.lexical != nil && query != ""

	// K_v = K_l = 2*K_final before fusion (§4.4), floored at defaultTopK so a
	// small kFinal still draws a reasonable candidate pool.
	kCandidate := defaultTopK
	if c := 2 * kFinal; c > kCandidate {
		kCandidate = c
	}

	if runVector {
		g.Go(func() error {
			var err error
			vectorResults, err = s.vector.SimilaritySearch(gCtx, queryVec, kCandidate, filter)
			return err
		})
	}
	if runLexical {
		g.Go(func() error {
			var err error
			lexicalResults, err = s.lexical.FullTextSearch(gCtx, query, kCandidate, filter)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service.Retrieve: search: %w", err)
	}

	slog.Info("retriever search complete",
		"strategy", strategy,
		"vector_candidates", len(vectorResults),
		"lexical_candidates", len(lexicalResults),
	)

	if len(vectorResults) == 0 && len(lexicalResults) == 0 {
		return &RetrievalResult{
			Chunks:     []RankedChunk{},
			Strategy:   strategy,
			Diagnostic: "no_index",
		}, nil
	}

	fused := fuse(vectorResults, lexicalResults, s.weightVector, s.weightLexical)
	totalCandidates := len(fused)

	filtered := filterByQuality(fused, s.minQuality)
	pruned := prune(filtered, s.diversity)

	limit := kFinal
	if limit <= 0 || limit > len(pruned) {
		limit = len(pruned)
	}

	return &RetrievalResult{
		Chunks:          pruned[:limit],
		QueryEmbedding:  queryVec,
		Strategy:        strategy,
		TotalCandidates: totalCandidates,
	}, nil
}

// fuse combines vector and lexical candidate lists with the fixed linear
// formula score = w_v*s_v + w_l*s_l (§4.4), defaulting a strategy's missing
// score to 0 when a chunk appears in only one list.
func fuse(vectorResults, lexicalResults []VectorSearchResult, weightVector, weightLexical float64) []RankedChunk {
	type acc struct {
		chunk        model.Chunk
		sourceTitle  string
		vectorScore  float64
		lexicalScore float64
	}
	byID := make(map[string]*acc)
	var order []string

	for _, r := range vectorResults {
		a, ok := byID[r.Chunk.ID]
		if !ok {
			a = &acc{chunk: r.Chunk, sourceTitle: r.SourceTitle}
			byID[r.Chunk.ID] = a
			order = append(order, r.Chunk.ID)
		}
		a.vectorScore = r.Score
	}
	for _, r := range lexicalResults {
		a, ok := byID[r.Chunk.ID]
		if !ok {
			a = &acc{chunk: r.Chunk, sourceTitle: r.SourceTitle}
			byID[r.Chunk.ID] = a
			order = append(order, r.Chunk.ID)
		}
		a.lexicalScore = r.Score
	}

	ranked := make([]RankedChunk, 0, len(order))
	for _, id := range order {
		a := byID[id]
		ranked = append(ranked, RankedChunk{
			Chunk:        a.chunk,
			SourceTitle:  a.sourceTitle,
			VectorScore:  a.vectorScore,
			LexicalScore: a.lexicalScore,
			FusedScore:   weightVector*a.vectorScore + weightLexical*a.lexicalScore,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].FusedScore != ranked[j].FusedScore {
			return ranked[i].FusedScore > ranked[j].FusedScore
		}
		if ranked[i].Chunk.QualityScore != ranked[j].Chunk.QualityScore {
			return ranked[i].Chunk.QualityScore > ranked[j].Chunk.QualityScore
		}
		return ranked[i].Chunk.ChunkIndex < ranked[j].Chunk.ChunkIndex
	})

	return ranked
}

// filterByQuality drops chunks below the quality floor.
func filterByQuality(ranked []RankedChunk, minQuality float64) []RankedChunk {
	out := make([]RankedChunk, 0, len(ranked))
	for _, r := range ranked {
		if r.Chunk.QualityScore >= minQuality {
			out = append(out, r)
		}
	}
	return out
}

// prune drops near-duplicate chunks whose embeddings are more similar than
// the diversity threshold to one already kept, breaking ties on
// (quality_score desc, chunk_index asc) — the order fuse already sorted by.
func prune(ranked []RankedChunk, threshold float64) []RankedChunk {
	var kept []RankedChunk
	for _, candidate := range ranked {
		tooSimilar := false
		for _, k := range kept {
			if cosineSimilarity(candidate.Chunk.Embedding, k.Chunk.Embedding) > threshold {
				tooSimilar = true
				break
			}
		}
		if !tooSimilar {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// cosineSimilarity returns the raw cosine similarity in [-1, 1] between two
// equal-length vectors, or 0 if either is empty or their lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
