package service

import (
	"context"
	"testing"

	"github.com/fundvault/ragcore/internal/model"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

type fakeVectorSearcher struct {
	results  []VectorSearchResult
	lastTopK int
}

func (f *fakeVectorSearcher) SimilaritySearch(ctx context.Context, queryVec []float32, topK int, filter RetrievalFilter) ([]VectorSearchResult, error) {
	f.lastTopK = topK
	return f.results, nil
}

type fakeLexicalSearcher struct {
	results  []VectorSearchResult
	lastTopK int
}

func (f *fakeLexicalSearcher) FullTextSearch(ctx context.Context, query string, topK int, filter RetrievalFilter) ([]VectorSearchResult, error) {
	f.lastTopK = topK
	return f.results, nil
}

func chunkWith(id string, quality float64, idx int) model.Chunk {
	return model.Chunk{ID: id, ChunkIndex: idx, QualityScore: quality}
}

func TestRetrieveHybridFusion(t *testing.T) {
	vector := &fakeVectorSearcher{results: []VectorSearchResult{
		{Chunk: chunkWith("a", 0.9, 0), Score: 0.8},
		{Chunk: chunkWith("b", 0.9, 1), Score: 0.5},
	}}
	lexical := &fakeLexicalSearcher{results: []VectorSearchResult{
		{Chunk: chunkWith("b", 0.9, 1), Score: 1.0},
	}}
	svc := NewRetrieverService(&fakeEmbedder{vec: []float32{0.1, 0.2}}, vector, lexical)

	result, err := svc.Retrieve(context.Background(), "net asset value", StrategyHybrid, RetrievalFilter{}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("Retrieve() chunks = %d, want 2", len(result.Chunks))
	}

	// a: 0.7*0.8 + 0.3*0 = 0.56; b: 0.7*0.5 + 0.3*1.0 = 0.65 -> b should rank first.
	if result.Chunks[0].Chunk.ID != "b" {
		t.Errorf("Chunks[0].ID = %q, want %q", result.Chunks[0].Chunk.ID, "b")
	}
}

func TestRetrieveNoIndexDiagnostic(t *testing.T) {
	svc := NewRetrieverService(&fakeEmbedder{vec: []float32{0.1}}, &fakeVectorSearcher{}, &fakeLexicalSearcher{})

	result, err := svc.Retrieve(context.Background(), "anything", StrategyHybrid, RetrievalFilter{}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if result.Diagnostic != "no_index" {
		t.Errorf("Diagnostic = %q, want no_index", result.Diagnostic)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("Chunks = %d, want 0", len(result.Chunks))
	}
}

func TestFilterByQualityDropsLowScore(t *testing.T) {
	ranked := []RankedChunk{
		{Chunk: chunkWith("a", 0.9, 0)},
		{Chunk: chunkWith("b", 0.1, 1)},
	}
	out := filterByQuality(ranked, 0.3)
	if len(out) != 1 || out[0].Chunk.ID != "a" {
		t.Fatalf("filterByQuality() = %+v, want only chunk a", out)
	}
}

func TestPruneDropsNearDuplicates(t *testing.T) {
	ranked := []RankedChunk{
		{Chunk: model.Chunk{ID: "a", Embedding: []float32{1, 0}}},
		{Chunk: model.Chunk{ID: "b", Embedding: []float32{1, 0.001}}},
		{Chunk: model.Chunk{ID: "c", Embedding: []float32{0, 1}}},
	}
	out := prune(ranked, 0.92)
	if len(out) != 2 {
		t.Fatalf("prune() kept %d chunks, want 2: %+v", len(out), out)
	}
	if out[0].Chunk.ID != "a" || out[1].Chunk.ID != "c" {
		t.Errorf("prune() = %v, want [a c]", []string{out[0].Chunk.ID, out[1].Chunk.ID})
	}
}

func TestRetrieveHybridScalesCandidatePoolToKFinal(t *testing.T) {
	vector := &fakeVectorSearcher{}
	lexical := &fakeLexicalSearcher{}
	svc := NewRetrieverService(&fakeEmbedder{vec: []float32{0.1, 0.2}}, vector, lexical)

	if _, err := svc.Retrieve(context.Background(), "net asset value", StrategyHybrid, RetrievalFilter{}, 40); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if vector.lastTopK != 80 {
		t.Errorf("vector search topK = %d, want 2*kFinal = 80", vector.lastTopK)
	}
	if lexical.lastTopK != 80 {
		t.Errorf("lexical search topK = %d, want 2*kFinal = 80", lexical.lastTopK)
	}
}

func TestRetrieveHybridFloorsCandidatePoolAtDefaultTopK(t *testing.T) {
	vector := &fakeVectorSearcher{}
	lexical := &fakeLexicalSearcher{}
	svc := NewRetrieverService(&fakeEmbedder{vec: []float32{0.1, 0.2}}, vector, lexical)

	if _, err := svc.Retrieve(context.Background(), "net asset value", StrategyHybrid, RetrievalFilter{}, 2); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if vector.lastTopK != defaultTopK {
		t.Errorf("vector search topK = %d, want defaultTopK = %d when 2*kFinal is smaller", vector.lastTopK, defaultTopK)
	}
	if lexical.lastTopK != defaultTopK {
		t.Errorf("lexical search topK = %d, want defaultTopK = %d when 2*kFinal is smaller", lexical.lastTopK, defaultTopK)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("cosineSimilarity(orthogonal) = %v, want 0", got)
	}
	if got := cosineSimilarity([]float32{1, 1}, []float32{1, 1}); got < 0.999 {
		t.Errorf("cosineSimilarity(identical) = %v, want ~1", got)
	}
}
