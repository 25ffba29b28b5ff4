package service

import (
	"context"
	"errors"
	"testing"
)

type fakeEmbeddingClient struct {
	vectors [][]float32
	err     error
	calls   int
}

func (f *fakeEmbeddingClient) EmbedTexts(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

type fakeChunkStore struct {
	drafts  []ChunkDraft
	vectors [][]float32
}

func (f *fakeChunkStore) BulkInsert(ctx context.Context, drafts []ChunkDraft, vectors [][]float32) error {
	f.drafts = drafts
	f.vectors = vectors
	return nil
}

type fakeEmbeddingCache struct {
	store map[string][]float32
}

func newFakeEmbeddingCache() *fakeEmbeddingCache {
	return &fakeEmbeddingCache{store: make(map[string][]float32)}
}

func (c *fakeEmbeddingCache) Get(ctx context.Context, text, model string) ([]float32, bool) {
	vec, ok := c.store[text+"|"+model]
	return vec, ok
}

func (c *fakeEmbeddingCache) Set(ctx context.Context, text, model string, vec []float32) {
	c.store[text+"|"+model] = vec
}

func TestEmbedRejectsDimensionMismatch(t *testing.T) {
	client := &fakeEmbeddingClient{vectors: [][]float32{{1, 2, 3}}}
	svc := NewEmbedderService(client, &fakeChunkStore{}, nil, "text-embedding-004", 768)

	_, err := svc.Embed(context.Background(), []string{"hello"}, TaskRetrievalQuery)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Embed() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestEmbedUsesCacheForQueries(t *testing.T) {
	client := &fakeEmbeddingClient{vectors: [][]float32{{1, 0}}}
	cache := newFakeEmbeddingCache()
	svc := NewEmbedderService(client, &fakeChunkStore{}, cache, "text-embedding-004", 2)

	ctx := context.Background()
	if _, err := svc.Embed(ctx, []string{"net asset value"}, TaskRetrievalQuery); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("client.calls = %d, want 1", client.calls)
	}

	if _, err := svc.Embed(ctx, []string{"net asset value"}, TaskRetrievalQuery); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if client.calls != 1 {
		t.Errorf("client.calls after cache hit = %d, want 1 (no new remote call)", client.calls)
	}
}

func TestEmbedAndStorePropagatesVectors(t *testing.T) {
	client := &fakeEmbeddingClient{vectors: [][]float32{{3, 4}}}
	store := &fakeChunkStore{}
	svc := NewEmbedderService(client, store, nil, "text-embedding-004", 2)

	drafts := []ChunkDraft{{Content: "some chunk text"}}
	if err := svc.EmbedAndStore(context.Background(), drafts); err != nil {
		t.Fatalf("EmbedAndStore() error = %v", err)
	}
	if len(store.vectors) != 1 {
		t.Fatalf("store.vectors len = %d, want 1", len(store.vectors))
	}
	// 3-4-5 triangle normalizes to (0.6, 0.8).
	if store.vectors[0][0] < 0.59 || store.vectors[0][0] > 0.61 {
		t.Errorf("store.vectors[0][0] = %v, want ~0.6", store.vectors[0][0])
	}
}
