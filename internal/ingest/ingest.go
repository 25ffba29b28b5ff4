// Package ingest provides the minimal path by which already-extracted plain
// text becomes searchable chunks. It exists to make the Chunk Store
// invariants the Retriever relies on testable end to end; it is not a
// document pipeline — no OCR, no file parsing, no object storage.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fundvault/ragcore/internal/model"
	"github.com/fundvault/ragcore/internal/service"
)

// SourceStore abstracts persistence of a Source row.
type SourceStore interface {
	Create(ctx context.Context, s *model.Source) error
	UpdateStatus(ctx context.Context, id string, status model.ProcessingStatus) error
}

// Request describes one document to ingest. Text is assumed already
// extracted (plain text, no markup to strip beyond paragraph structure).
type Request struct {
	Filename     string
	Title        string
	Author       string
	Version      int
	DocumentType string
	Text         string
}

// Result summarizes a completed ingestion.
type Result struct {
	SourceID   string
	ChunkCount int
}

// Service drives a Request through the Chunker and Embedder, registering
// the Source row around the work so partial failures are visible as a
// failed, not a phantom pending, source.
type Service struct {
	sources  SourceStore
	chunker  *service.ChunkerService
	embedder *service.EmbedderService
}

// NewService wires a Service from its dependencies.
func NewService(sources SourceStore, chunker *service.ChunkerService, embedder *service.EmbedderService) *Service {
	return &Service{sources: sources, chunker: chunker, embedder: embedder}
}

// Ingest registers the source, chunks the text, embeds the chunks, and
// stores them. On any failure after the source row is created, the source
// is marked failed rather than left pending.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("ingest.Ingest: text is empty")
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf("ingest.Ingest: filename is required")
	}

	title := req.Title
	if title == "" {
		title = req.Filename
	}
	source := &model.Source{
		Filename:     req.Filename,
		Title:        title,
		Author:       req.Author,
		Version:      req.Version,
		ContentHash:  contentHash(req.Text),
		DocumentType: req.DocumentType,
	}
	if source.Version == 0 {
		source.Version = 1
	}
	if err := s.sources.Create(ctx, source); err != nil {
		return nil, fmt.Errorf("ingest.Ingest: create source: %w", err)
	}

	drafts, err := s.chunker.Chunk(ctx, req.Text, source.ID)
	if err != nil {
		_ = s.sources.UpdateStatus(ctx, source.ID, model.ProcessingFailed)
		return nil, fmt.Errorf("ingest.Ingest: chunk: %w", err)
	}

	if err := s.embedder.EmbedAndStore(ctx, drafts); err != nil {
		_ = s.sources.UpdateStatus(ctx, source.ID, model.ProcessingFailed)
		return nil, fmt.Errorf("ingest.Ingest: embed: %w", err)
	}

	if err := s.sources.UpdateStatus(ctx, source.ID, model.ProcessingCompleted); err != nil {
		return nil, fmt.Errorf("ingest.Ingest: mark completed: %w", err)
	}

	return &Result{SourceID: source.ID, ChunkCount: len(drafts)}, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
