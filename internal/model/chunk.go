package model

import "time"

// ContentType classifies the structural shape of a chunk's content.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentTable      ContentType = "table"
	ContentList       ContentType = "list"
	ContentCode       ContentType = "code"
	ContentDefinition ContentType = "definition"
	ContentProcedure  ContentType = "procedure"
)

// Default retrieval-eligibility bounds (§3 Chunk invariants). Overridable
// via configuration, never hard-coded into the Retriever itself.
const (
	DefaultMinTokens  = 100
	DefaultMaxTokens  = 600
	DefaultMinQuality = 0.3
)

// Chunk is an indexed passage belonging to a Source. Immutable after
// creation; deleted only via cascade on its parent Source.
type Chunk struct {
	ID           string      `json:"id"`
	SourceID     string      `json:"sourceId"`
	ChunkIndex   int         `json:"chunkIndex"`
	Heading      string      `json:"heading,omitempty"`
	Subheading   string      `json:"subheading,omitempty"`
	PageNumber   *int        `json:"pageNumber,omitempty"`
	SectionPath  []string    `json:"sectionPath,omitempty"`
	Content      string      `json:"content"`
	ContentType  ContentType `json:"contentType"`
	TokenCount   int         `json:"tokenCount"`
	CharCount    int         `json:"characterCount"`
	WordCount    int         `json:"wordCount"`
	QualityScore float64     `json:"qualityScore"`
	Embedding    []float32   `json:"-"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// SourceTitle carries the bits of the parent Source a retrieved chunk needs
// for citation and display without pulling in the whole Source record.
type SourceTitle struct {
	SourceID string
	Title    string
}
