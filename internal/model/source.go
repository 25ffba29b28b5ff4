package model

import "time"

// ProcessingStatus tracks a Source through the ingestion lifecycle.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// Source is a logical document. Only sources with ProcessingCompleted
// contribute chunks to retrieval.
type Source struct {
	ID               string           `json:"id"`
	Filename         string           `json:"filename"`
	Title            string           `json:"title"`
	Author           string           `json:"author,omitempty"`
	Version          int              `json:"version"`
	ContentHash      string           `json:"contentHash"`
	DocumentType     string           `json:"documentType"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}
