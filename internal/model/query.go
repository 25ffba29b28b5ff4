package model

// Complexity buckets a query by word-count per §4.3.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Intent is the first matching pattern from the analyzer's ordered rule list.
type Intent string

const (
	IntentDefinition     Intent = "definition"
	IntentProcedure      Intent = "procedure"
	IntentComparison     Intent = "comparison"
	IntentTroubleshooting Intent = "troubleshooting"
	IntentGeneral        Intent = "general"
)

// QueryAnalysis is the transient per-request structured view of a query
// produced by the Query Analyzer (§4.3). Pure function of its input query
// and the loaded gazetteer/stop-word configuration.
type QueryAnalysis struct {
	OriginalQuery   string
	NormalizedQuery string
	Tokens          []string
	Entities        []string
	Keywords        []string
	IsQuestion      bool
	Intent          Intent
	Complexity      Complexity
	WordCount       int
}

// Citation is a parsed marker resolved (or not) against the retrieved set.
type Citation struct {
	Source         string        `json:"source"`
	Page           *int          `json:"page,omitempty"`
	ChunkRef       *int          `json:"chunkRef,omitempty"` // set when the marker was a [chunk n] back-reference
	Valid          bool          `json:"valid"`
	MatchedChunkID string        `json:"matchedChunkId,omitempty"`
	Reason         InvalidReason `json:"reason,omitempty"`
}

// InvalidReason enumerates why a citation failed validation.
type InvalidReason string

const (
	ReasonNone         InvalidReason = ""
	ReasonUnknownSource InvalidReason = "unknown_source"
	ReasonWrongPage     InvalidReason = "wrong_page"
	ReasonOutOfRange    InvalidReason = "out_of_range"
)

// ConfidenceLevel is the qualitative bucket derived from the overall score.
type ConfidenceLevel string

const (
	LevelVeryLow ConfidenceLevel = "very_low"
	LevelLow     ConfidenceLevel = "low"
	LevelMedium  ConfidenceLevel = "medium"
	LevelHigh    ConfidenceLevel = "high"
)

// Issue is a typed condition detected by the Confidence Manager (§4.8).
type Issue string

const (
	IssueNoRelevantSources    Issue = "no_relevant_sources"
	IssueLowRetrievalConfidence Issue = "low_retrieval_confidence"
	IssuePoorCitationQuality Issue = "poor_citation_quality"
	IssueQueryAmbiguity      Issue = "query_ambiguity"
	IssueGenerationError     Issue = "generation_error"
	IssueSystemError         Issue = "system_error"
)

// ConfidenceAssessment is the full record produced by the Confidence Manager.
type ConfidenceAssessment struct {
	Retrieval float64
	Content   float64
	Context   float64
	Generation float64
	Overall   float64
	Level     ConfidenceLevel
	Issues    []Issue
	Metrics   map[string]float64
}
