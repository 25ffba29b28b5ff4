package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Config holds all application configuration loaded from environment variables.
// It is immutable after Load() returns; the subset that can change at runtime
// lives in Snapshot, reached through a Store.
type Config struct {
	Port             int
	Environment      string
	DatabaseURL      string
	DatabaseMaxConns int

	GCPProject             string
	GCPRegion              string
	VertexAILocation       string
	VertexAIModel          string
	VertexAIFallbackModels []string
	EmbeddingLocation      string
	EmbeddingModel         string

	RedisAddr string

	GazetteerPath string
	StopwordsPath string

	FrontendURL        string
	InternalAuthSecret string

	Snapshot Snapshot
}

// Snapshot is the subset of configuration §9 requires to be swappable at
// runtime: request handlers capture one Snapshot value at the top of a
// request and run the whole pipeline against it, so a concurrent Swap never
// produces a torn read mid-request.
type Snapshot struct {
	VectorDimension int

	RetrievalMaxChunks          int
	RetrievalDiversityThreshold float64
	RetrievalEnableHybrid       bool
	RetrievalWeightVector       float64
	RetrievalWeightLexical      float64

	ResponseMaxTokens                int
	ResponseTemperature              float64
	ResponseConfidenceThreshold      float64
	ResponseEnableCitationValidation bool

	ConfidenceHighThreshold    float64
	ConfidenceMediumThreshold  float64
	ConfidenceLowThreshold     float64
	ConfidenceMinimumThreshold float64
	ConfidenceWeights          ConfidenceWeights

	EmbedderMaxRetries        int
	CompletionMaxRetries      int
	CompletionMaxInFlight     int
	CompletionQueueDeadlineMS int
	StorageTimeoutSeconds     int
}

// ConfidenceWeights are the overall-score coefficients from §4.8, kept as
// configuration rather than constants per the §9 Open Question resolution.
type ConfidenceWeights struct {
	Retrieval  float64
	Content    float64
	Context    float64
	Generation float64
}

// Store holds the live Snapshot behind an atomic pointer so Load never
// blocks a writer and Swap never tears a read already in flight.
type Store struct {
	ptr atomic.Pointer[Snapshot]
}

// NewStore creates a Store seeded with the given snapshot.
func NewStore(initial Snapshot) *Store {
	s := &Store{}
	s.ptr.Store(&initial)
	return s
}

// Load returns the currently active snapshot.
func (s *Store) Load() Snapshot {
	return *s.ptr.Load()
}

// Swap atomically replaces the active snapshot.
func (s *Store) Swap(next Snapshot) {
	s.ptr.Store(&next)
}

// Load reads configuration from environment variables.
// Required variables (DATABASE_URL, GOOGLE_CLOUD_PROJECT) cause an error if missing.
// Optional variables use sensible defaults.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	gcpProject := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if gcpProject == "" {
		return nil, fmt.Errorf("config.Load: GOOGLE_CLOUD_PROJECT is required")
	}

	cfg := &Config{
		Port:             envInt("PORT", 8080),
		Environment:      envStr("ENVIRONMENT", "development"),
		DatabaseURL:      dbURL,
		DatabaseMaxConns: envInt("DATABASE_MAX_CONNS", 25),

		GCPProject:             gcpProject,
		GCPRegion:              envStr("GCP_REGION", "us-east4"),
		VertexAILocation:       envStr("VERTEX_AI_LOCATION", "global"),
		VertexAIModel:          envStr("VERTEX_AI_MODEL", "gemini-3-pro-preview"),
		VertexAIFallbackModels: envStrList("VERTEX_AI_FALLBACK_MODELS", []string{"gemini-3-flash"}),
		EmbeddingLocation:      envStr("VERTEX_AI_EMBEDDING_LOCATION", envStr("GCP_REGION", "us-east4")),
		EmbeddingModel:         envStr("VERTEX_AI_EMBEDDING_MODEL", "text-embedding-004"),

		RedisAddr: envStr("REDIS_ADDR", "localhost:6379"),

		GazetteerPath: envStr("GAZETTEER_PATH", "./internal/gazetteer/data/gazetteer.yaml"),
		StopwordsPath: envStr("STOPWORDS_PATH", "./internal/gazetteer/data/stopwords.yaml"),

		FrontendURL:        envStr("FRONTEND_URL", "http://localhost:3000"),
		InternalAuthSecret: envStr("INTERNAL_AUTH_SECRET", ""),

		Snapshot: Snapshot{
			VectorDimension: envInt("EMBEDDING_DIMENSIONS", 768),

			RetrievalMaxChunks:          envInt("RETRIEVAL_MAX_CHUNKS", 5),
			RetrievalDiversityThreshold: envFloat("RETRIEVAL_DIVERSITY_THRESHOLD", 0.92),
			RetrievalEnableHybrid:       envBool("RETRIEVAL_ENABLE_HYBRID_SEARCH", true),
			RetrievalWeightVector:       envFloat("RETRIEVAL_WEIGHT_VECTOR", 0.7),
			RetrievalWeightLexical:      envFloat("RETRIEVAL_WEIGHT_LEXICAL", 0.3),

			ResponseMaxTokens:                envInt("RESPONSE_MAX_TOKENS", 2048),
			ResponseTemperature:              envFloat("RESPONSE_TEMPERATURE", 0.2),
			ResponseConfidenceThreshold:      envFloat("RESPONSE_CONFIDENCE_THRESHOLD", 0.6),
			ResponseEnableCitationValidation: envBool("RESPONSE_ENABLE_CITATION_VALIDATION", true),

			ConfidenceHighThreshold:    envFloat("CONFIDENCE_HIGH_THRESHOLD", 0.8),
			ConfidenceMediumThreshold:  envFloat("CONFIDENCE_MEDIUM_THRESHOLD", 0.6),
			ConfidenceLowThreshold:     envFloat("CONFIDENCE_LOW_THRESHOLD", 0.4),
			ConfidenceMinimumThreshold: envFloat("CONFIDENCE_MINIMUM_THRESHOLD", 0.2),
			ConfidenceWeights: ConfidenceWeights{
				Retrieval:  envFloat("CONFIDENCE_WEIGHT_RETRIEVAL", 0.35),
				Content:    envFloat("CONFIDENCE_WEIGHT_CONTENT", 0.30),
				Context:    envFloat("CONFIDENCE_WEIGHT_CONTEXT", 0.20),
				Generation: envFloat("CONFIDENCE_WEIGHT_GENERATION", 0.15),
			},

			EmbedderMaxRetries:        envInt("EMBEDDER_MAX_RETRIES", 3),
			CompletionMaxRetries:      envInt("COMPLETION_MAX_RETRIES", 3),
			CompletionMaxInFlight:     envInt("COMPLETION_MAX_IN_FLIGHT", 32),
			CompletionQueueDeadlineMS: envInt("COMPLETION_QUEUE_DEADLINE_MS", 2000),
			StorageTimeoutSeconds:     envInt("STORAGE_TIMEOUT_SECONDS", 10),
		},
	}

	if cfg.Environment != "development" && cfg.InternalAuthSecret == "" {
		return nil, fmt.Errorf("config.Load: INTERNAL_AUTH_SECRET is required in %s environment", cfg.Environment)
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envStrList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
