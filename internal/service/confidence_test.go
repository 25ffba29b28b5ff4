package service

import (
	"testing"

	"github.com/fundvault/ragcore/internal/config"
	"github.com/fundvault/ragcore/internal/model"
)

func testWeights() config.ConfidenceWeights {
	return config.ConfidenceWeights{Retrieval: 0.35, Content: 0.30, Context: 0.20, Generation: 0.15}
}

func testSnapshot() config.Snapshot {
	return config.Snapshot{
		VectorDimension: 768,

		RetrievalMaxChunks:          5,
		RetrievalDiversityThreshold: 0.92,
		RetrievalWeightVector:       0.7,
		RetrievalWeightLexical:      0.3,

		ResponseMaxTokens:                2048,
		ResponseTemperature:              0.2,
		ResponseConfidenceThreshold:      0.6,
		ResponseEnableCitationValidation: true,

		ConfidenceWeights:          testWeights(),
		ConfidenceHighThreshold:    0.8,
		ConfidenceMediumThreshold:  0.6,
		ConfidenceLowThreshold:     0.4,
		ConfidenceMinimumThreshold: 0.2,

		CompletionMaxInFlight: 32,
	}
}

func TestAssessNoChunksDetectsNoRelevantSources(t *testing.T) {
	mgr := NewConfidenceManager(testSnapshot())

	assessment := mgr.Assess(ConfidenceInputs{
		RetrievedChunks: nil,
		Analysis:        model.QueryAnalysis{IsQuestion: true, WordCount: 5},
		ResponseText:    "",
		TopK:            5,
	})

	found := false
	for _, iss := range assessment.Issues {
		if iss == model.IssueNoRelevantSources {
			found = true
		}
	}
	if !found {
		t.Errorf("Issues = %v, want to include no_relevant_sources", assessment.Issues)
	}
	if assessment.Retrieval != 0 {
		t.Errorf("Retrieval = %f, want 0", assessment.Retrieval)
	}
}

func TestAssessHighQualityChunksYieldHighLevel(t *testing.T) {
	mgr := NewConfidenceManager(testSnapshot())

	chunks := []RankedChunk{
		{Chunk: model.Chunk{SourceID: "s1", QualityScore: 0.9}, FusedScore: 0.95},
		{Chunk: model.Chunk{SourceID: "s2", QualityScore: 0.85}, FusedScore: 0.9},
		{Chunk: model.Chunk{SourceID: "s3", QualityScore: 0.8}, FusedScore: 0.85},
	}
	citations := []model.Citation{
		{Source: "s1", Valid: true, MatchedChunkID: "c1"},
		{Source: "s2", Valid: true, MatchedChunkID: "c2"},
	}
	responseText := "The fund charges a 2% management fee. Therefore, investors should account for it. " +
		"This applies across all share classes and is disclosed in the offering memorandum annually."

	assessment := mgr.Assess(ConfidenceInputs{
		RetrievedChunks: chunks,
		Analysis: model.QueryAnalysis{
			IsQuestion: true,
			Intent:     model.IntentDefinition,
			Entities:   []string{"management fee"},
			Keywords:   []string{"fee", "fund"},
			WordCount:  6,
		},
		HasPriorTurns: true,
		ResponseText:  responseText,
		Citations:     citations,
		TopK:          3,
		FinishReason:  "stop",
		ModelUsed:     "gemini-3-pro-preview",
		TokensUsed:    200,
		MaxTokens:     2048,
	})

	if assessment.Overall <= 0.6 {
		t.Errorf("Overall = %f, want > 0.6 for a strong input set", assessment.Overall)
	}
	if assessment.Level != model.LevelHigh && assessment.Level != model.LevelMedium {
		t.Errorf("Level = %v, want high or medium", assessment.Level)
	}
}

func TestAssessPresetIssuePrepended(t *testing.T) {
	mgr := NewConfidenceManager(testSnapshot())

	assessment := mgr.Assess(ConfidenceInputs{
		PresetIssue: model.IssueGenerationError,
		TopK:        5,
	})

	if len(assessment.Issues) == 0 || assessment.Issues[0] != model.IssueGenerationError {
		t.Errorf("Issues = %v, want generation_error first", assessment.Issues)
	}
}

func TestScoreCoherencePenalizesRepetition(t *testing.T) {
	repetitive := "fund fund fund fund fund fund fund fund fund fund"
	varied := "The fund charges a management fee. Therefore investors should plan accordingly."

	if scoreCoherence(repetitive) >= scoreCoherence(varied) {
		t.Errorf("repetitive text scored %f, varied text scored %f; want repetitive lower",
			scoreCoherence(repetitive), scoreCoherence(varied))
	}
}

func TestClassifyLevels(t *testing.T) {
	mgr := NewConfidenceManager(testSnapshot())
	cases := []struct {
		overall float64
		want    model.ConfidenceLevel
	}{
		{0.9, model.LevelHigh},
		{0.7, model.LevelMedium},
		{0.5, model.LevelLow},
		{0.1, model.LevelVeryLow},
	}
	for _, tc := range cases {
		if got := mgr.classify(tc.overall); got != tc.want {
			t.Errorf("classify(%f) = %v, want %v", tc.overall, got, tc.want)
		}
	}
}
