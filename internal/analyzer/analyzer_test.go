package analyzer

import (
	"testing"

	"github.com/fundvault/ragcore/internal/model"
)

// These tests load no gazetteer: every case passes nil, so entity
// extraction is not exercised and the cases cover the question-form,
// intent and complexity logic.

func TestAnalyzeDetectsQuestionForm(t *testing.T) {
	got := Analyze("What is the management fee?", nil)
	if !got.IsQuestion {
		t.Error("IsQuestion = false, want true")
	}
}

func TestAnalyzeNonQuestion(t *testing.T) {
	got := Analyze("management fee schedule", nil)
	if got.IsQuestion {
		t.Error("IsQuestion = true, want false")
	}
}

func TestAnalyzeComplexityBuckets(t *testing.T) {
	cases := []struct {
		query string
		want  model.Complexity
	}{
		{"what is the fee", model.ComplexitySimple},
		{"what is the management fee for the fund and when is it charged to investors please", model.ComplexityModerate},
		{"what is the management fee for the fund and when is it charged to investors and how does it compare across share classes in detail please explain thoroughly", model.ComplexityComplex},
	}
	for _, tc := range cases {
		got := Analyze(tc.query, nil)
		if got.Complexity != tc.want {
			t.Errorf("Analyze(%q).Complexity = %v, want %v (word count %d)", tc.query, got.Complexity, tc.want, got.WordCount)
		}
	}
}

func TestAnalyzeIntentClassification(t *testing.T) {
	cases := []struct {
		query string
		want  model.Intent
	}{
		{"what is a capital call", model.IntentDefinition},
		{"how to submit a capital call notice", model.IntentProcedure},
		{"compare class A versus class B fees", model.IntentComparison},
		{"the portal login is not working", model.IntentTroubleshooting},
		{"tell me about the fund performance", model.IntentGeneral},
	}
	for _, tc := range cases {
		got := Analyze(tc.query, nil)
		if got.Intent != tc.want {
			t.Errorf("Analyze(%q).Intent = %v, want %v", tc.query, got.Intent, tc.want)
		}
	}
}

func TestAnalyzeTokenizesOnPunctuation(t *testing.T) {
	got := Analyze("fee's due: 2%, quarterly!", nil)
	want := []string{"fee", "s", "due", "2", "quarterly"}
	if len(got.Tokens) != len(want) {
		t.Fatalf("Tokens = %v, want %v", got.Tokens, want)
	}
	for i, tok := range want {
		if got.Tokens[i] != tok {
			t.Errorf("Tokens[%d] = %q, want %q", i, got.Tokens[i], tok)
		}
	}
}
