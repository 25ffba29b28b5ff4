package repository

import (
	"strings"
	"testing"

	"github.com/fundvault/ragcore/internal/model"
	"github.com/fundvault/ragcore/internal/service"
)

func TestAppendFilterClausesSourceIDs(t *testing.T) {
	args, query := appendFilterClauses([]any{"q", 0.3}, "SELECT 1", service.RetrievalFilter{
		SourceIDs: []string{"a", "b"},
	})
	if !strings.Contains(query, "c.source_id = ANY($3)") {
		t.Errorf("query = %q, want source_id clause at $3", query)
	}
	if len(args) != 3 {
		t.Fatalf("args len = %d, want 3", len(args))
	}
}

func TestAppendFilterClausesContentTypes(t *testing.T) {
	args, query := appendFilterClauses([]any{"q", 0.3}, "SELECT 1", service.RetrievalFilter{
		ContentTypes: []model.ContentType{model.ContentTable, model.ContentDefinition},
	})
	if !strings.Contains(query, "c.content_type = ANY($3)") {
		t.Errorf("query = %q, want content_type clause at $3", query)
	}
	if len(args) != 3 {
		t.Fatalf("args len = %d, want 3", len(args))
	}
}

func TestAppendFilterClausesBothFilters(t *testing.T) {
	args, query := appendFilterClauses([]any{"q", 0.3}, "SELECT 1", service.RetrievalFilter{
		SourceIDs:    []string{"a"},
		ContentTypes: []model.ContentType{model.ContentText},
	})
	if !strings.Contains(query, "$3") || !strings.Contains(query, "$4") {
		t.Errorf("query = %q, want both $3 and $4 clauses", query)
	}
	if len(args) != 4 {
		t.Fatalf("args len = %d, want 4", len(args))
	}
}

func TestAppendFilterClausesNoFilters(t *testing.T) {
	args, query := appendFilterClauses([]any{"q", 0.3}, "SELECT 1", service.RetrievalFilter{})
	if query != "SELECT 1" {
		t.Errorf("query = %q, want unchanged", query)
	}
	if len(args) != 2 {
		t.Fatalf("args len = %d, want 2", len(args))
	}
}
