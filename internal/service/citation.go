package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fundvault/ragcore/internal/model"
)

// citationPattern matches "(source)" and "(source, p.N)" markers. The
// source group excludes commas and the closing paren; the page group is a
// bare positive integer, preceded by "p" or "p.".
var citationPattern = regexp.MustCompile(`\(([^(),]+?)(?:,\s*p\.?\s*(\d+))?\)`)

// chunkRefPattern matches "[chunk n]" back-references to an already cited
// retrieved chunk by its 1-based rank.
var chunkRefPattern = regexp.MustCompile(`\[chunk\s+(\d+)\]`)

// CitationExtraction is the outcome of ExtractCitations: every marker found
// in generated text, classified valid or invalid against the chunks that
// were actually in the prompt (§4.7).
type CitationExtraction struct {
	Total    int
	Valid    []model.Citation
	Invalid  []model.Citation
	Coverage float64 // valid / max(1, total)
}

// ExtractCitations scans text for citation markers and validates each
// against the chunks that were retrieved for this turn, in rank order
// (so a [chunk n] reference resolves to chunks[n-1]).
func ExtractCitations(text string, chunks []RankedChunk) CitationExtraction {
	var citations []model.Citation

	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		citations = append(citations, validateSourceCitation(m, chunks))
	}
	for _, m := range chunkRefPattern.FindAllStringSubmatch(text, -1) {
		citations = append(citations, validateChunkRefCitation(m, chunks))
	}

	result := CitationExtraction{Total: len(citations)}
	for _, c := range citations {
		if c.Valid {
			result.Valid = append(result.Valid, c)
		} else {
			result.Invalid = append(result.Invalid, c)
		}
	}

	denom := result.Total
	if denom < 1 {
		denom = 1
	}
	result.Coverage = float64(len(result.Valid)) / float64(denom)
	return result
}

// validateSourceCitation resolves a "(source[, p.N])" marker against the
// retrieved chunks' source titles and page numbers.
func validateSourceCitation(m []string, chunks []RankedChunk) model.Citation {
	source := strings.TrimSpace(m[1])
	normalizedSource := normalizeCitationText(source)

	var page *int
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err == nil {
			page = &n
		}
	}

	citation := model.Citation{Source: source, Page: page}

	var titleMatch *RankedChunk
	for i := range chunks {
		if normalizeCitationText(chunks[i].SourceTitle) == normalizedSource {
			titleMatch = &chunks[i]
			break
		}
	}
	if titleMatch == nil {
		citation.Reason = model.ReasonUnknownSource
		return citation
	}
	if page != nil {
		if titleMatch.Chunk.PageNumber == nil || *titleMatch.Chunk.PageNumber != *page {
			citation.Reason = model.ReasonWrongPage
			return citation
		}
	}

	citation.Valid = true
	citation.MatchedChunkID = titleMatch.Chunk.ID
	return citation
}

// validateChunkRefCitation resolves a "[chunk n]" marker by 1-based rank
// against the chunks actually used in the prompt.
func validateChunkRefCitation(m []string, chunks []RankedChunk) model.Citation {
	n, err := strconv.Atoi(m[1])
	citation := model.Citation{ChunkRef: &n}
	if err != nil || n < 1 || n > len(chunks) {
		citation.Reason = model.ReasonOutOfRange
		return citation
	}

	citation.Valid = true
	citation.MatchedChunkID = chunks[n-1].Chunk.ID
	return citation
}

// normalizeCitationText lower-cases and collapses whitespace so "Fund
// Offering  Memorandum" matches "fund offering memorandum".
func normalizeCitationText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
