package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/fundvault/ragcore/internal/model"
)

// ChunkerService splits source text into overlapping chunks of configurable
// size, classifies each chunk's content type, and scores its quality —
// the invariants the Retriever's quality filter (§4.4) relies on.
type ChunkerService struct {
	chunkSize  int     // target tokens per chunk (default 768)
	overlapPct float64 // overlap between adjacent chunks (default 0.20)
}

// NewChunkerService creates a ChunkerService with the given parameters.
func NewChunkerService(chunkSize int, overlapPct float64) *ChunkerService {
	if chunkSize <= 0 {
		chunkSize = 768
	}
	if overlapPct <= 0 || overlapPct >= 1 {
		overlapPct = 0.20
	}
	return &ChunkerService{
		chunkSize:  chunkSize,
		overlapPct: overlapPct,
	}
}

// ChunkDraft is a chunk's content and metadata before it has an ID or
// embedding — the shape the Chunker hands to the Embedder for storage.
type ChunkDraft struct {
	SourceID     string
	ChunkIndex   int
	Heading      string
	SectionPath  []string
	PageNumber   *int
	Content      string
	ContentType  model.ContentType
	TokenCount   int
	CharCount    int
	WordCount    int
	QualityScore float64
	ContentHash  string
}

// Chunk splits text into overlapping chunks and returns them with metadata.
func (s *ChunkerService) Chunk(ctx context.Context, text string, sourceID string) ([]ChunkDraft, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("service.Chunk: text is empty")
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("service.Chunk: no content after splitting")
	}

	segments := s.buildSegments(paragraphs)
	overlapped := s.applyOverlap(segments)

	drafts := make([]ChunkDraft, 0, len(overlapped))
	for i, seg := range overlapped {
		content := strings.TrimSpace(seg.content)
		if content == "" {
			continue
		}

		page := seg.pageNumber
		var sectionPath []string
		if seg.sectionTitle != "" {
			sectionPath = []string{seg.sectionTitle}
		}
		contentType := classifyContentType(content)

		drafts = append(drafts, ChunkDraft{
			SourceID:    sourceID,
			ChunkIndex:  i,
			Heading:     seg.sectionTitle,
			SectionPath: sectionPath,
			PageNumber:  &page,
			Content:     content,
			ContentType: contentType,
			TokenCount:  estimateTokens(content),
			CharCount:   len(content),
			WordCount:   wordCount(content),
			ContentHash: sha256Hash(content),
		})
	}

	for i := range drafts {
		drafts[i].ChunkIndex = i
		drafts[i].QualityScore = scoreQuality(drafts[i])
	}

	return drafts, nil
}

type segment struct {
	content      string
	sectionTitle string
	pageNumber   int
}

// buildSegments merges small paragraphs and splits large ones to fit chunkSize.
func (s *ChunkerService) buildSegments(paragraphs []string) []segment {
	var segments []segment
	var current strings.Builder
	currentSection := ""
	currentPage := 1
	pageBreakCount := 0

	for _, para := range paragraphs {
		if strings.Contains(para, "\f") {
			pageBreakCount++
		}

		if title := extractSectionTitle(para); title != "" {
			currentSection = title
		}

		paraTokens := estimateTokens(para)
		currentTokens := estimateTokens(current.String())

		if currentTokens > 0 && currentTokens+paraTokens > s.chunkSize {
			segments = append(segments, segment{
				content:      current.String(),
				sectionTitle: currentSection,
				pageNumber:   currentPage,
			})
			current.Reset()
			currentPage = 1 + pageBreakCount
		}

		if paraTokens > s.chunkSize {
			if current.Len() > 0 {
				segments = append(segments, segment{
					content:      current.String(),
					sectionTitle: currentSection,
					pageNumber:   currentPage,
				})
				current.Reset()
			}
			for _, sub := range splitLargeParagraph(para, s.chunkSize) {
				segments = append(segments, segment{
					content:      sub,
					sectionTitle: currentSection,
					pageNumber:   1 + pageBreakCount,
				})
			}
			currentPage = 1 + pageBreakCount
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}

	if current.Len() > 0 {
		segments = append(segments, segment{
			content:      current.String(),
			sectionTitle: currentSection,
			pageNumber:   1 + pageBreakCount,
		})
	}

	return segments
}

// applyOverlap duplicates the last overlapPct of each chunk as prefix of the next.
func (s *ChunkerService) applyOverlap(segments []segment) []segment {
	if len(segments) <= 1 {
		return segments
	}

	result := make([]segment, len(segments))
	result[0] = segments[0]

	for i := 1; i < len(segments); i++ {
		prevContent := segments[i-1].content
		overlapWords := int(math.Ceil(float64(wordCount(prevContent)) * s.overlapPct))
		tail := lastNWords(prevContent, overlapWords)

		if tail != "" {
			result[i] = segment{
				content:      tail + "\n\n" + segments[i].content,
				sectionTitle: segments[i].sectionTitle,
				pageNumber:   segments[i].pageNumber,
			}
		} else {
			result[i] = segments[i]
		}
	}

	return result
}

// splitParagraphs splits text on double newlines into paragraphs,
// filtering out empty/whitespace-only entries.
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	var result []string
	for _, p := range raw {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// splitLargeParagraph splits a paragraph that exceeds chunkSize into
// sentence-boundary-aware sub-chunks.
func splitLargeParagraph(para string, chunkSize int) []string {
	sentences := splitSentences(para)
	var chunks []string
	var current strings.Builder

	for _, sent := range sentences {
		sentTokens := estimateTokens(sent)
		currentTokens := estimateTokens(current.String())

		if currentTokens > 0 && currentTokens+sentTokens > chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	if len(chunks) == 0 && len(para) > 0 {
		chunks = splitByWords(para, chunkSize)
	}

	return chunks
}

// splitSentences does a basic sentence split on ". ", "! ", "? ".
func splitSentences(text string) []string {
	var sentences []string
	current := strings.Builder{}

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}
	return sentences
}

// splitByWords splits text into chunks of approximately chunkSize tokens by word count.
func splitByWords(text string, chunkSize int) []string {
	words := strings.Fields(text)
	wordsPerChunk := int(float64(chunkSize) / 1.3)
	if wordsPerChunk <= 0 {
		wordsPerChunk = 1
	}

	var chunks []string
	for i := 0; i < len(words); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// extractSectionTitle detects markdown-style headers (# Title, ## Section, etc.)
func extractSectionTitle(para string) string {
	trimmed := strings.TrimSpace(para)
	if strings.HasPrefix(trimmed, "#") {
		title := strings.TrimLeft(trimmed, "# ")
		if title != "" {
			return title
		}
	}
	return ""
}

// estimateTokens approximates token count as ceil(character_count/4), the
// conversion the glossary fixes for this system.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / 4))
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// lastNWords returns the last n words of text.
func lastNWords(text string, n int) string {
	words := strings.Fields(text)
	if n >= len(words) {
		return text
	}
	return strings.Join(words[len(words)-n:], " ")
}

func sha256Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}

var (
	tableRowPattern     = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)
	listItemPattern     = regexp.MustCompile(`(?m)^\s*([-*•]|\d+[.)])\s+`)
	codeFencePattern    = regexp.MustCompile("```")
	definitionPattern   = regexp.MustCompile(`(?mi)^\s*[A-Za-z][\w \-/]{0,60}\s+(means|is defined as|refers to)\s`)
	procedureStepPattern = regexp.MustCompile(`(?mi)^\s*(step\s*\d+[.:)]?|\d+\.)\s`)
)

// classifyContentType applies a small ordered rule list to guess a chunk's
// structural shape (§3 Chunk.contentType). First match wins.
func classifyContentType(content string) model.ContentType {
	switch {
	case codeFencePattern.MatchString(content):
		return model.ContentCode
	case len(tableRowPattern.FindAllString(content, -1)) >= 2:
		return model.ContentTable
	case definitionPattern.MatchString(content):
		return model.ContentDefinition
	case procedureStepPattern.MatchString(content):
		return model.ContentProcedure
	case len(listItemPattern.FindAllString(content, -1)) >= 2:
		return model.ContentList
	default:
		return model.ContentText
	}
}

// scoreQuality produces a heuristic [0,1] quality score from a chunk's
// length and token density, used by the Retriever's quality filter (§4.4).
// Penalizes chunks far outside the target token range and chunks with an
// unusually low word-to-character ratio (boilerplate/whitespace noise).
func scoreQuality(d ChunkDraft) float64 {
	score := 1.0

	switch {
	case d.TokenCount < model.DefaultMinTokens:
		score -= 0.4 * (1 - float64(d.TokenCount)/float64(model.DefaultMinTokens))
	case d.TokenCount > model.DefaultMaxTokens:
		over := float64(d.TokenCount-model.DefaultMaxTokens) / float64(model.DefaultMaxTokens)
		if over > 1 {
			over = 1
		}
		score -= 0.3 * over
	}

	if d.CharCount > 0 {
		density := float64(d.WordCount) / (float64(d.CharCount) / 5.0)
		if density < 0.5 {
			score -= 0.3
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
