package service

import (
	"fmt"
	"strings"

	"github.com/fundvault/ragcore/internal/model"
)

const (
	defaultMaxPromptTokens = 6000
	defaultRecentTurns     = 6
)

// systemPreamble describes the assistant's role, grounding requirement, and
// citation format every assembled prompt opens with (§4.5).
const systemPreamble = `You are a document intelligence assistant for fund operations and compliance questions.
Answer only from the numbered context chunks below. Never state a fact that isn't grounded in them.
Cite every factual claim inline as (source, p.N) using the chunk's source title and page number, or as [chunk n] to re-cite a chunk already referenced.
If the context does not contain enough information to answer, say so plainly instead of guessing.`

// AssembledPrompt is the output of PromptAssembler.Assemble.
type AssembledPrompt struct {
	SystemPrompt string
	UserPrompt   string
	UsedChunks   int // how many of the input chunks made it into the prompt
}

// PromptAssembler builds a bounded, citation-tagged prompt from retrieved
// chunks and recent conversation turns (§4.5). Deterministic given its
// inputs and configuration.
type PromptAssembler struct {
	maxPromptTokens int
	recentTurns     int
}

// NewPromptAssembler creates a PromptAssembler. maxPromptTokens <= 0 and
// recentTurns <= 0 fall back to the package defaults.
func NewPromptAssembler(maxPromptTokens, recentTurns int) *PromptAssembler {
	if maxPromptTokens <= 0 {
		maxPromptTokens = defaultMaxPromptTokens
	}
	if recentTurns <= 0 {
		recentTurns = defaultRecentTurns
	}
	return &PromptAssembler{maxPromptTokens: maxPromptTokens, recentTurns: recentTurns}
}

// Assemble builds the prompt from chunks (already in rank order), the
// session's turn history, and the current query. When the estimated token
// count exceeds the budget it drops chunks from the end of the ranked list
// first, then truncates the oldest conversation turns, and only as a last
// resort truncates the system preamble itself.
func (a *PromptAssembler) Assemble(query string, chunks []RankedChunk, turns []model.Turn) AssembledPrompt {
	recent := turns
	if len(recent) > a.recentTurns {
		recent = recent[len(recent)-a.recentTurns:]
	}

	system := systemPreamble
	numChunks := len(chunks)

	for {
		user := buildUserPrompt(chunks[:numChunks], recent, query)
		total := estimateTokens(system) + estimateTokens(user)

		if total <= a.maxPromptTokens {
			return AssembledPrompt{SystemPrompt: system, UserPrompt: user, UsedChunks: numChunks}
		}

		if numChunks > 0 {
			numChunks--
			continue
		}
		if len(recent) > 0 {
			recent = recent[1:]
			continue
		}

		system = truncateToTokenBudget(system, a.maxPromptTokens/2)
		return AssembledPrompt{
			SystemPrompt: system,
			UserPrompt:   buildUserPrompt(nil, nil, query),
			UsedChunks:   0,
		}
	}
}

// buildUserPrompt renders the chunk markers, recent turns, and query into
// the single user-role message sent to the Completion Client.
func buildUserPrompt(chunks []RankedChunk, turns []model.Turn, query string) string {
	var sb strings.Builder

	for i, c := range chunks {
		page := "?"
		if c.Chunk.PageNumber != nil {
			page = fmt.Sprintf("%d", *c.Chunk.PageNumber)
		}
		section := strings.Join(c.Chunk.SectionPath, " > ")
		sb.WriteString(fmt.Sprintf("[chunk %d] source=%q page=%s section=%q\n", i+1, c.SourceTitle, page, section))
		sb.WriteString(c.Chunk.Content)
		sb.WriteString("\n\n")
	}

	if len(turns) > 0 {
		sb.WriteString("=== RECENT CONVERSATION ===\n")
		for _, t := range turns {
			sb.WriteString(fmt.Sprintf("%s: %s\n", t.Role, t.Text))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("=== QUERY ===\n")
	sb.WriteString(query)
	return sb.String()
}

// truncateToTokenBudget trims text to approximately maxTokens, inverting
// the ceil(character_count/4) token estimate (§glossary).
func truncateToTokenBudget(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}
