// Package prompt builds the system+user prompt sent to the LLM from a
// ranked list of retrieved chunks, packing as many chunks as fit within a
// token budget before the prompt is handed to the generation call.
package prompt

import (
	"strconv"
	"strings"

	"github.com/knoguchi/rag/internal/ranker"
)

// reservedTokens accounts for section headers and the answer instruction
// that aren't measured chunk-by-chunk.
const reservedTokens = 200

const defaultSystemPrompt = "You are a helpful assistant that answers questions using only the provided context documents. " +
	"If the context does not contain the answer, say so instead of guessing."

// Source is one chunk included in a built prompt, numbered as it was cited.
type Source struct {
	Index      int     `json:"index"`
	ChunkID    string   `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// CountTokens estimates the number of tokens in a string.
type CountTokens func(string) int

// approxCountTokens is the fallback token estimator: roughly 4 characters
// per token, the common rule of thumb for English text under BPE-style
// tokenizers when no real tokenizer is wired in.
func approxCountTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	n := len(s) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// Builder constructs RAG prompts bounded by a token budget.
type Builder struct {
	maxContextTokens int
	countTokens      CountTokens
}

// NewBuilder creates a Builder. If countTokens is nil, a character-based
// approximation is used.
func NewBuilder(maxContextTokens int, countTokens CountTokens) *Builder {
	if countTokens == nil {
		countTokens = approxCountTokens
	}
	return &Builder{maxContextTokens: maxContextTokens, countTokens: countTokens}
}

// Build packs as many of the top-ranked candidates as fit within the token
// budget, then renders the full prompt. Candidates are assumed to already
// be sorted best-first (as returned by ranker.Ranker.Search). It returns
// the rendered prompt and the list of sources actually included, in
// citation order.
func (b *Builder) Build(systemPrompt, query string, candidates []ranker.RankedResult) (string, []Source) {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	budget := b.maxContextTokens - b.countTokens(systemPrompt) - b.countTokens(query) - reservedTokens
	if budget < 0 {
		budget = 0
	}

	sources := make([]Source, 0, len(candidates))
	used := 0
	for _, c := range candidates {
		cost := b.countTokens(c.Content)
		if used+cost > budget {
			break
		}
		sources = append(sources, Source{
			Index:      len(sources) + 1,
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Title:      c.Metadata["title"],
			Content:    c.Content,
			Score:      c.Score,
		})
		used += cost
	}

	return render(systemPrompt, query, sources), sources
}

func render(systemPrompt, query string, sources []Source) string {
	var b strings.Builder

	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	b.WriteString("## Context Documents\n")
	if len(sources) == 0 {
		b.WriteString("(no relevant documents found)\n")
	}
	for _, s := range sources {
		b.WriteString("[Source ")
		b.WriteString(strconv.Itoa(s.Index))
		b.WriteString("]")
		if s.Title != "" {
			b.WriteString(" ")
			b.WriteString(s.Title)
		}
		b.WriteString("\n")
		b.WriteString(s.Content)
		b.WriteString("\n\n")
	}

	b.WriteString("## Question\n")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString("## Answer (cite sources as [Source N])\n")

	return b.String()
}
