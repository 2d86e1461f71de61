// Package metrics implements the LLM-judge and heuristic quality scorers
// that evaluate each query pipeline execution: faithfulness, relevance,
// hallucination rate, context precision, and context recall.
package metrics

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/knoguchi/rag/internal/llm"
	"github.com/knoguchi/rag/internal/prompt"
)

// defaultScore is used whenever a judge's response cannot be parsed into a
// usable number.
const defaultScore = 0.5

// Scores holds the five quality metrics computed for one query.
// ContextRecall is nil unless a ground truth was supplied and lightweight
// evaluation was not requested.
type Scores struct {
	Faithfulness      float64
	Relevance         float64
	HallucinationRate float64
	ContextPrecision  float64
	ContextRecall     *float64
}

// Scorer evaluates one query/answer/context triple.
type Scorer struct {
	llmClient llm.LLM
	model     string
}

// NewScorer creates a Scorer that judges with the given LLM and model.
func NewScorer(llmClient llm.LLM, model string) *Scorer {
	return &Scorer{llmClient: llmClient, model: model}
}

// EvalParams carries the optional inputs that vary which scorers Evaluate
// runs and how they're computed.
type EvalParams struct {
	// RelevantIndices names the 1-indexed sources the caller has explicitly
	// marked as ground-truth relevant for context precision; nil falls back
	// to a token-overlap heuristic.
	RelevantIndices []int
	// GroundTruth is the expected answer text. Context recall is only
	// computed when this is non-empty.
	GroundTruth string
	// Lightweight, when true, skips hallucination rate, context precision,
	// and context recall, computing only faithfulness and relevance.
	Lightweight bool
}

// Evaluate runs the judge-based and heuristic scorers for one query.
func (s *Scorer) Evaluate(ctx context.Context, query, answer string, sources []prompt.Source, params EvalParams) Scores {
	scores := Scores{
		Faithfulness: s.judge(ctx, faithfulnessPrompt(query, answer, sources), func() float64 {
			return heuristicFaithfulness(answer, sources)
		}),
		Relevance: s.judge(ctx, relevancePrompt(query, answer), func() float64 {
			return heuristicRelevance(query, answer)
		}),
	}

	if params.Lightweight {
		return scores
	}

	scores.HallucinationRate = s.judge(ctx, hallucinationPrompt(answer, sources), func() float64 {
		return heuristicHallucination(answer, sources)
	})
	scores.ContextPrecision = contextPrecision(query, sources, params.RelevantIndices)

	if params.GroundTruth != "" {
		recall := s.judge(ctx, contextRecallPrompt(query, sources, params.GroundTruth), nil)
		scores.ContextRecall = &recall
	}

	return scores
}

// judge sends a rubric prompt to the LLM and parses the first numeric token
// of its reply as a score in [0,1]. On a call failure it falls back to
// fallback (a deterministic heuristic), when one is given; on a genuine
// parse failure it returns defaultScore regardless, since the judge did
// answer but produced nothing usable.
func (s *Scorer) judge(ctx context.Context, rubricPrompt string, fallback func() float64) float64 {
	resp, err := s.llmClient.Generate(ctx, rubricPrompt, llm.GenerateOptions{
		Model:       s.model,
		Temperature: 0,
		MaxTokens:   32,
	})
	if err != nil {
		if fallback != nil {
			return fallback()
		}
		return defaultScore
	}

	score, ok := parseScore(resp)
	if !ok {
		return defaultScore
	}
	return score
}

// numericToken matches a signed integer or decimal number.
var numericToken = regexp.MustCompile(`-?\d+(?:\.\d+)?|-?\.\d+`)

// parseScore strips markdown code fences, then scans for the first
// numeric token in the response and clamps it to [0,1].
func parseScore(response string) (float64, bool) {
	response = stripCodeFences(response)

	token := numericToken.FindString(response)
	if token == "" {
		return 0, false
	}

	val, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}

	if val < 0 {
		val = 0
	}
	if val > 1 {
		val = 1
	}
	return val, true
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```"); idx != -1 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "\n")
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return s
}

func faithfulnessPrompt(query, answer string, sources []prompt.Source) string {
	var b strings.Builder
	b.WriteString("You are judging whether an answer is faithful to its source context: every claim it ")
	b.WriteString("makes must be supported by the context, with no invented facts.\n\n")
	b.WriteString("Context:\n")
	writeSources(&b, sources)
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\nAnswer: ")
	b.WriteString(answer)
	b.WriteString("\n\nScore the answer's faithfulness to the context from 0.0 (fabricated) to 1.0 (fully supported). Output only the number.")
	return b.String()
}

func relevancePrompt(query, answer string) string {
	return fmt.Sprintf(
		"Score how directly this answer addresses the question, from 0.0 (off-topic) to 1.0 (directly answers it). "+
			"Output only the number.\n\nQuestion: %s\nAnswer: %s", query, answer)
}

func hallucinationPrompt(answer string, sources []prompt.Source) string {
	var b strings.Builder
	b.WriteString("Score the fraction of claims in the answer below that are NOT supported by the context, ")
	b.WriteString("from 0.0 (no unsupported claims) to 1.0 (entirely unsupported). Output only the number.\n\n")
	b.WriteString("Context:\n")
	writeSources(&b, sources)
	b.WriteString("\nAnswer: ")
	b.WriteString(answer)
	return b.String()
}

func contextRecallPrompt(query string, sources []prompt.Source, groundTruth string) string {
	var b strings.Builder
	b.WriteString("Score what fraction of the ground truth answer below can be attributed to the retrieved ")
	b.WriteString("context, from 0.0 (none of it is present) to 1.0 (all of it is present). Output only the number.\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nGround truth answer: ")
	b.WriteString(groundTruth)
	b.WriteString("\n\nRetrieved context:\n")
	writeSources(&b, sources)
	return b.String()
}

// heuristicFaithfulness estimates faithfulness as the fraction of the
// answer's words that also appear somewhere in the retrieved context.
func heuristicFaithfulness(answer string, sources []prompt.Source) float64 {
	if len(sources) == 0 {
		return 0
	}
	answerWords := wordSet(answer)
	if len(answerWords) == 0 {
		return 0
	}
	contextWords := wordSet(sourcesText(sources))
	overlap := 0
	for w := range answerWords {
		if _, ok := contextWords[w]; ok {
			overlap++
		}
	}
	ratio := float64(overlap) / float64(len(answerWords))
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// heuristicRelevance estimates relevance as the fraction of the query's
// words that also appear in the answer.
func heuristicRelevance(query, answer string) float64 {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return 0
	}
	answerWords := wordSet(answer)
	overlap := 0
	for w := range queryWords {
		if _, ok := answerWords[w]; ok {
			overlap++
		}
	}
	ratio := float64(overlap) / float64(len(queryWords))
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// heuristicHallucination derives a hallucination rate as the complement of
// heuristicFaithfulness: the less an answer overlaps the context, the more
// likely it is fabricated.
func heuristicHallucination(answer string, sources []prompt.Source) float64 {
	rate := 1 - heuristicFaithfulness(answer, sources)
	if rate < 0 {
		rate = 0
	}
	return rate
}

func sourcesText(sources []prompt.Source) string {
	var b strings.Builder
	for _, s := range sources {
		b.WriteString(s.Content)
		b.WriteString(" ")
	}
	return b.String()
}

// wordSet lowercases and whitespace-splits s into a set, matching the
// heuristic's word-overlap granularity (no stopword or length filtering,
// unlike tokenSet which backs contextPrecision).
func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func writeSources(b *strings.Builder, sources []prompt.Source) {
	for _, s := range sources {
		fmt.Fprintf(b, "[Source %d] %s\n", s.Index, s.Content)
	}
}

// contextPrecision estimates the fraction of retrieved sources that are
// actually relevant to the query. If relevantIndices is provided, it is
// used directly: precision = |relevant ∩ retrieved| / |retrieved|.
// Otherwise a token-overlap heuristic between the query and each source's
// content stands in for relevance judgement.
func contextPrecision(query string, sources []prompt.Source, relevantIndices []int) float64 {
	if len(sources) == 0 {
		return 0
	}

	if relevantIndices != nil {
		relevant := make(map[int]struct{}, len(relevantIndices))
		for _, idx := range relevantIndices {
			relevant[idx] = struct{}{}
		}
		hits := 0
		for _, s := range sources {
			if _, ok := relevant[s.Index]; ok {
				hits++
			}
		}
		return float64(hits) / float64(len(sources))
	}

	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return 0
	}

	threshold := 0.2 * float64(len(queryTokens))
	if threshold < 1 {
		threshold = 1
	}

	relevantCount := 0
	for _, s := range sources {
		if float64(overlapCount(queryTokens, tokenSet(s.Content))) >= threshold {
			relevantCount++
		}
	}
	return float64(relevantCount) / float64(len(sources))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()[]{}=<>")
		if len(f) > 2 {
			set[f] = struct{}{}
		}
	}
	return set
}

func overlapCount(query, doc map[string]struct{}) int {
	hits := 0
	for tok := range query {
		if _, ok := doc[tok]; ok {
			hits++
		}
	}
	return hits
}
