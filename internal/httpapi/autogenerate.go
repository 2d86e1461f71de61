package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/knoguchi/rag/internal/llm"
	"github.com/knoguchi/rag/internal/store"
)

type generatedQuestionList struct {
	Questions []string `json:"questions"`
}

// generateQuestions asks the configured LLM for a list of representative
// evaluation questions for a collection, optionally seeded by a sample
// query. The LLM is instructed to answer with a JSON object holding a
// "questions" array; on parse failure a single-question test set built
// from the sample query is returned instead of failing outright, or an
// error when no sample query was given.
func (h *handlers) generateQuestions(ctx context.Context, collection, sampleQuery string, count int) ([]store.TestQuestion, error) {
	var sb strings.Builder
	sb.WriteString("You are helping build an evaluation test set for a document collection named \"")
	sb.WriteString(collection)
	sb.WriteString("\".\n")
	if sampleQuery != "" {
		sb.WriteString("Here is an example of a relevant question: ")
		sb.WriteString(sampleQuery)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Propose %d additional distinct questions a user might ask about this collection.\n", count)
	sb.WriteString(`Output ONLY valid JSON in this exact format: {"questions": ["...", "..."]}`)

	response, err := h.deps.LLM.Generate(ctx, sb.String(), llm.GenerateOptions{
		Model:       h.deps.Config.OllamaLLMModel,
		Temperature: 0.7,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, err
	}

	parsed, ok := parseQuestionList(response)
	if !ok || len(parsed.Questions) == 0 {
		if sampleQuery == "" {
			return nil, fmt.Errorf("could not parse generated questions")
		}
		return []store.TestQuestion{{Question: sampleQuery}}, nil
	}

	questions := make([]store.TestQuestion, 0, len(parsed.Questions)+1)
	if sampleQuery != "" {
		questions = append(questions, store.TestQuestion{Question: sampleQuery})
	}
	for _, q := range parsed.Questions {
		questions = append(questions, store.TestQuestion{Question: q})
	}
	return questions, nil
}

func parseQuestionList(response string) (generatedQuestionList, bool) {
	response = strings.TrimSpace(response)
	if idx := strings.Index(response, "```"); idx != -1 {
		rest := response[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end != -1 {
			response = strings.TrimSpace(rest[:end])
		}
	}

	var parsed generatedQuestionList
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return generatedQuestionList{}, false
	}
	return parsed, true
}
