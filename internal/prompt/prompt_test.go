package prompt

import (
	"strings"
	"testing"

	"github.com/knoguchi/rag/internal/ranker"
)

func TestBuilder_Build_IncludesSourcesInOrder(t *testing.T) {
	b := NewBuilder(8192, nil)
	candidates := []ranker.RankedResult{
		{ID: "c1", DocumentID: "d1", Content: "alpha content", Score: 0.9, Metadata: map[string]string{"title": "Doc One"}},
		{ID: "c2", DocumentID: "d2", Content: "beta content", Score: 0.7},
	}

	rendered, sources := b.Build("", "what is alpha?", candidates)

	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Index != 1 || sources[1].Index != 2 {
		t.Errorf("expected 1-indexed citation order, got %+v", sources)
	}
	if !strings.Contains(rendered, "[Source 1] Doc One") {
		t.Errorf("expected titled source header in rendered prompt, got: %s", rendered)
	}
	if !strings.Contains(rendered, "## Question") || !strings.Contains(rendered, "what is alpha?") {
		t.Errorf("expected question section in rendered prompt, got: %s", rendered)
	}
}

func TestBuilder_Build_NoCandidates(t *testing.T) {
	b := NewBuilder(8192, nil)
	rendered, sources := b.Build("", "anything?", nil)

	if len(sources) != 0 {
		t.Errorf("expected no sources, got %d", len(sources))
	}
	if !strings.Contains(rendered, "no relevant documents found") {
		t.Errorf("expected placeholder text for empty context, got: %s", rendered)
	}
}

func TestBuilder_Build_DefaultSystemPromptUsedWhenEmpty(t *testing.T) {
	b := NewBuilder(8192, nil)
	rendered, _ := b.Build("", "q", nil)

	if !strings.Contains(rendered, defaultSystemPrompt) {
		t.Errorf("expected default system prompt to be used")
	}
}

func TestBuilder_Build_RespectsTokenBudget(t *testing.T) {
	// Small budget: system prompt + query + reserved tokens should leave
	// room for only the first candidate under a char/4 approximation:
	// 400 - 1 - 1 - 200 = 198 tokens, and each candidate costs 125.
	b := NewBuilder(400, nil)
	long := strings.Repeat("word ", 100) // ~500 chars, ~125 tokens
	candidates := []ranker.RankedResult{
		{ID: "c1", Content: long},
		{ID: "c2", Content: long},
		{ID: "c3", Content: long},
	}

	_, sources := b.Build("sys", "q", candidates)

	if len(sources) == 0 {
		t.Fatal("expected the first candidate to fit within the budget")
	}
	if len(sources) == len(candidates) {
		t.Errorf("expected budget to truncate candidates, got all %d included", len(sources))
	}
}

func TestBuilder_Build_OmitsFirstCandidateWhenOverBudget(t *testing.T) {
	b := NewBuilder(1, nil) // budget collapses to 0 after reserved tokens
	candidates := []ranker.RankedResult{
		{ID: "c1", Content: strings.Repeat("x", 1000)},
	}

	_, sources := b.Build("", "q", candidates)
	if len(sources) != 0 {
		t.Fatalf("expected an over-budget first candidate to be left out, got %d sources", len(sources))
	}
}

func TestApproxCountTokens(t *testing.T) {
	if approxCountTokens("") != 0 {
		t.Errorf("expected 0 tokens for empty string")
	}
	if approxCountTokens("ab") != 1 {
		t.Errorf("expected at least 1 token for non-empty short string")
	}
	if got := approxCountTokens(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("expected 100 tokens for 400 chars, got %d", got)
	}
}
