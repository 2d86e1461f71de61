package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/knoguchi/rag/internal/llm"
	"github.com/knoguchi/rag/internal/prompt"
)

type stubJudgeLLM struct {
	response string
	err      error
}

func (s *stubJudgeLLM) Generate(ctx context.Context, p string, opts llm.GenerateOptions) (string, error) {
	return s.response, s.err
}

func (s *stubJudgeLLM) GenerateStream(ctx context.Context, p string, opts llm.GenerateOptions) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

func TestParseScore_PlainNumber(t *testing.T) {
	score, ok := parseScore("0.8")
	if !ok || score != 0.8 {
		t.Errorf("expected 0.8, got %v ok=%v", score, ok)
	}
}

func TestParseScore_WithinMarkdownFence(t *testing.T) {
	score, ok := parseScore("```json\n0.9\n```")
	if !ok || score != 0.9 {
		t.Errorf("expected 0.9, got %v ok=%v", score, ok)
	}
}

func TestParseScore_ClampsTenScaleAnswerToOne(t *testing.T) {
	score, ok := parseScore("8 out of 10")
	if !ok || score != 1 {
		t.Errorf("expected 1 after clamping, got %v ok=%v", score, ok)
	}
}

func TestParseScore_ClampsHundredScaleAnswerToOne(t *testing.T) {
	score, ok := parseScore("85")
	if !ok || score != 1 {
		t.Errorf("expected 1 after clamping, got %v ok=%v", score, ok)
	}
}

func TestParseScore_NoDigits(t *testing.T) {
	_, ok := parseScore("I cannot determine a score")
	if ok {
		t.Errorf("expected parse failure for non-numeric response")
	}
}

func TestParseScore_NegativeClampedToZero(t *testing.T) {
	score, ok := parseScore("-5")
	if !ok || score != 0 {
		t.Errorf("expected 0 after clamping negative, got %v ok=%v", score, ok)
	}
}

func TestContextPrecision_WithGroundTruth(t *testing.T) {
	sources := []prompt.Source{{Index: 1}, {Index: 2}, {Index: 3}}
	precision := contextPrecision("q", sources, []int{1, 3})
	if precision != 2.0/3.0 {
		t.Errorf("expected 2/3, got %f", precision)
	}
}

func TestContextPrecision_HeuristicFallback(t *testing.T) {
	sources := []prompt.Source{
		{Index: 1, Content: "the golang concurrency model uses goroutines"},
		{Index: 2, Content: "unrelated cooking recipe for pasta"},
	}
	precision := contextPrecision("golang concurrency goroutines", sources, nil)
	if precision != 0.5 {
		t.Errorf("expected 0.5, got %f", precision)
	}
}

// With 5 query terms the threshold becomes max(1, 0.2*5) = 1, so a single
// shared token is still enough - this pins the formula down, since a naive
// "any overlap counts" reading and the max(1, 0.2*n) formula happen to
// agree up to n=5 but diverge above it.
func TestContextPrecision_HeuristicRequiresProportionalOverlapForLongQueries(t *testing.T) {
	sources := []prompt.Source{
		// 9 query terms ("do" and "go" are too short to count), threshold =
		// max(1, 0.2*9) = 1.8. Only 1 shared term.
		{Index: 1, Content: "goroutines are cheap"},
	}
	precision := contextPrecision("how do go channels goroutines select context cancel wait group sync", sources, nil)
	if precision != 0 {
		t.Errorf("expected chunk below the proportional overlap threshold to be excluded, got %f", precision)
	}
}

func TestContextPrecision_EmptySources(t *testing.T) {
	if p := contextPrecision("q", nil, nil); p != 0 {
		t.Errorf("expected 0 for no sources, got %f", p)
	}
}

func TestHeuristicFaithfulness_FullOverlapScoresOne(t *testing.T) {
	sources := []prompt.Source{{Content: "go uses goroutines for concurrency"}}
	score := heuristicFaithfulness("go uses goroutines", sources)
	if score != 1 {
		t.Errorf("expected 1, got %f", score)
	}
}

func TestHeuristicFaithfulness_NoContextScoresZero(t *testing.T) {
	if score := heuristicFaithfulness("anything", nil); score != 0 {
		t.Errorf("expected 0 with no context, got %f", score)
	}
}

func TestHeuristicRelevance_PartialOverlap(t *testing.T) {
	score := heuristicRelevance("what is go concurrency", "go concurrency uses goroutines")
	if score != 0.5 {
		t.Errorf("expected 0.5 (2 of 4 query words echoed), got %f", score)
	}
}

func TestHeuristicHallucination_IsComplementOfFaithfulness(t *testing.T) {
	sources := []prompt.Source{{Content: "completely unrelated text"}}
	score := heuristicHallucination("go uses goroutines", sources)
	if score != 1 {
		t.Errorf("expected 1 (no overlap with context), got %f", score)
	}
}

func TestJudge_CallFailureFallsBackToHeuristicNotFlatDefault(t *testing.T) {
	s := NewScorer(&stubJudgeLLM{err: errors.New("provider down")}, "test-model")
	score := s.judge(context.Background(), "irrelevant prompt", func() float64 { return 0.9 })
	if score != 0.9 {
		t.Errorf("expected heuristic fallback 0.9 on call failure, got %f", score)
	}
}

func TestJudge_ParseFailureUsesFlatDefaultEvenWithFallback(t *testing.T) {
	s := NewScorer(&stubJudgeLLM{response: "I cannot decide"}, "test-model")
	score := s.judge(context.Background(), "irrelevant prompt", func() float64 { return 0.9 })
	if score != defaultScore {
		t.Errorf("expected flat default %f on unparseable response, got %f", defaultScore, score)
	}
}

func TestEvaluate_LightweightSkipsHallucinationPrecisionAndRecall(t *testing.T) {
	s := NewScorer(&stubJudgeLLM{response: "0.8"}, "test-model")
	sources := []prompt.Source{{Index: 1, Content: "go is a language"}}
	scores := s.Evaluate(context.Background(), "what is go", "go is a language", sources, EvalParams{
		Lightweight: true,
		GroundTruth: "go is a programming language",
	})
	if scores.Faithfulness != 0.8 || scores.Relevance != 0.8 {
		t.Errorf("expected faithfulness/relevance still computed, got %+v", scores)
	}
	if scores.HallucinationRate != 0 || scores.ContextPrecision != 0 {
		t.Errorf("expected hallucination/precision skipped under lightweight, got %+v", scores)
	}
	if scores.ContextRecall != nil {
		t.Errorf("expected context recall skipped under lightweight even with ground truth, got %v", scores.ContextRecall)
	}
}

func TestEvaluate_ContextRecallOnlyComputedWithGroundTruth(t *testing.T) {
	s := NewScorer(&stubJudgeLLM{response: "0.7"}, "test-model")
	sources := []prompt.Source{{Index: 1, Content: "go is a language"}}

	withoutGT := s.Evaluate(context.Background(), "what is go", "go is a language", sources, EvalParams{})
	if withoutGT.ContextRecall != nil {
		t.Errorf("expected nil context recall with no ground truth, got %v", withoutGT.ContextRecall)
	}

	withGT := s.Evaluate(context.Background(), "what is go", "go is a language", sources, EvalParams{GroundTruth: "go is a programming language"})
	if withGT.ContextRecall == nil || *withGT.ContextRecall != 0.7 {
		t.Errorf("expected context recall 0.7 when ground truth supplied, got %v", withGT.ContextRecall)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain text", "plain text"},
		{"```\nbare\n```", "bare"},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
