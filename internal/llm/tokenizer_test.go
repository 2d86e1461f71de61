package llm

import "testing"

func TestEstimateTokens_Empty(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestEstimateTokens_AlphaRun(t *testing.T) {
	// 9 letters -> (9+3)/4 = 3 tokens.
	if got := EstimateTokens("goroutine"); got != (9+3)/4 {
		t.Errorf("got %d", got)
	}
}

func TestEstimateTokens_PunctuationCountsPerRune(t *testing.T) {
	got := EstimateTokens("a, b.")
	// "a" -> 1 token, "," -> 1, "b" -> 1, "." -> 1 = 4.
	if got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}

func TestEstimateTokens_WhitespaceIsFree(t *testing.T) {
	withSpace := EstimateTokens("go lang")
	withoutSpace := EstimateTokens("golang")
	if withSpace != withoutSpace {
		t.Errorf("expected whitespace to not add tokens: %d vs %d", withSpace, withoutSpace)
	}
}

func TestEstimateCostUSD_KnownModel(t *testing.T) {
	cost := EstimateCostUSD("claude-3-5-sonnet-20241022", 1_000_000, 1_000_000)
	if cost != 18.00 {
		t.Errorf("expected 18.00, got %v", cost)
	}
}

func TestEstimateCostUSD_MoreSpecificSubstringWinsOverGeneral(t *testing.T) {
	cost := EstimateCostUSD("claude-3-5-haiku-20241022", 1_000_000, 0)
	if cost != 0.80 {
		t.Errorf("expected haiku pricing 0.80, got %v", cost)
	}
}

func TestEstimateCostUSD_UnknownModelIsFree(t *testing.T) {
	cost := EstimateCostUSD("llama3.2", 1_000_000, 1_000_000)
	if cost != 0 {
		t.Errorf("expected local model to be free, got %v", cost)
	}
}
