package pipeline

import (
	"testing"

	"github.com/knoguchi/rag/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		DefaultTopK:         4,
		DefaultMinScore:     0.35,
		DefaultAlpha:        0.5,
		DefaultSystemPrompt: "You are a helpful assistant.",
		DefaultTemperature:  0.3,
		DefaultMaxTokens:    2048,
		OllamaLLMModel:      "llama3.2",
	}
}

func TestResolveOptions_NilUsesDefaults(t *testing.T) {
	r := resolveOptions(testConfig(), nil)
	if r.TopK != 4 || r.Alpha != 0.5 || r.Model != "llama3.2" {
		t.Errorf("expected config defaults, got %+v", r)
	}
}

func TestResolveOptions_OverridesNonZeroFields(t *testing.T) {
	opts := &QueryOptions{TopK: 10, Model: "claude-3-haiku"}
	r := resolveOptions(testConfig(), opts)

	if r.TopK != 10 {
		t.Errorf("expected overridden TopK 10, got %d", r.TopK)
	}
	if r.Model != "claude-3-haiku" {
		t.Errorf("expected overridden model, got %s", r.Model)
	}
	if r.Alpha != 0.5 {
		t.Errorf("expected default alpha to survive untouched, got %f", r.Alpha)
	}
}

func TestResolveOptions_ZeroFieldsDoNotOverride(t *testing.T) {
	opts := &QueryOptions{}
	r := resolveOptions(testConfig(), opts)

	if r.TopK != 4 || r.MaxTokens != 2048 {
		t.Errorf("expected zero-value fields to fall back to config defaults, got %+v", r)
	}
}
