package llm

import (
	"context"
	"testing"
)

type stubLLM struct{ name string }

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return s.name, nil
}

func (s *stubLLM) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk)
	close(ch)
	return ch, nil
}

func TestRouter_ResolvesClaudeModels(t *testing.T) {
	claude := &stubLLM{name: "claude"}
	r := NewRouter(claude, &stubLLM{name: "openai"}, &stubLLM{name: "local"})

	got, err := r.Generate(context.Background(), "p", GenerateOptions{Model: "claude-3-5-sonnet-20241022"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "claude" {
		t.Errorf("expected claude provider, got %q", got)
	}
}

func TestRouter_ResolvesOpenAIModels(t *testing.T) {
	r := NewRouter(&stubLLM{name: "claude"}, &stubLLM{name: "openai"}, &stubLLM{name: "local"})

	for _, model := range []string{"gpt-4o", "o1-mini", "o3"} {
		got, err := r.Generate(context.Background(), "p", GenerateOptions{Model: model})
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", model, err)
		}
		if got != "openai" {
			t.Errorf("expected openai provider for model %q, got %q", model, got)
		}
	}
}

func TestRouter_DefaultsToLocal(t *testing.T) {
	r := NewRouter(&stubLLM{name: "claude"}, &stubLLM{name: "openai"}, &stubLLM{name: "local"})

	got, err := r.Generate(context.Background(), "p", GenerateOptions{Model: "llama3.2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "local" {
		t.Errorf("expected local provider, got %q", got)
	}
}

func TestRouter_MissingClaudeProviderErrors(t *testing.T) {
	r := NewRouter(nil, &stubLLM{name: "openai"}, &stubLLM{name: "local"})

	_, err := r.Generate(context.Background(), "p", GenerateOptions{Model: "claude-3-opus"})
	if err == nil {
		t.Error("expected error when claude provider is nil")
	}
}

func TestRouter_MissingOpenAIProviderErrors(t *testing.T) {
	r := NewRouter(&stubLLM{name: "claude"}, nil, &stubLLM{name: "local"})

	_, err := r.Generate(context.Background(), "p", GenerateOptions{Model: "gpt-4o-mini"})
	if err == nil {
		t.Error("expected error when openai provider is nil")
	}
}

func TestRouter_CaseInsensitiveMatch(t *testing.T) {
	r := NewRouter(&stubLLM{name: "claude"}, &stubLLM{name: "openai"}, &stubLLM{name: "local"})

	got, err := r.Generate(context.Background(), "p", GenerateOptions{Model: "Claude-3-Opus"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "claude" {
		t.Errorf("expected case-insensitive match to claude, got %q", got)
	}
}
