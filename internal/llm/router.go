package llm

import (
	"context"
	"fmt"
	"strings"
)

// Router dispatches generation requests to a backing LLM client based on a
// prefix match against the requested model name: "claude*" models go to
// the configured Claude client, "gpt*"/"o1*"/"o3*" models go to the
// configured OpenAI client, and anything else falls through to the local
// Ollama client.
type Router struct {
	claude LLM
	openai LLM
	local  LLM
}

// NewRouter creates a Router. claude or openai may be nil if no API key was
// configured for that provider; local should always be set.
func NewRouter(claude, openai, local LLM) *Router {
	return &Router{claude: claude, openai: openai, local: local}
}

// resolve picks the backing client for a model name.
func (r *Router) resolve(model string) (LLM, error) {
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "claude"):
		if r.claude == nil {
			return nil, fmt.Errorf("no claude provider configured for model %q", model)
		}
		return r.claude, nil
	case strings.HasPrefix(lower, "gpt") || strings.HasPrefix(lower, "o1") || strings.HasPrefix(lower, "o3"):
		if r.openai == nil {
			return nil, fmt.Errorf("no openai provider configured for model %q", model)
		}
		return r.openai, nil
	default:
		return r.local, nil
	}
}

// Generate dispatches to the resolved provider based on opts.Model.
func (r *Router) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	client, err := r.resolve(opts.Model)
	if err != nil {
		return "", err
	}
	return client.Generate(ctx, prompt, opts)
}

// GenerateStream dispatches to the resolved provider based on opts.Model.
func (r *Router) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error) {
	client, err := r.resolve(opts.Model)
	if err != nil {
		return nil, err
	}
	return client.GenerateStream(ctx, prompt, opts)
}

// Ensure Router implements LLM interface.
var _ LLM = (*Router)(nil)
