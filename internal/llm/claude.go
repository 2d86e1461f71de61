package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAnthropicBaseURL is the default Anthropic Messages API endpoint.
	DefaultAnthropicBaseURL = "https://api.anthropic.com"

	anthropicVersion = "2023-06-01"
)

// ClaudeClient implements the LLM interface using Anthropic's Messages API.
type ClaudeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	model      string
}

// ClaudeOption is a functional option for configuring ClaudeClient.
type ClaudeOption func(*ClaudeClient)

// WithClaudeBaseURL sets a custom base URL for the Anthropic API.
func WithClaudeBaseURL(url string) ClaudeOption {
	return func(c *ClaudeClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithClaudeModel sets the default model for the client.
func WithClaudeModel(model string) ClaudeOption {
	return func(c *ClaudeClient) {
		c.model = model
	}
}

// NewClaudeClient creates a new Anthropic LLM client.
func NewClaudeClient(apiKey string, opts ...ClaudeOption) *ClaudeClient {
	c := &ClaudeClient{
		baseURL: DefaultAnthropicBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		model: "claude-3-5-haiku-latest",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeResponse struct {
	Content []claudeContentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type claudeStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

// Generate sends a prompt to Claude and returns the complete response.
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req, err := c.buildRequest(ctx, prompt, opts, false)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result claudeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return "", fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, result.Error.Message)
		}
		return "", fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out strings.Builder
	for _, block := range result.Content {
		out.WriteString(block.Text)
	}
	return out.String(), nil
}

// GenerateStream sends a prompt to Claude and returns a channel that streams response chunks.
func (c *ClaudeClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error) {
	req, err := c.buildRequest(ctx, prompt, opts, true)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		for {
			select {
			case <-ctx.Done():
				chunks <- StreamChunk{Error: ctx.Err(), Done: true}
				return
			default:
			}

			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err == io.EOF {
					return
				}
				chunks <- StreamChunk{Error: fmt.Errorf("reading stream: %w", err), Done: true}
				return
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 || !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}
			payload := bytes.TrimPrefix(line, []byte("data: "))

			var event claudeStreamEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				continue
			}

			switch event.Type {
			case "content_block_delta":
				select {
				case <-ctx.Done():
					chunks <- StreamChunk{Error: ctx.Err(), Done: true}
					return
				case chunks <- StreamChunk{Token: event.Delta.Text}:
				}
			case "message_stop":
				chunks <- StreamChunk{Done: true}
				return
			}
		}
	}()

	return chunks, nil
}

func (c *ClaudeClient) buildRequest(ctx context.Context, prompt string, opts GenerateOptions, stream bool) (*http.Request, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	reqBody := claudeRequest{
		Model:       model,
		System:      opts.SystemPrompt,
		Messages:    []claudeMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		Stream:      stream,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	return req, nil
}

// Ensure ClaudeClient implements LLM interface.
var _ LLM = (*ClaudeClient)(nil)
