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

// DefaultOpenAIBaseURL is the default OpenAI Chat Completions API endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIClient implements the LLM interface using OpenAI's Chat Completions API.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	model      string
}

// OpenAIOption is a functional option for configuring OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithOpenAIBaseURL sets a custom base URL for the OpenAI API.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithOpenAIModel sets the default model for the client.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.model = model
	}
}

// NewOpenAIClient creates a new OpenAI LLM client.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		baseURL: DefaultOpenAIBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		model: "gpt-4o-mini",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate sends a prompt to OpenAI and returns the complete response.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
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

	var result openAIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return "", fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, result.Error.Message)
		}
		return "", fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(body))
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai API returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// GenerateStream sends a prompt to OpenAI and returns a channel that streams response chunks.
func (c *OpenAIClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error) {
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
		return nil, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(body))
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
			if string(payload) == "[DONE]" {
				chunks <- StreamChunk{Done: true}
				return
			}

			var sc openAIStreamChunk
			if err := json.Unmarshal(payload, &sc); err != nil {
				continue
			}

			if len(sc.Choices) == 0 {
				continue
			}

			done := sc.Choices[0].FinishReason != nil
			select {
			case <-ctx.Done():
				chunks <- StreamChunk{Error: ctx.Err(), Done: true}
				return
			case chunks <- StreamChunk{Token: sc.Choices[0].Delta.Content, Done: done}:
			}
			if done {
				return
			}
		}
	}()

	return chunks, nil
}

func (c *OpenAIClient) buildRequest(ctx context.Context, prompt string, opts GenerateOptions, stream bool) (*http.Request, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	messages := []openAIMessage{}
	if opts.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: prompt})

	reqBody := openAIRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return req, nil
}

// Ensure OpenAIClient implements LLM interface.
var _ LLM = (*OpenAIClient)(nil)
