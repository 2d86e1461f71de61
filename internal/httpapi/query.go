package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/knoguchi/rag/internal/pipeline"
)

type queryRequest struct {
	Collection   string  `json:"collection"`
	Query        string  `json:"query"`
	TopK         int     `json:"top_k,omitempty"`
	Alpha        float64 `json:"alpha,omitempty"`
	MinScore     float32 `json:"min_score,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Model        string  `json:"model,omitempty"`
	Stream       bool    `json:"stream,omitempty"`
}

func (req queryRequest) toOptions() *pipeline.QueryOptions {
	return &pipeline.QueryOptions{
		TopK:         req.TopK,
		MinScore:     req.MinScore,
		Alpha:        req.Alpha,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		Model:        req.Model,
	}
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Collection == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "collection and query are required")
		return
	}

	if req.Stream || r.URL.Query().Get("stream") == "true" {
		h.queryStream(w, r, req)
		return
	}

	result, err := h.deps.Pipeline.Execute(r.Context(), req.Collection, req.Query, req.toOptions())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query_id":              result.QueryID,
		"answer":                result.Answer,
		"sources":               result.Sources,
		"model":                 result.Model,
		"tokens_used":           result.TokensUsed,
		"cost_usd":              result.CostUSD,
		"latency_ms":            result.LatencyMs,
		"latency_retrieval_ms":  result.LatencyRetrievalMs,
		"latency_generation_ms": result.LatencyGenerationMs,
		"cache_hit":             result.CacheHit,
		"alpha":                 result.Alpha,
		"top_k":                 result.TopK,
		"eval":                  result.Scores,
	})
}

func (h *handlers) queryStream(w http.ResponseWriter, r *http.Request, req queryRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, err := h.deps.Pipeline.ExecuteStream(r.Context(), req.Collection, req.Query, req.toOptions())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		switch ev.Type {
		case pipeline.StreamEventSources:
			writeSSE(w, "sources", map[string]any{"sources": ev.Sources})
		case pipeline.StreamEventToken:
			writeSSE(w, "token", map[string]any{"token": ev.Token})
		case pipeline.StreamEventDone:
			if ev.Err != nil {
				writeSSE(w, "done", map[string]any{"error": ev.Err.Error()})
			} else {
				writeSSE(w, "done", map[string]any{"result": ev.Result})
			}
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		default:
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
}
