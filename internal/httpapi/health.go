package httpapi

import "net/http"

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	cfg := h.deps.Config
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"ollama":          cfg.OllamaURL,
		"embedding_model": cfg.OllamaEmbeddingModel,
		"default_llm":     cfg.OllamaLLMModel,
		"eval_enabled":    h.deps.Evaluator != nil,
	})
}

func (h *handlers) settings(w http.ResponseWriter, r *http.Request) {
	cfg := h.deps.Config
	writeJSON(w, http.StatusOK, map[string]any{
		"http_port":                  cfg.HTTPPort,
		"environment":                cfg.Environment,
		"default_chunk_method":       cfg.DefaultChunkMethod,
		"default_chunk_target_size":  cfg.DefaultChunkTargetSize,
		"default_chunk_max_size":     cfg.DefaultChunkMaxSize,
		"default_chunk_overlap":      cfg.DefaultChunkOverlap,
		"default_top_k":              cfg.DefaultTopK,
		"default_min_score":          cfg.DefaultMinScore,
		"default_alpha":              cfg.DefaultAlpha,
		"default_temperature":        cfg.DefaultTemperature,
		"default_max_tokens":         cfg.DefaultMaxTokens,
		"max_context_tokens":         cfg.MaxContextTokens,
		"cache_enabled":              cfg.CacheEnabled,
		"cache_threshold":            cfg.CacheThreshold,
		"cache_ttl":                  cfg.CacheTTL.String(),
		"auto_tune_enabled":          cfg.AutoTuneEnabled,
		"eval_model":                 cfg.EvalModel,
		"embedding_model":            cfg.OllamaEmbeddingModel,
		"default_llm_model":          cfg.OllamaLLMModel,
	})
}
