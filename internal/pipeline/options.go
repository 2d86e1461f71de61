package pipeline

import "github.com/knoguchi/rag/internal/config"

// QueryOptions carries the per-request overrides a caller may supply. Zero
// values mean "use the configured default".
type QueryOptions struct {
	TopK         int
	MinScore     float32
	Alpha        float64
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	Model        string
	// GroundTruth is the expected answer, supplied by batch evaluation runs
	// so context recall can be computed. Empty for ordinary queries.
	GroundTruth string
	// ForceEval runs the scorer regardless of the configured eval_on_query
	// setting. Batch evaluation runs always want scores; eval_on_query only
	// gates automatic scoring of ordinary queries.
	ForceEval bool
}

// resolvedOptions is QueryOptions after defaults have been applied; every
// field is guaranteed to be set.
type resolvedOptions struct {
	TopK         int
	MinScore     float32
	Alpha        float64
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	Model        string
}

// resolveOptions layers a request's explicit overrides on top of the
// service's configured defaults. Precedence: configured defaults, then
// any non-zero field the caller set on opts.
func resolveOptions(cfg *config.Config, opts *QueryOptions) resolvedOptions {
	r := resolvedOptions{
		TopK:         cfg.DefaultTopK,
		MinScore:     cfg.DefaultMinScore,
		Alpha:        cfg.DefaultAlpha,
		SystemPrompt: cfg.DefaultSystemPrompt,
		Temperature:  cfg.DefaultTemperature,
		MaxTokens:    cfg.DefaultMaxTokens,
		Model:        cfg.OllamaLLMModel,
	}

	if opts == nil {
		return r
	}
	if opts.TopK > 0 {
		r.TopK = opts.TopK
	}
	if opts.MinScore > 0 {
		r.MinScore = opts.MinScore
	}
	if opts.Alpha > 0 {
		r.Alpha = opts.Alpha
	}
	if opts.SystemPrompt != "" {
		r.SystemPrompt = opts.SystemPrompt
	}
	if opts.Temperature > 0 {
		r.Temperature = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		r.MaxTokens = opts.MaxTokens
	}
	if opts.Model != "" {
		r.Model = opts.Model
	}
	return r
}
