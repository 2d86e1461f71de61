// Package pipeline orchestrates one query end-to-end: cache lookup,
// optional auto-tuned retrieval parameters, hybrid search, prompt
// construction, generation, quality evaluation, cost accounting, and
// persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/cache"
	"github.com/knoguchi/rag/internal/config"
	"github.com/knoguchi/rag/internal/llm"
	"github.com/knoguchi/rag/internal/metrics"
	"github.com/knoguchi/rag/internal/prompt"
	"github.com/knoguchi/rag/internal/ranker"
	"github.com/knoguchi/rag/internal/reranker"
	"github.com/knoguchi/rag/internal/store"
	"github.com/knoguchi/rag/internal/tuner"
)

// Result is the outcome of one query pipeline execution.
type Result struct {
	QueryID             uuid.UUID
	Answer              string
	Sources             []prompt.Source
	Model               string
	TokensUsed          int
	CostUSD             float64
	LatencyMs           int64
	LatencyRetrievalMs  int64
	LatencyGenerationMs int64
	CacheHit            bool
	Alpha               float64
	TopK                int
	Scores              *metrics.Scores
}

// Pipeline wires together retrieval, generation, evaluation, and
// persistence for the query endpoint.
type Pipeline struct {
	cfg         *config.Config
	ranker      *ranker.Ranker
	promptBuild *prompt.Builder
	llmClient   llm.LLM
	cache       *cache.Cache // nil disables the semantic cache
	scorer      *metrics.Scorer
	tuner       *tuner.Tuner // nil disables auto-tuning
	queryLogs   store.QueryLogRepository
	evalResults store.EvalResultRepository
	reranker    reranker.Reranker // nil disables the optional rerank stage
	logger      *slog.Logger
}

// Option configures optional Pipeline stages.
type Option func(*Pipeline)

// WithReranker enables an optional rerank pass between hybrid search and
// prompt construction. Off by default.
func WithReranker(rrk reranker.Reranker) Option {
	return func(p *Pipeline) {
		p.reranker = rrk
	}
}

// New creates a Pipeline. cacheClient and autoTuner may be nil to disable
// those stages.
func New(
	cfg *config.Config,
	rk *ranker.Ranker,
	promptBuild *prompt.Builder,
	llmClient llm.LLM,
	cacheClient *cache.Cache,
	scorer *metrics.Scorer,
	autoTuner *tuner.Tuner,
	queryLogs store.QueryLogRepository,
	evalResults store.EvalResultRepository,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		cfg:         cfg,
		ranker:      rk,
		promptBuild: promptBuild,
		llmClient:   llmClient,
		cache:       cacheClient,
		scorer:      scorer,
		tuner:       autoTuner,
		queryLogs:   queryLogs,
		evalResults: evalResults,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs the full query pipeline for collection, answering query
// subject to the supplied option overrides.
func (p *Pipeline) Execute(ctx context.Context, collection, query string, opts *QueryOptions) (*Result, error) {
	start := time.Now()
	resolved := resolveOptions(p.cfg, opts)

	if p.tuner != nil && (opts == nil || opts.Alpha == 0) && (opts == nil || opts.TopK == 0) {
		if rec, ok, err := p.tuner.Recommend(ctx, collection); err != nil {
			p.logger.Warn("auto_tune_failed", slog.String("collection", collection), slog.String("error", err.Error()))
		} else if ok {
			if rec.AlphaFound {
				resolved.Alpha = rec.Alpha
			}
			if rec.TopKFound {
				resolved.TopK = rec.TopK
			}
		}
	}

	if p.cache != nil && p.cfg.CacheEnabled {
		if entry, hit := p.cache.Lookup(ctx, collection, query); hit {
			result := &Result{
				QueryID:    uuid.New(),
				Answer:     entry.Answer,
				Model:      entry.Model,
				TokensUsed: entry.TokensUsed,
				LatencyMs:  time.Since(start).Milliseconds(),
				CacheHit:   true,
				Alpha:      resolved.Alpha,
				TopK:       resolved.TopK,
			}
			_ = json.Unmarshal(entry.Sources, &result.Sources)
			p.persist(ctx, collection, query, result, nil)
			return result, nil
		}
	}

	renderedPrompt, sources, latencyRetrieval, err := p.retrieveAndBuildPrompt(ctx, collection, query, resolved)
	if err != nil {
		return nil, err
	}

	genStart := time.Now()
	answer, err := p.llmClient.Generate(ctx, renderedPrompt, llm.GenerateOptions{
		Model:        resolved.Model,
		SystemPrompt: resolved.SystemPrompt,
		Temperature:  resolved.Temperature,
		MaxTokens:    resolved.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}
	latencyGeneration := time.Since(genStart).Milliseconds()

	inputTokens := llm.EstimateTokens(renderedPrompt)
	outputTokens := llm.EstimateTokens(answer)
	costUSD := llm.EstimateCostUSD(resolved.Model, inputTokens, outputTokens)

	var scores *metrics.Scores
	forceEval := opts != nil && opts.ForceEval
	if p.scorer != nil && (p.cfg.EvalOnQuery || forceEval) {
		groundTruth := ""
		if opts != nil {
			groundTruth = opts.GroundTruth
		}
		// A batch evaluation run always wants full scores; the
		// eval_lightweight setting only applies to automatic scoring of
		// ordinary queries.
		lightweight := p.cfg.EvalLightweight
		if forceEval {
			lightweight = false
		}
		s := p.scorer.Evaluate(ctx, query, answer, sources, metrics.EvalParams{
			GroundTruth: groundTruth,
			Lightweight: lightweight,
		})
		scores = &s
	}

	result := &Result{
		QueryID:             uuid.New(),
		Answer:              answer,
		Sources:             sources,
		Model:               resolved.Model,
		TokensUsed:          inputTokens + outputTokens,
		CostUSD:             costUSD,
		LatencyMs:           time.Since(start).Milliseconds(),
		LatencyRetrievalMs:  latencyRetrieval,
		LatencyGenerationMs: latencyGeneration,
		CacheHit:            false,
		Alpha:               resolved.Alpha,
		TopK:                resolved.TopK,
		Scores:              scores,
	}

	p.persist(ctx, collection, query, result, scores)

	if p.cache != nil && p.cfg.CacheEnabled {
		if sourcesJSON, err := json.Marshal(sources); err == nil {
			if err := p.cache.Store(ctx, collection, query, answer, sourcesJSON, result.Model, result.TokensUsed, result.LatencyMs); err != nil {
				p.logger.Warn("cache_store_failed", slog.String("error", err.Error()))
			}
		}
	}

	return result, nil
}

// retrieveAndBuildPrompt runs hybrid search, near-duplicate dedup, the
// optional rerank stage, and prompt construction. It is shared by Execute
// and ExecuteStream.
func (p *Pipeline) retrieveAndBuildPrompt(ctx context.Context, collection, query string, resolved resolvedOptions) (string, []prompt.Source, int64, error) {
	retrievalStart := time.Now()
	candidates, err := p.ranker.Search(ctx, collection, query, resolved.Alpha, resolved.TopK, resolved.MinScore)
	if err != nil {
		return "", nil, 0, fmt.Errorf("hybrid search: %w", err)
	}
	candidates = deduplicateResults(candidates, nearDuplicateThreshold)

	if p.reranker != nil {
		reranked, err := p.reranker.Rerank(ctx, query, candidates, resolved.TopK)
		if err != nil {
			p.logger.Warn("rerank_failed", slog.String("error", err.Error()))
		} else {
			candidates = candidates[:0]
			for _, r := range reranked {
				candidates = append(candidates, r.RankedResult)
			}
		}
	}
	latencyRetrieval := time.Since(retrievalStart).Milliseconds()

	renderedPrompt, sources := p.promptBuild.Build(resolved.SystemPrompt, query, candidates)
	return renderedPrompt, sources, latencyRetrieval, nil
}

// StreamEventType identifies a query streaming event, matching the HTTP
// surface's `stream=true` SSE contract.
type StreamEventType string

const (
	StreamEventSources StreamEventType = "sources"
	StreamEventToken   StreamEventType = "token"
	StreamEventDone    StreamEventType = "done"
)

// StreamEvent is one event emitted by ExecuteStream.
type StreamEvent struct {
	Type    StreamEventType
	Sources []prompt.Source
	Token   string
	Result  *Result
	Err     error
}

// ExecuteStream runs retrieval and prompt construction synchronously, then
// streams generation token-by-token. The semantic cache is bypassed for
// streamed queries since there is no meaningful way to "replay" a cached
// answer as a token stream; everything else (evaluation, cost accounting,
// persistence, cache population for future non-streamed lookups) happens
// exactly as in Execute once the stream completes.
func (p *Pipeline) ExecuteStream(ctx context.Context, collection, query string, opts *QueryOptions) (<-chan StreamEvent, error) {
	start := time.Now()
	resolved := resolveOptions(p.cfg, opts)

	if p.tuner != nil && (opts == nil || opts.Alpha == 0) && (opts == nil || opts.TopK == 0) {
		if rec, ok, err := p.tuner.Recommend(ctx, collection); err == nil && ok {
			if rec.AlphaFound {
				resolved.Alpha = rec.Alpha
			}
			if rec.TopKFound {
				resolved.TopK = rec.TopK
			}
		}
	}

	renderedPrompt, sources, latencyRetrieval, err := p.retrieveAndBuildPrompt(ctx, collection, query, resolved)
	if err != nil {
		return nil, err
	}

	genStart := time.Now()
	chunks, err := p.llmClient.GenerateStream(ctx, renderedPrompt, llm.GenerateOptions{
		Model:        resolved.Model,
		SystemPrompt: resolved.SystemPrompt,
		Temperature:  resolved.Temperature,
		MaxTokens:    resolved.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}

	events := make(chan StreamEvent, 8)
	go func() {
		defer close(events)
		events <- StreamEvent{Type: StreamEventSources, Sources: sources}

		var answer strings.Builder
		for chunk := range chunks {
			if chunk.Error != nil {
				events <- StreamEvent{Type: StreamEventDone, Err: chunk.Error}
				return
			}
			if chunk.Token != "" {
				answer.WriteString(chunk.Token)
				events <- StreamEvent{Type: StreamEventToken, Token: chunk.Token}
			}
			if chunk.Done {
				break
			}
		}
		latencyGeneration := time.Since(genStart).Milliseconds()

		finalAnswer := answer.String()
		inputTokens := llm.EstimateTokens(renderedPrompt)
		outputTokens := llm.EstimateTokens(finalAnswer)

		var scores *metrics.Scores
		forceEval := opts != nil && opts.ForceEval
		if p.scorer != nil && (p.cfg.EvalOnQuery || forceEval) {
			groundTruth := ""
			if opts != nil {
				groundTruth = opts.GroundTruth
			}
			lightweight := p.cfg.EvalLightweight
			if forceEval {
				lightweight = false
			}
			s := p.scorer.Evaluate(ctx, query, finalAnswer, sources, metrics.EvalParams{
				GroundTruth: groundTruth,
				Lightweight: lightweight,
			})
			scores = &s
		}

		result := &Result{
			QueryID:             uuid.New(),
			Answer:              finalAnswer,
			Sources:             sources,
			Model:               resolved.Model,
			TokensUsed:          inputTokens + outputTokens,
			CostUSD:             llm.EstimateCostUSD(resolved.Model, inputTokens, outputTokens),
			LatencyMs:           time.Since(start).Milliseconds(),
			LatencyRetrievalMs:  latencyRetrieval,
			LatencyGenerationMs: latencyGeneration,
			Alpha:               resolved.Alpha,
			TopK:                resolved.TopK,
			Scores:              scores,
		}

		p.persist(ctx, collection, query, result, scores)

		if p.cache != nil && p.cfg.CacheEnabled {
			if sourcesJSON, err := json.Marshal(sources); err == nil {
				if err := p.cache.Store(ctx, collection, query, finalAnswer, sourcesJSON, result.Model, result.TokensUsed, result.LatencyMs); err != nil {
					p.logger.Warn("cache_store_failed", slog.String("error", err.Error()))
				}
			}
		}

		events <- StreamEvent{Type: StreamEventDone, Result: result}
	}()

	return events, nil
}

func (p *Pipeline) persist(ctx context.Context, collection, query string, result *Result, scores *metrics.Scores) {
	sourcesJSON, err := json.Marshal(result.Sources)
	if err != nil {
		p.logger.Warn("query_log_marshal_failed", slog.String("error", err.Error()))
		sourcesJSON = []byte("[]")
	}

	log := &store.QueryLog{
		ID:                  result.QueryID,
		Collection:          collection,
		Query:               query,
		Answer:              result.Answer,
		Sources:             sourcesJSON,
		Model:               result.Model,
		TokensUsed:          result.TokensUsed,
		LatencyMs:           result.LatencyMs,
		LatencyRetrievalMs:  result.LatencyRetrievalMs,
		LatencyGenerationMs: result.LatencyGenerationMs,
		CostUSD:             result.CostUSD,
		Alpha:               result.Alpha,
		TopK:                result.TopK,
		CacheHit:            result.CacheHit,
		CreatedAt:           time.Now().UTC(),
	}

	if p.queryLogs != nil {
		if err := p.queryLogs.Create(ctx, log); err != nil {
			p.logger.Warn("query_log_persist_failed", slog.String("error", err.Error()))
		}
	}

	if scores != nil && p.evalResults != nil {
		eval := &store.EvalResult{
			ID:                uuid.New(),
			QueryID:           result.QueryID,
			Faithfulness:      &scores.Faithfulness,
			Relevance:         &scores.Relevance,
			HallucinationRate: &scores.HallucinationRate,
			ContextPrecision:  &scores.ContextPrecision,
			ContextRecall:     scores.ContextRecall,
			CreatedAt:         time.Now().UTC(),
		}
		if err := p.evalResults.Create(ctx, eval); err != nil {
			p.logger.Warn("eval_result_persist_failed", slog.String("error", err.Error()))
		}
	}
}
