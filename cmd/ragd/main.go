package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/knoguchi/rag/internal/cache"
	"github.com/knoguchi/rag/internal/config"
	"github.com/knoguchi/rag/internal/embedder"
	"github.com/knoguchi/rag/internal/evaluator"
	"github.com/knoguchi/rag/internal/httpapi"
	"github.com/knoguchi/rag/internal/llm"
	"github.com/knoguchi/rag/internal/metrics"
	"github.com/knoguchi/rag/internal/pipeline"
	"github.com/knoguchi/rag/internal/prompt"
	"github.com/knoguchi/rag/internal/ranker"
	"github.com/knoguchi/rag/internal/reranker"
	"github.com/knoguchi/rag/internal/sparse"
	"github.com/knoguchi/rag/internal/store/postgres"
	"github.com/knoguchi/rag/internal/tuner"
	"github.com/knoguchi/rag/internal/vectorstore"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("RAG_LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting RAG service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
	)

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	documents := postgres.NewDocumentRepo(db)
	ingestJobs := postgres.NewIngestJobRepo(db)
	queryLogs := postgres.NewQueryLogRepo(db)
	evalResults := postgres.NewEvalResultRepo(db)
	cacheStats := postgres.NewCacheStatRepo(db)
	testSets := postgres.NewTestSetRepo(db)
	evalRuns := postgres.NewEvalRunRepo(db)

	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()
	slog.Info("connected to Qdrant")

	sparseMgr := sparse.NewManager(cfg.BM25IndexDir, 15*time.Minute)

	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})
	slog.Info("initialized Ollama embedder", "model", cfg.OllamaEmbeddingModel)

	localLLM := llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.OllamaLLMModel),
	)

	var claudeLLM llm.LLM
	if cfg.AnthropicAPIKey != "" {
		claudeLLM = llm.NewClaudeClient(cfg.AnthropicAPIKey)
		slog.Info("claude provider enabled")
	}

	var openaiLLM llm.LLM
	if cfg.OpenAIAPIKey != "" {
		openaiLLM = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		slog.Info("openai provider enabled")
	}

	llmRouter := llm.NewRouter(claudeLLM, openaiLLM, localLLM)

	rk := ranker.New(vectorStore, sparseMgr, embed, logger)
	promptBuilder := prompt.NewBuilder(cfg.MaxContextTokens, llm.EstimateTokens)
	scorer := metrics.NewScorer(llmRouter, cfg.EvalModel)
	autoTuner := tuner.New(queryLogs)

	var cacheClient *cache.Cache
	if cfg.CacheEnabled {
		cacheClient = cache.New(vectorStore, embed, cacheStats, cfg.CacheThreshold, cfg.CacheTTL, logger)
	}

	var pipelineOpts []pipeline.Option
	if cfg.RerankEnabled {
		pipelineOpts = append(pipelineOpts, pipeline.WithReranker(
			reranker.NewLLMReranker(llmRouter, reranker.WithModel(cfg.RerankModel)),
		))
		slog.Info("reranking enabled", "model", cfg.RerankModel)
	}

	pipe := pipeline.New(
		cfg,
		rk,
		promptBuilder,
		llmRouter,
		cacheClient,
		scorer,
		autoTuner,
		queryLogs,
		evalResults,
		logger,
		pipelineOpts...,
	)

	eval := evaluator.New(pipe, testSets, evalRuns, logger)

	deps := httpapi.Deps{
		Config:      cfg,
		Pipeline:    pipe,
		Ranker:      rk,
		Evaluator:   eval,
		Embedder:    embed,
		Vectors:     vectorStore,
		Sparse:      sparseMgr,
		Cache:       cacheClient,
		LLM:         llmRouter,
		Tuner:       autoTuner,
		Documents:   documents,
		IngestJobs:  ingestJobs,
		QueryLogs:   queryLogs,
		EvalResults: evalResults,
		CacheStats:  cacheStats,
		TestSets:    testSets,
		EvalRuns:    evalRuns,
		Logger:      logger,
	}

	allowedOrigins := strings.Split(cfg.AllowedOrigins, ",")
	httpServer := httpapi.NewServer(fmt.Sprintf(":%d", cfg.HTTPPort), deps, allowedOrigins)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	slog.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
