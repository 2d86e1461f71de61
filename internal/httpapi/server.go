// Package httpapi exposes the RAG engine over plain JSON HTTP, using chi
// for routing instead of a generated grpc-gateway surface.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/knoguchi/rag/internal/cache"
	"github.com/knoguchi/rag/internal/config"
	"github.com/knoguchi/rag/internal/embedder"
	"github.com/knoguchi/rag/internal/evaluator"
	"github.com/knoguchi/rag/internal/llm"
	"github.com/knoguchi/rag/internal/pipeline"
	"github.com/knoguchi/rag/internal/ranker"
	"github.com/knoguchi/rag/internal/sparse"
	"github.com/knoguchi/rag/internal/store"
	"github.com/knoguchi/rag/internal/tuner"
	"github.com/knoguchi/rag/internal/vectorstore"
)

// Deps bundles every dependency a handler needs. Construct once at startup
// and pass to NewServer.
type Deps struct {
	Config      *config.Config
	Pipeline    *pipeline.Pipeline
	Ranker      *ranker.Ranker
	Evaluator   *evaluator.Evaluator
	Embedder    embedder.Embedder
	Vectors     vectorstore.VectorStore
	Sparse      *sparse.Manager
	Cache       *cache.Cache
	LLM         llm.LLM
	Tuner       *tuner.Tuner
	Documents   store.DocumentRepository
	IngestJobs  store.IngestJobRepository
	QueryLogs   store.QueryLogRepository
	EvalResults store.EvalResultRepository
	CacheStats  store.CacheStatRepository
	TestSets    store.TestSetRepository
	EvalRuns    store.EvalRunRepository
	Logger      *slog.Logger
}

// Server wraps an HTTP server serving the RAG engine's JSON API.
type Server struct {
	server *http.Server
	router *chi.Mux
	deps   Deps
	logger *slog.Logger
}

// NewServer builds the chi router, mounts every route, and wraps it in an
// *http.Server listening on addr.
func NewServer(addr string, deps Deps, allowedOrigins []string) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(allowedOrigins))
	router.Use(responseTimeMiddleware)

	h := &handlers{deps: deps, logger: logger, startedAt: time.Now()}

	router.Get("/health", h.health)
	router.Get("/api/settings", h.settings)

	router.Post("/api/ingest", h.ingest)
	router.Get("/api/ingest/{job_id}", h.ingestStatus)

	router.Get("/api/collections", h.listCollections)
	router.Delete("/api/collections/{name}", h.deleteCollection)

	router.Post("/api/retrieve", h.retrieve)
	router.Post("/api/query", h.query)

	router.Post("/api/test-sets", h.createTestSet)
	router.Get("/api/test-sets", h.listTestSets)
	router.Delete("/api/test-sets/{id}", h.deleteTestSet)
	router.Post("/api/test-sets/auto-generate", h.autoGenerateTestSet)

	router.Post("/api/evaluate/batch", h.evaluateBatch)
	router.Get("/api/evaluate/runs", h.listEvalRuns)

	router.Get("/api/metrics", h.listMetrics)
	router.Get("/api/metrics/{query_id}", h.getMetrics)

	router.Get("/api/cache/stats", h.cacheStats)
	router.Delete("/api/cache", h.clearCache)

	router.Get("/api/retrieval/optimal-params", h.optimalParams)

	return &Server{
		router: router,
		deps:   deps,
		logger: logger,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // streaming LLM responses run long
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handlers holds the resolved dependencies shared by every route handler.
type handlers struct {
	deps      Deps
	logger    *slog.Logger
	startedAt time.Time
}
