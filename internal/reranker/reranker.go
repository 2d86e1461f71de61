// Package reranker provides re-ranking capabilities for RAG retrieval
// results.
//
// Re-ranking uses cross-encoder-style scoring to improve retrieval
// precision by evaluating query-document pairs together rather than
// independently.
//
// # Trade-offs
//
//   - Latency: adds 1-3 seconds per query (extra LLM call to score each result)
//   - Quality: significantly better relevance when top-k RRF scores are close together
//   - Cost: roughly doubles LLM token usage per query
//
// Enable reranking for use cases where accuracy matters more than speed.
// Disable for high-throughput or latency-sensitive applications.
package reranker

import (
	"context"

	"github.com/knoguchi/rag/internal/ranker"
)

// ScoredResult is a hybrid search result with an additional reranking score.
type ScoredResult struct {
	ranker.RankedResult
	RerankerScore float32
}

// Reranker defines the interface for re-ranking hybrid search results.
type Reranker interface {
	// Rerank takes a query and the fused hybrid search results, and returns
	// them re-ordered by relevance with updated scores. topK limits the
	// output.
	Rerank(ctx context.Context, query string, results []ranker.RankedResult, topK int) ([]ScoredResult, error)
}
