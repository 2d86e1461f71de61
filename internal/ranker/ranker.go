// Package ranker fuses dense vector search results with sparse BM25 results
// using Reciprocal Rank Fusion, and drives the concurrent fan-out to both
// retrieval sources.
package ranker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/knoguchi/rag/internal/embedder"
	"github.com/knoguchi/rag/internal/sparse"
	"github.com/knoguchi/rag/internal/vectorstore"
)

// rrfK is the RRF smoothing constant. 60 is the standard value used by
// Azure AI Search, OpenSearch, and most published hybrid retrieval systems.
const rrfK = 60

// RankedResult is one fused, ranked chunk returned by Search.
type RankedResult struct {
	ID          string
	DocumentID  string
	Content     string
	Score       float64
	VectorScore float64
	SparseScore float64
	VectorRank  int // 1-indexed, 0 if absent from the dense list
	SparseRank  int // 1-indexed, 0 if absent from the sparse list
	Metadata    map[string]string
}

// Ranker performs hybrid dense+sparse retrieval and fuses the two result
// lists with RRF.
type Ranker struct {
	vectors  vectorstore.VectorStore
	sparse   *sparse.Manager
	embedder embedder.Embedder
	logger   *slog.Logger
}

// New creates a Ranker.
func New(vectors vectorstore.VectorStore, sparseMgr *sparse.Manager, emb embedder.Embedder, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{vectors: vectors, sparse: sparseMgr, embedder: emb, logger: logger}
}

// Search retrieves fetch_k=3*topK candidates from the dense and sparse
// indices concurrently, fuses them with RRF weighted by alpha, and returns
// the top topK fused results. If one source fails, the other's results are
// still fused (its contribution is simply absent from the fusion). If both
// fail, Search returns an empty, non-nil slice.
func (rk *Ranker) Search(ctx context.Context, collection, query string, alpha float64, topK int, minScore float32) ([]RankedResult, error) {
	if topK <= 0 {
		topK = 1
	}
	fetchK := topK * 3

	var (
		dense  []vectorstore.SearchResult
		sparse []sparse.Result
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vec, err := rk.embedder.Embed(gctx, query)
		if err != nil {
			rk.logger.Warn("dense_retrieval_failed", slog.String("collection", collection), slog.String("error", err.Error()))
			return nil
		}
		res, err := rk.vectors.Search(gctx, collection, vec, fetchK, minScore)
		if err != nil {
			rk.logger.Warn("dense_search_failed", slog.String("collection", collection), slog.String("error", err.Error()))
			return nil
		}
		dense = res
		return nil
	})

	g.Go(func() error {
		idx, err := rk.sparse.Get(collection)
		if err != nil {
			rk.logger.Warn("sparse_index_unavailable", slog.String("collection", collection), slog.String("error", err.Error()))
			return nil
		}
		res, err := idx.Search(gctx, query, fetchK)
		if err != nil {
			rk.logger.Warn("sparse_search_failed", slog.String("collection", collection), slog.String("error", err.Error()))
			return nil
		}
		sparse = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	if len(dense) == 0 && len(sparse) == 0 {
		return []RankedResult{}, nil
	}

	fused := Fuse(dense, sparse, alpha)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// Fuse combines dense and sparse result lists into a single ranked list
// using RRF: score = alpha*vectorRRF + (1-alpha)*sparseRRF. Dense and sparse
// rows are joined by canonicalKey of their text, not by store-assigned ID:
// the two legs are independent retrieval systems and a chunk can carry
// different IDs (or no stable ID at all) between them, so text is the only
// join key both sides agree on. This also collapses near-identical dense
// chunks (e.g. overlapping splits) that were assigned distinct IDs at
// ingestion time.
func Fuse(dense []vectorstore.SearchResult, sparseResults []sparse.Result, alpha float64) []RankedResult {
	if len(dense) == 0 && len(sparseResults) == 0 {
		return []RankedResult{}
	}

	byKey := make(map[string]*RankedResult, len(dense)+len(sparseResults))

	keyFor := func(id, content string) string {
		if key := canonicalKey(content); key != "" {
			return key
		}
		return id
	}

	for rank, r := range dense {
		key := keyFor(r.ID, r.Content)
		res, ok := byKey[key]
		if !ok {
			res = &RankedResult{ID: r.ID, DocumentID: r.DocumentID, Content: r.Content, Metadata: r.Metadata}
			byKey[key] = res
		}
		res.VectorScore = float64(r.Score)
		res.VectorRank = rank + 1
		res.Score += alpha / float64(rrfK+rank+1)
	}

	for rank, r := range sparseResults {
		key := keyFor(r.ID, r.Content)
		res, ok := byKey[key]
		if !ok {
			res = &RankedResult{ID: r.ID, DocumentID: r.DocumentID, Content: r.Content}
			byKey[key] = res
		}
		res.SparseScore = float64(r.Score)
		res.SparseRank = rank + 1
		res.Score += (1 - alpha) / float64(rrfK+rank+1)
	}

	results := make([]RankedResult, 0, len(byKey))
	for _, r := range byKey {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results
}

// canonicalKey derives the join key used to fuse a chunk's dense and sparse
// occurrences into one result: the lowercased, whitespace-trimmed first 200
// characters of its content.
func canonicalKey(content string) string {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return strings.ToLower(trimmed)
}
