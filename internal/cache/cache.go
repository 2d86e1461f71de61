// Package cache implements the semantic query cache: a nearest-neighbor
// lookup against previously answered queries, scoped per collection, with
// a similarity threshold and a time-to-live on entries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/embedder"
	"github.com/knoguchi/rag/internal/store"
	"github.com/knoguchi/rag/internal/vectorstore"
)

// Entry is a previously cached query/answer pair.
type Entry struct {
	Answer     string
	Sources    []byte // JSON-encoded []prompt.Source
	Model      string
	TokensUsed int
	LatencyMs  int64
	CreatedAt  time.Time
}

// Cache is the semantic query cache. A failure during Lookup is logged and
// treated as a miss rather than propagated; Store and Clear return their
// errors to the caller.
type Cache struct {
	vectors   vectorstore.VectorStore
	embedder  embedder.Embedder
	stats     store.CacheStatRepository
	threshold float32
	ttl       time.Duration
	logger    *slog.Logger
}

// New creates a Cache. threshold is the minimum cosine similarity for a
// nearest neighbor to count as a hit; ttl bounds how old a cached entry may
// be before it is treated as stale.
func New(vectors vectorstore.VectorStore, emb embedder.Embedder, stats store.CacheStatRepository, threshold float32, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{vectors: vectors, embedder: emb, stats: stats, threshold: threshold, ttl: ttl, logger: logger}
}

// Lookup searches for a cached answer to a semantically similar query
// within the same collection. It returns false if nothing matched closely
// enough, if the best match was stale, or if the lookup failed for any
// reason.
func (c *Cache) Lookup(ctx context.Context, collection, query string) (*Entry, bool) {
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		c.logger.Warn("cache_embed_failed", slog.String("error", err.Error()))
		c.recordStat(ctx, collection, query, false, 0)
		return nil, false
	}

	results, err := c.vectors.Search(ctx, vectorstore.QueryCacheCollection, vec, 5, c.threshold)
	if err != nil {
		c.logger.Warn("cache_search_failed", slog.String("error", err.Error()))
		c.recordStat(ctx, collection, query, false, 0)
		return nil, false
	}

	for _, r := range results {
		if r.Metadata["collection"] != collection {
			continue
		}
		if r.Score < c.threshold {
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, r.Metadata["created_at"])
		if err != nil {
			continue
		}
		if time.Since(createdAt) > c.ttl {
			continue
		}

		tokensUsed, _ := strconv.Atoi(r.Metadata["tokens_used"])
		latencyMs, _ := strconv.ParseInt(r.Metadata["latency_ms"], 10, 64)

		c.recordStat(ctx, collection, query, true, latencyMs)
		return &Entry{
			Answer:     r.Metadata["answer"],
			Sources:    []byte(r.Metadata["sources"]),
			Model:      r.Metadata["model"],
			TokensUsed: tokensUsed,
			LatencyMs:  latencyMs,
			CreatedAt:  createdAt,
		}, true
	}

	c.recordStat(ctx, collection, query, false, 0)
	return nil, false
}

// Clear deletes every entry in the semantic cache by dropping and
// recreating the reserved cache collection.
func (c *Cache) Clear(ctx context.Context) error {
	exists, err := c.vectors.CollectionExists(ctx, vectorstore.QueryCacheCollection)
	if err != nil {
		return fmt.Errorf("checking cache collection: %w", err)
	}
	if exists {
		if err := c.vectors.DeleteCollection(ctx, vectorstore.QueryCacheCollection); err != nil {
			return fmt.Errorf("deleting cache collection: %w", err)
		}
	}
	if err := c.vectors.CreateCollection(ctx, vectorstore.QueryCacheCollection, c.embedder.Dimension()); err != nil {
		return fmt.Errorf("recreating cache collection: %w", err)
	}
	return nil
}

// Store records a query/answer pair in the cache, along with the model that
// produced it, its token usage, and the latency it took to produce so a
// future hit can report how much time it saved.
func (c *Cache) Store(ctx context.Context, collection, query, answer string, sourcesJSON []byte, model string, tokensUsed int, latencyMs int64) error {
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embedding cache entry: %w", err)
	}

	chunk := vectorstore.Chunk{
		ID:         pointID(collection, query),
		DocumentID: collection,
		Content:    query,
		Vector:     vec,
		Metadata: map[string]string{
			"collection":  collection,
			"answer":      answer,
			"sources":     string(sourcesJSON),
			"model":       model,
			"tokens_used": strconv.Itoa(tokensUsed),
			"latency_ms":  strconv.FormatInt(latencyMs, 10),
			"created_at":  time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := c.vectors.Upsert(ctx, vectorstore.QueryCacheCollection, []vectorstore.Chunk{chunk}); err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

func (c *Cache) recordStat(ctx context.Context, collection, query string, hit bool, savedLatencyMs int64) {
	if c.stats == nil {
		return
	}
	err := c.stats.Create(ctx, &store.CacheStat{
		ID:             uuid.New(),
		QueryHash:      pointID(collection, query),
		Hit:            hit,
		SavedLatencyMs: savedLatencyMs,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		c.logger.Warn("cache_stat_record_failed", slog.String("error", err.Error()))
	}
}

// pointID derives a deterministic point identifier for a (collection,
// query) pair: the first 8 bytes of sha256("collection:query"), masked
// into the positive int64 range (mod 2^63), encoded as a UUID so it can be
// used as a Qdrant point ID. Identical (collection, query) pairs always
// land on the same point, so storing a new answer overwrites the old one.
func pointID(collection, query string) string {
	h := sha256.Sum256([]byte(collection + ":" + query))
	n := binary.BigEndian.Uint64(h[:8]) & 0x7FFFFFFFFFFFFFFF

	var b [16]byte
	binary.BigEndian.PutUint64(b[8:], n)
	id, _ := uuid.FromBytes(b[:])
	return id.String()
}
