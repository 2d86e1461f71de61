package postgres

import (
	"context"
	"fmt"

	"github.com/knoguchi/rag/internal/store"
)

// CacheStatRepo implements store.CacheStatRepository.
type CacheStatRepo struct {
	db *DB
}

// NewCacheStatRepo creates a new cache stat repository.
func NewCacheStatRepo(db *DB) *CacheStatRepo {
	return &CacheStatRepo{db: db}
}

// Create records one semantic cache lookup outcome.
func (r *CacheStatRepo) Create(ctx context.Context, s *store.CacheStat) error {
	query := `
		INSERT INTO cache_stats (id, query_hash, hit, saved_latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Pool.Exec(ctx, query, s.ID, s.QueryHash, s.Hit, s.SavedLatencyMs, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cache stat: %w", err)
	}
	return nil
}

// Stats returns the total number of cache hits and misses recorded.
func (r *CacheStatRepo) Stats(ctx context.Context) (hits, misses int64, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE hit),
			COUNT(*) FILTER (WHERE NOT hit)
		FROM cache_stats
	`
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&hits, &misses); err != nil {
		return 0, 0, fmt.Errorf("failed to get cache stats: %w", err)
	}
	return hits, misses, nil
}

// Ensure CacheStatRepo implements the interface.
var _ store.CacheStatRepository = (*CacheStatRepo)(nil)
