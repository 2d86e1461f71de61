package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/rag/internal/store"
)

// QueryLogRepo implements store.QueryLogRepository.
type QueryLogRepo struct {
	db *DB
}

// NewQueryLogRepo creates a new query log repository.
func NewQueryLogRepo(db *DB) *QueryLogRepo {
	return &QueryLogRepo{db: db}
}

// Create creates a new query log entry.
func (r *QueryLogRepo) Create(ctx context.Context, q *store.QueryLog) error {
	query := `
		INSERT INTO query_log (id, collection, query, answer, sources, model, tokens_used,
			latency_ms, latency_retrieval_ms, latency_generation_ms, cost_usd, alpha, top_k, cache_hit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		q.ID, q.Collection, q.Query, q.Answer, q.Sources, q.Model, q.TokensUsed,
		q.LatencyMs, q.LatencyRetrievalMs, q.LatencyGenerationMs, q.CostUSD,
		q.Alpha, q.TopK, q.CacheHit, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create query log: %w", err)
	}
	return nil
}

// GetByID retrieves a query log entry by ID.
func (r *QueryLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*store.QueryLog, error) {
	query := `
		SELECT id, collection, query, answer, sources, model, tokens_used,
			latency_ms, latency_retrieval_ms, latency_generation_ms, cost_usd, alpha, top_k, cache_hit, created_at
		FROM query_log
		WHERE id = $1
	`
	var q store.QueryLog
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.Collection, &q.Query, &q.Answer, &q.Sources, &q.Model, &q.TokensUsed,
		&q.LatencyMs, &q.LatencyRetrievalMs, &q.LatencyGenerationMs, &q.CostUSD,
		&q.Alpha, &q.TopK, &q.CacheHit, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get query log: %w", err)
	}
	return &q, nil
}

// List retrieves query log entries for a collection, most recent first.
func (r *QueryLogRepo) List(ctx context.Context, collection string, limit, offset int) ([]*store.QueryLog, error) {
	query := `
		SELECT id, collection, query, answer, sources, model, tokens_used,
			latency_ms, latency_retrieval_ms, latency_generation_ms, cost_usd, alpha, top_k, cache_hit, created_at
		FROM query_log
		WHERE collection = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Pool.Query(ctx, query, collection, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list query log: %w", err)
	}
	defer rows.Close()

	var logs []*store.QueryLog
	for rows.Next() {
		var q store.QueryLog
		if err := rows.Scan(&q.ID, &q.Collection, &q.Query, &q.Answer, &q.Sources, &q.Model, &q.TokensUsed,
			&q.LatencyMs, &q.LatencyRetrievalMs, &q.LatencyGenerationMs, &q.CostUSD,
			&q.Alpha, &q.TopK, &q.CacheHit, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}
		logs = append(logs, &q)
	}

	return logs, nil
}

// ListForTuning returns up to limit query_log rows joined to eval_results for
// collection, most recent first, restricted to rows with a recorded alpha
// and both faithfulness and relevance scores. This is the input the
// auto-tuner mines to pick the best-performing alpha and top_k buckets.
func (r *QueryLogRepo) ListForTuning(ctx context.Context, collection string, limit int) ([]*store.TuningRow, error) {
	query := `
		SELECT q.alpha, q.top_k, e.faithfulness, e.relevance
		FROM query_log q
		JOIN eval_results e ON e.query_id = q.id
		WHERE q.collection = $1
			AND q.alpha IS NOT NULL
			AND e.faithfulness IS NOT NULL
			AND e.relevance IS NOT NULL
		ORDER BY q.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tuning rows: %w", err)
	}
	defer rows.Close()

	var out []*store.TuningRow
	for rows.Next() {
		var t store.TuningRow
		if err := rows.Scan(&t.Alpha, &t.TopK, &t.Faithfulness, &t.Relevance); err != nil {
			return nil, fmt.Errorf("failed to scan tuning row: %w", err)
		}
		out = append(out, &t)
	}

	return out, nil
}

// Ensure QueryLogRepo implements the interface.
var _ store.QueryLogRepository = (*QueryLogRepo)(nil)
