package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/rag/internal/store"
)

// EvalResultRepo implements store.EvalResultRepository.
type EvalResultRepo struct {
	db *DB
}

// NewEvalResultRepo creates a new eval result repository.
func NewEvalResultRepo(db *DB) *EvalResultRepo {
	return &EvalResultRepo{db: db}
}

// Create creates a new eval result.
func (r *EvalResultRepo) Create(ctx context.Context, e *store.EvalResult) error {
	query := `
		INSERT INTO eval_results (id, query_id, faithfulness, relevance, hallucination_rate, context_precision, context_recall, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		e.ID, e.QueryID, e.Faithfulness, e.Relevance, e.HallucinationRate,
		e.ContextPrecision, e.ContextRecall, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create eval result: %w", err)
	}
	return nil
}

// GetByQueryID retrieves the eval result for a given query log entry.
func (r *EvalResultRepo) GetByQueryID(ctx context.Context, queryID uuid.UUID) (*store.EvalResult, error) {
	query := `
		SELECT id, query_id, faithfulness, relevance, hallucination_rate, context_precision, context_recall, created_at
		FROM eval_results
		WHERE query_id = $1
	`
	var e store.EvalResult
	err := r.db.Pool.QueryRow(ctx, query, queryID).Scan(
		&e.ID, &e.QueryID, &e.Faithfulness, &e.Relevance, &e.HallucinationRate,
		&e.ContextPrecision, &e.ContextRecall, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get eval result: %w", err)
	}
	return &e, nil
}

// List retrieves recent eval results for the query logs of a collection.
func (r *EvalResultRepo) List(ctx context.Context, collection string, limit int) ([]*store.EvalResult, error) {
	query := `
		SELECT e.id, e.query_id, e.faithfulness, e.relevance, e.hallucination_rate, e.context_precision, e.context_recall, e.created_at
		FROM eval_results e
		JOIN query_log q ON q.id = e.query_id
		WHERE q.collection = $1
		ORDER BY e.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list eval results: %w", err)
	}
	defer rows.Close()

	var results []*store.EvalResult
	for rows.Next() {
		var e store.EvalResult
		if err := rows.Scan(&e.ID, &e.QueryID, &e.Faithfulness, &e.Relevance,
			&e.HallucinationRate, &e.ContextPrecision, &e.ContextRecall, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan eval result: %w", err)
		}
		results = append(results, &e)
	}

	return results, nil
}

// Ensure EvalResultRepo implements the interface.
var _ store.EvalResultRepository = (*EvalResultRepo)(nil)
