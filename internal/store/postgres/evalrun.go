package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/rag/internal/store"
)

// EvalRunRepo implements store.EvalRunRepository.
type EvalRunRepo struct {
	db *DB
}

// NewEvalRunRepo creates a new eval run repository.
func NewEvalRunRepo(db *DB) *EvalRunRepo {
	return &EvalRunRepo{db: db}
}

// Create creates a new eval run.
func (r *EvalRunRepo) Create(ctx context.Context, run *store.EvalRun) error {
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	averagesJSON, err := json.Marshal(run.Averages)
	if err != nil {
		return fmt.Errorf("failed to marshal averages: %w", err)
	}

	query := `
		INSERT INTO eval_runs (id, test_set_id, status, results, averages, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		run.ID, run.TestSetID, run.Status, resultsJSON, averagesJSON,
		run.CreatedAt, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create eval run: %w", err)
	}
	return nil
}

// GetByID retrieves an eval run by ID.
func (r *EvalRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*store.EvalRun, error) {
	query := `
		SELECT id, test_set_id, status, results, averages, created_at, started_at, completed_at
		FROM eval_runs
		WHERE id = $1
	`
	return r.scanEvalRun(ctx, query, id)
}

func (r *EvalRunRepo) scanEvalRun(ctx context.Context, query string, args ...any) (*store.EvalRun, error) {
	var run store.EvalRun
	var resultsJSON, averagesJSON []byte

	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&run.ID, &run.TestSetID, &run.Status, &resultsJSON, &averagesJSON,
		&run.CreatedAt, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get eval run: %w", err)
	}

	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &run.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}
	if len(averagesJSON) > 0 && string(averagesJSON) != "null" {
		if err := json.Unmarshal(averagesJSON, &run.Averages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal averages: %w", err)
		}
	}

	return &run, nil
}

// Update updates an eval run.
func (r *EvalRunRepo) Update(ctx context.Context, run *store.EvalRun) error {
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	averagesJSON, err := json.Marshal(run.Averages)
	if err != nil {
		return fmt.Errorf("failed to marshal averages: %w", err)
	}

	query := `
		UPDATE eval_runs
		SET status = $2, results = $3, averages = $4, started_at = $5, completed_at = $6
		WHERE id = $1
	`
	result, err := r.db.Pool.Exec(ctx, query, run.ID, run.Status, resultsJSON, averagesJSON, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update eval run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List retrieves eval runs with pagination, most recent first.
func (r *EvalRunRepo) List(ctx context.Context, limit, offset int) ([]*store.EvalRun, error) {
	query := `
		SELECT id, test_set_id, status, results, averages, created_at, started_at, completed_at
		FROM eval_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list eval runs: %w", err)
	}
	defer rows.Close()

	var runs []*store.EvalRun
	for rows.Next() {
		var run store.EvalRun
		var resultsJSON, averagesJSON []byte
		if err := rows.Scan(&run.ID, &run.TestSetID, &run.Status, &resultsJSON, &averagesJSON,
			&run.CreatedAt, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan eval run: %w", err)
		}
		if len(resultsJSON) > 0 {
			if err := json.Unmarshal(resultsJSON, &run.Results); err != nil {
				return nil, fmt.Errorf("failed to unmarshal results: %w", err)
			}
		}
		if len(averagesJSON) > 0 && string(averagesJSON) != "null" {
			if err := json.Unmarshal(averagesJSON, &run.Averages); err != nil {
				return nil, fmt.Errorf("failed to unmarshal averages: %w", err)
			}
		}
		runs = append(runs, &run)
	}

	return runs, nil
}

// Ensure EvalRunRepo implements the interface.
var _ store.EvalRunRepository = (*EvalRunRepo)(nil)
