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

// TestSetRepo implements store.TestSetRepository.
type TestSetRepo struct {
	db *DB
}

// NewTestSetRepo creates a new test set repository.
func NewTestSetRepo(db *DB) *TestSetRepo {
	return &TestSetRepo{db: db}
}

// Create creates a new test set.
func (r *TestSetRepo) Create(ctx context.Context, ts *store.TestSet) error {
	questionsJSON, err := json.Marshal(ts.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	query := `
		INSERT INTO test_sets (id, name, collection, questions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.Pool.Exec(ctx, query, ts.ID, ts.Name, ts.Collection, questionsJSON, ts.CreatedAt, ts.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create test set: %w", err)
	}
	return nil
}

// GetByID retrieves a test set by ID.
func (r *TestSetRepo) GetByID(ctx context.Context, id uuid.UUID) (*store.TestSet, error) {
	query := `
		SELECT id, name, collection, questions, created_at, updated_at
		FROM test_sets
		WHERE id = $1
	`
	return r.scanTestSet(ctx, query, id)
}

// GetByName retrieves a test set by its unique name.
func (r *TestSetRepo) GetByName(ctx context.Context, name string) (*store.TestSet, error) {
	query := `
		SELECT id, name, collection, questions, created_at, updated_at
		FROM test_sets
		WHERE name = $1
	`
	return r.scanTestSet(ctx, query, name)
}

func (r *TestSetRepo) scanTestSet(ctx context.Context, query string, args ...any) (*store.TestSet, error) {
	var ts store.TestSet
	var questionsJSON []byte

	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&ts.ID, &ts.Name, &ts.Collection, &questionsJSON, &ts.CreatedAt, &ts.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get test set: %w", err)
	}

	if err := json.Unmarshal(questionsJSON, &ts.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}

	return &ts, nil
}

// List retrieves all test sets.
func (r *TestSetRepo) List(ctx context.Context) ([]*store.TestSet, error) {
	query := `
		SELECT id, name, collection, questions, created_at, updated_at
		FROM test_sets
		ORDER BY created_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list test sets: %w", err)
	}
	defer rows.Close()

	var sets []*store.TestSet
	for rows.Next() {
		var ts store.TestSet
		var questionsJSON []byte
		if err := rows.Scan(&ts.ID, &ts.Name, &ts.Collection, &questionsJSON, &ts.CreatedAt, &ts.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test set: %w", err)
		}
		if err := json.Unmarshal(questionsJSON, &ts.Questions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
		}
		sets = append(sets, &ts)
	}

	return sets, nil
}

// Delete deletes a test set.
func (r *TestSetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM test_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test set: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Ensure TestSetRepo implements the interface.
var _ store.TestSetRepository = (*TestSetRepo)(nil)
