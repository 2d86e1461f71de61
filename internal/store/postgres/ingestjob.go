package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/rag/internal/store"
)

// IngestJobRepo implements store.IngestJobRepository.
type IngestJobRepo struct {
	db *DB
}

// NewIngestJobRepo creates a new ingest job repository.
func NewIngestJobRepo(db *DB) *IngestJobRepo {
	return &IngestJobRepo{db: db}
}

// Create creates a new ingest job.
func (r *IngestJobRepo) Create(ctx context.Context, job *store.IngestJob) error {
	query := `
		INSERT INTO ingest_jobs (id, collection, status, file_name, document_id, chunk_count, error_message, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		job.ID, job.Collection, job.Status, job.FileName, job.DocumentID,
		job.ChunkCount, job.ErrorMessage, job.CreatedAt, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create ingest job: %w", err)
	}
	return nil
}

// GetByID retrieves an ingest job by ID.
func (r *IngestJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*store.IngestJob, error) {
	query := `
		SELECT id, collection, status, file_name, document_id, chunk_count, error_message, created_at, started_at, completed_at
		FROM ingest_jobs
		WHERE id = $1
	`
	var job store.IngestJob
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Collection, &job.Status, &job.FileName, &job.DocumentID,
		&job.ChunkCount, &job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ingest job: %w", err)
	}
	return &job, nil
}

// Update updates an ingest job.
func (r *IngestJobRepo) Update(ctx context.Context, job *store.IngestJob) error {
	query := `
		UPDATE ingest_jobs
		SET status = $2, document_id = $3, chunk_count = $4, error_message = $5,
		    started_at = $6, completed_at = $7
		WHERE id = $1
	`
	result, err := r.db.Pool.Exec(ctx, query,
		job.ID, job.Status, job.DocumentID, job.ChunkCount, job.ErrorMessage,
		job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update ingest job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List retrieves ingest jobs for a collection with pagination.
func (r *IngestJobRepo) List(ctx context.Context, collection, status string, limit, offset int) ([]*store.IngestJob, int, error) {
	countQuery := `SELECT COUNT(*) FROM ingest_jobs WHERE collection = $1`
	listQuery := `
		SELECT id, collection, status, file_name, document_id, chunk_count, error_message, created_at, started_at, completed_at
		FROM ingest_jobs
		WHERE collection = $1
	`
	args := []any{collection}

	if status != "" {
		countQuery += ` AND status = $2`
		listQuery += ` AND status = $2`
		args = append(args, status)
	}

	listQuery += ` ORDER BY created_at DESC LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2)

	var total int
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ingest jobs: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.db.Pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ingest jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*store.IngestJob
	for rows.Next() {
		var job store.IngestJob
		if err := rows.Scan(&job.ID, &job.Collection, &job.Status, &job.FileName, &job.DocumentID,
			&job.ChunkCount, &job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.CompletedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan ingest job: %w", err)
		}
		jobs = append(jobs, &job)
	}

	return jobs, total, nil
}

// Ensure IngestJobRepo implements the interface.
var _ store.IngestJobRepository = (*IngestJobRepo)(nil)
