// Package store defines domain models and relational persistence interfaces
// for documents, ingestion jobs, query history, evaluation results, and the
// auto-tuner's input data.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Document represents an ingested document within a collection.
type Document struct {
	ID           uuid.UUID
	Collection   string
	Source       string
	Title        string
	ContentHash  string
	ChunkCount   int
	Status       string // pending, processing, completed, failed
	ErrorMessage string
	Metadata     map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DocumentChunk represents one chunk of a document.
type DocumentChunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Content    string
	Metadata   map[string]string
	CreatedAt  time.Time
}

// IngestJob tracks the background ingestion of one upload.
type IngestJob struct {
	ID           uuid.UUID
	Collection   string
	Status       string // pending, processing, completed, failed
	FileName     string
	DocumentID   *uuid.UUID
	ChunkCount   int
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// QueryLog records one query pipeline execution.
type QueryLog struct {
	ID                 uuid.UUID
	Collection         string
	Query              string
	Answer             string
	Sources            []byte // JSON-encoded []prompt.Source
	Model              string
	TokensUsed         int
	LatencyMs          int64
	LatencyRetrievalMs int64
	LatencyGenerationMs int64
	CostUSD            float64
	Alpha              float64
	TopK               int
	CacheHit           bool
	CreatedAt          time.Time
}

// EvalResult records the quality scores for one QueryLog.
type EvalResult struct {
	ID                uuid.UUID
	QueryID            uuid.UUID
	Faithfulness       *float64
	Relevance          *float64
	HallucinationRate  *float64
	ContextPrecision   *float64
	ContextRecall      *float64
	CreatedAt          time.Time
}

// CacheStat records one semantic cache lookup outcome.
type CacheStat struct {
	ID              uuid.UUID
	QueryHash        string
	Hit              bool
	SavedLatencyMs    int64
	CreatedAt        time.Time
}

// TestQuestion is one question within a TestSet.
type TestQuestion struct {
	Question     string `json:"question"`
	GroundTruth  string `json:"ground_truth,omitempty"`
}

// TestSet is a named, reusable set of evaluation questions bound to a collection.
type TestSet struct {
	ID         uuid.UUID
	Name       string
	Collection string
	Questions  []TestQuestion
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EvalRunQuestionResult is one question's outcome within a batch evaluation run.
type EvalRunQuestionResult struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer,omitempty"`
	Faithfulness *float64 `json:"faithfulness,omitempty"`
	Relevance    *float64 `json:"relevance,omitempty"`
	HallucinationRate *float64 `json:"hallucination_rate,omitempty"`
	ContextPrecision  *float64 `json:"context_precision,omitempty"`
	ContextRecall     *float64 `json:"context_recall,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// EvalRunAverages aggregates the per-question scores of a completed run.
type EvalRunAverages struct {
	Faithfulness      float64 `json:"faithfulness"`
	Relevance         float64 `json:"relevance"`
	HallucinationRate float64 `json:"hallucination_rate"`
	ContextPrecision  float64 `json:"context_precision"`
	ContextRecall     float64 `json:"context_recall"`
	SampleCount       int     `json:"sample_count"`
}

// EvalRun is one execution of a TestSet through the batch evaluator.
type EvalRun struct {
	ID          uuid.UUID
	TestSetID   uuid.UUID
	Status      string // pending, running, completed, failed
	Results     []EvalRunQuestionResult
	Averages    *EvalRunAverages
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// DocumentRepository persists documents and their chunks.
type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	GetByHash(ctx context.Context, collection, hash string) (*Document, error)
	List(ctx context.Context, collection, status string, limit, offset int) ([]*Document, int, error)
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateChunks(ctx context.Context, chunks []*DocumentChunk) error
	GetChunks(ctx context.Context, documentID uuid.UUID, limit, offset int) ([]*DocumentChunk, error)
	DeleteChunks(ctx context.Context, documentID uuid.UUID) error
}

// IngestJobRepository persists background ingestion job state.
type IngestJobRepository interface {
	Create(ctx context.Context, job *IngestJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*IngestJob, error)
	Update(ctx context.Context, job *IngestJob) error
	List(ctx context.Context, collection, status string, limit, offset int) ([]*IngestJob, int, error)
}

// QueryLogRepository persists query pipeline executions.
type QueryLogRepository interface {
	Create(ctx context.Context, q *QueryLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*QueryLog, error)
	List(ctx context.Context, collection string, limit, offset int) ([]*QueryLog, error)
	// ListForTuning returns up to `limit` query_log rows joined to eval_results
	// for collection, most recent first, restricted to rows where alpha and
	// both faithfulness and relevance are non-null.
	ListForTuning(ctx context.Context, collection string, limit int) ([]*TuningRow, error)
}

// TuningRow is the joined projection the auto-tuner mines.
type TuningRow struct {
	Alpha        float64
	TopK         int
	Faithfulness float64
	Relevance    float64
}

// EvalResultRepository persists per-query evaluation scores.
type EvalResultRepository interface {
	Create(ctx context.Context, r *EvalResult) error
	GetByQueryID(ctx context.Context, queryID uuid.UUID) (*EvalResult, error)
	List(ctx context.Context, collection string, limit int) ([]*EvalResult, error)
}

// CacheStatRepository persists semantic cache hit/miss events.
type CacheStatRepository interface {
	Create(ctx context.Context, s *CacheStat) error
	Stats(ctx context.Context) (hits, misses int64, err error)
}

// TestSetRepository persists named evaluation test sets.
type TestSetRepository interface {
	Create(ctx context.Context, ts *TestSet) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestSet, error)
	GetByName(ctx context.Context, name string) (*TestSet, error)
	List(ctx context.Context) ([]*TestSet, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EvalRunRepository persists batch evaluation runs.
type EvalRunRepository interface {
	Create(ctx context.Context, run *EvalRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*EvalRun, error)
	Update(ctx context.Context, run *EvalRun) error
	List(ctx context.Context, limit, offset int) ([]*EvalRun, error)
}
