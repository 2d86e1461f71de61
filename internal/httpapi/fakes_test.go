package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/llm"
	"github.com/knoguchi/rag/internal/store"
	"github.com/knoguchi/rag/internal/vectorstore"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) GenerateStream(ctx context.Context, prompt string, opts llm.GenerateOptions) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	close(ch)
	return ch, nil
}

type fakeVectors struct {
	collections []string
	deleted     []string
	existsMap   map[string]bool
	err         error
}

func (f *fakeVectors) CreateCollection(ctx context.Context, collection string, dimension int) error {
	return nil
}
func (f *fakeVectors) DeleteCollection(ctx context.Context, collection string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, collection)
	return nil
}
func (f *fakeVectors) CollectionExists(ctx context.Context, collection string) (bool, error) {
	return f.existsMap[collection], nil
}
func (f *fakeVectors) ListCollections(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.collections, nil
}
func (f *fakeVectors) Upsert(ctx context.Context, collection string, chunks []vectorstore.Chunk) error {
	return nil
}
func (f *fakeVectors) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float32) ([]vectorstore.SearchResult, error) {
	return nil, nil
}
func (f *fakeVectors) Delete(ctx context.Context, collection, documentID string) error { return nil }
func (f *fakeVectors) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	return nil
}

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeEmbedder) Dimension() int    { return f.dim }
func (f *fakeEmbedder) ModelName() string { return "fake" }

type fakeCacheStats struct {
	hits, misses int64
	err          error
}

func (f *fakeCacheStats) Create(ctx context.Context, s *store.CacheStat) error { return nil }
func (f *fakeCacheStats) Stats(ctx context.Context) (int64, int64, error) {
	return f.hits, f.misses, f.err
}

type fakeQueryLogs struct{}

func (f *fakeQueryLogs) Create(ctx context.Context, q *store.QueryLog) error { return nil }
func (f *fakeQueryLogs) GetByID(ctx context.Context, id uuid.UUID) (*store.QueryLog, error) {
	return nil, store.ErrNotFound
}
func (f *fakeQueryLogs) List(ctx context.Context, collection string, limit, offset int) ([]*store.QueryLog, error) {
	return nil, nil
}
func (f *fakeQueryLogs) ListForTuning(ctx context.Context, collection string, limit int) ([]*store.TuningRow, error) {
	return nil, nil
}

type fakeEvalResults struct {
	results []*store.EvalResult
	err     error
}

func (f *fakeEvalResults) Create(ctx context.Context, r *store.EvalResult) error { return nil }
func (f *fakeEvalResults) GetByQueryID(ctx context.Context, queryID uuid.UUID) (*store.EvalResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.results {
		if r.QueryID == queryID {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}
func (f *fakeEvalResults) List(ctx context.Context, collection string, limit int) ([]*store.EvalResult, error) {
	return f.results, f.err
}

type fakeTestSets struct {
	sets []*store.TestSet
	err  error
}

func (f *fakeTestSets) Create(ctx context.Context, ts *store.TestSet) error {
	if f.err != nil {
		return f.err
	}
	f.sets = append(f.sets, ts)
	return nil
}
func (f *fakeTestSets) GetByID(ctx context.Context, id uuid.UUID) (*store.TestSet, error) {
	for _, s := range f.sets {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, store.ErrNotFound
}
func (f *fakeTestSets) GetByName(ctx context.Context, name string) (*store.TestSet, error) {
	return nil, store.ErrNotFound
}
func (f *fakeTestSets) List(ctx context.Context) ([]*store.TestSet, error) { return f.sets, f.err }
func (f *fakeTestSets) Delete(ctx context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	for i, s := range f.sets {
		if s.ID == id {
			f.sets = append(f.sets[:i], f.sets[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeEvalRuns struct {
	runs []*store.EvalRun
	err  error
}

func (f *fakeEvalRuns) Create(ctx context.Context, run *store.EvalRun) error { return nil }
func (f *fakeEvalRuns) GetByID(ctx context.Context, id uuid.UUID) (*store.EvalRun, error) {
	return nil, store.ErrNotFound
}
func (f *fakeEvalRuns) Update(ctx context.Context, run *store.EvalRun) error { return nil }
func (f *fakeEvalRuns) List(ctx context.Context, limit, offset int) ([]*store.EvalRun, error) {
	return f.runs, f.err
}
