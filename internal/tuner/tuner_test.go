package tuner

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/store"
)

type fakeQueryLogRepo struct {
	rows []*store.TuningRow
	err  error
}

func (f *fakeQueryLogRepo) Create(ctx context.Context, q *store.QueryLog) error { return nil }
func (f *fakeQueryLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*store.QueryLog, error) {
	return nil, store.ErrNotFound
}
func (f *fakeQueryLogRepo) List(ctx context.Context, collection string, limit, offset int) ([]*store.QueryLog, error) {
	return nil, nil
}
func (f *fakeQueryLogRepo) ListForTuning(ctx context.Context, collection string, limit int) ([]*store.TuningRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func row(alpha float64, topK int, faithfulness, relevance float64) *store.TuningRow {
	return &store.TuningRow{Alpha: alpha, TopK: topK, Faithfulness: faithfulness, Relevance: relevance}
}

func TestRecommend_NotEnoughHistory(t *testing.T) {
	repo := &fakeQueryLogRepo{rows: []*store.TuningRow{row(0.5, 4, 0.9, 0.9)}}
	tn := New(repo)

	_, ok, err := tn.Recommend(context.Background(), "docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no recommendation with insufficient history")
	}
}

func TestRecommend_PicksBestPerformingBucket(t *testing.T) {
	var rows []*store.TuningRow
	// Bucket A: alpha 0.5, topK 4 — mediocre quality, enough samples.
	for i := 0; i < 4; i++ {
		rows = append(rows, row(0.5, 4, 0.5, 0.5))
	}
	// Bucket B: alpha 0.8, topK 6 — best quality, enough samples.
	for i := 0; i < 4; i++ {
		rows = append(rows, row(0.8, 6, 0.95, 0.95))
	}
	// Pad past the minimum query threshold with more of bucket A.
	for i := 0; i < 4; i++ {
		rows = append(rows, row(0.5, 4, 0.5, 0.5))
	}

	repo := &fakeQueryLogRepo{rows: rows}
	tn := New(repo)

	rec, ok, err := tn.Recommend(context.Background(), "docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a recommendation")
	}
	if rec.Alpha != 0.8 || rec.TopK != 6 {
		t.Errorf("expected best bucket (0.8, 6), got (%v, %d)", rec.Alpha, rec.TopK)
	}
	if rec.AlphaSampleCount != 4 {
		t.Errorf("expected 4 samples in winning alpha bucket, got %d", rec.AlphaSampleCount)
	}
	if rec.TopKSampleCount != 4 {
		t.Errorf("expected 4 samples in winning top_k bucket, got %d", rec.TopKSampleCount)
	}
}

func TestRecommend_SkipsBucketsBelowMinSamples(t *testing.T) {
	var rows []*store.TuningRow
	// Bucket A: only 2 samples but perfect quality — below MinSamplesPerBucket.
	rows = append(rows, row(0.9, 8, 1.0, 1.0), row(0.9, 8, 1.0, 1.0))
	// Bucket B: enough samples, lower quality — should win by default.
	for i := 0; i < 8; i++ {
		rows = append(rows, row(0.3, 2, 0.4, 0.4))
	}

	repo := &fakeQueryLogRepo{rows: rows}
	tn := New(repo)

	rec, ok, err := tn.Recommend(context.Background(), "docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a recommendation")
	}
	if rec.Alpha != 0.3 || rec.TopK != 2 {
		t.Errorf("expected under-sampled bucket to be skipped, got (%v, %d)", rec.Alpha, rec.TopK)
	}
}

// The best alpha and the best top_k can come from entirely different rows:
// each dimension is maximized independently, not as a joint pair.
func TestRecommend_PicksAlphaAndTopKIndependently(t *testing.T) {
	var rows []*store.TuningRow
	// alpha=0.2 appears only paired with topK=4, at good quality.
	for i := 0; i < 3; i++ {
		rows = append(rows, row(0.2, 4, 0.8, 0.8))
	}
	// topK=10 appears only paired with alpha=0.9, at fairly good quality.
	for i := 0; i < 3; i++ {
		rows = append(rows, row(0.9, 10, 0.7, 0.7))
	}
	// alpha=0.9 paired with topK=4 is poor, pulling both of those buckets
	// down. The winners, alpha=0.2 and topK=10, never share a row, so
	// bucketing jointly on (alpha, topK) could not recommend them together.
	for i := 0; i < 4; i++ {
		rows = append(rows, row(0.9, 4, 0.1, 0.1))
	}

	repo := &fakeQueryLogRepo{rows: rows}
	tn := New(repo)

	rec, ok, err := tn.Recommend(context.Background(), "docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a recommendation")
	}
	if rec.Alpha != 0.2 {
		t.Errorf("expected best-performing alpha bucket 0.2, got %v", rec.Alpha)
	}
	if rec.TopK != 10 {
		t.Errorf("expected best-performing top_k bucket 10, got %d", rec.TopK)
	}
}

func TestRecommend_PropagatesRepositoryError(t *testing.T) {
	repo := &fakeQueryLogRepo{err: errors.New("db unavailable")}
	tn := New(repo)

	_, _, err := tn.Recommend(context.Background(), "docs")
	if err == nil {
		t.Error("expected error to propagate")
	}
}

func TestSnapAlpha(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.52, 0.5},
		{0.55, 0.6},
		{0.849, 0.8},
	}
	for _, tt := range tests {
		if got := snapAlpha(tt.in); got != tt.want {
			t.Errorf("snapAlpha(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
