package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knoguchi/rag/internal/store"
)

func TestEvaluateBatch_NilEvaluatorReturns503(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate/batch", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	h.evaluateBatch(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestListEvalRuns_DefaultsLimitAndOffset(t *testing.T) {
	h := newTestHandlers()
	h.deps.EvalRuns = &fakeEvalRuns{runs: []*store.EvalRun{{}}}

	req := httptest.NewRequest(http.MethodGet, "/api/evaluate/runs", nil)
	rec := httptest.NewRecorder()
	h.listEvalRuns(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestListEvalRuns_RepositoryErrorReturns500(t *testing.T) {
	h := newTestHandlers()
	h.deps.EvalRuns = &fakeEvalRuns{err: errBoom}

	req := httptest.NewRequest(http.MethodGet, "/api/evaluate/runs", nil)
	rec := httptest.NewRecorder()
	h.listEvalRuns(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestListEvalRuns_RespectsLimitQueryParam(t *testing.T) {
	h := newTestHandlers()
	h.deps.EvalRuns = &fakeEvalRuns{runs: []*store.EvalRun{{}, {}}}

	req := httptest.NewRequest(http.MethodGet, "/api/evaluate/runs?limit=2&offset=1", nil)
	rec := httptest.NewRecorder()
	h.listEvalRuns(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
