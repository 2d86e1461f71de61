package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knoguchi/rag/internal/tuner"
)

func TestOptimalParams_MissingCollectionReturns400(t *testing.T) {
	h := newTestHandlers()
	h.deps.Tuner = tuner.New(&fakeQueryLogs{})

	req := httptest.NewRequest(http.MethodGet, "/api/retrieval/optimal-params", nil)
	rec := httptest.NewRecorder()
	h.optimalParams(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestOptimalParams_NilTunerReturns503(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/api/retrieval/optimal-params?collection=docs", nil)
	rec := httptest.NewRecorder()
	h.optimalParams(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestOptimalParams_NotEnoughHistoryReturnsUnavailable(t *testing.T) {
	h := newTestHandlers()
	h.deps.Tuner = tuner.New(&fakeQueryLogs{})

	req := httptest.NewRequest(http.MethodGet, "/api/retrieval/optimal-params?collection=docs", nil)
	rec := httptest.NewRecorder()
	h.optimalParams(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
