package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/store"
)

func TestListMetrics_ReturnsResults(t *testing.T) {
	h := newTestHandlers()
	h.deps.EvalResults = &fakeEvalResults{results: []*store.EvalResult{{ID: uuid.New()}}}

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	rec := httptest.NewRecorder()
	h.listMetrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetMetrics_InvalidQueryIDReturns400(t *testing.T) {
	h := newTestHandlers()
	h.deps.EvalResults = &fakeEvalResults{}

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/not-a-uuid", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("query_id", "not-a-uuid")
	req = req.WithContext(withChiContext(req, rctx))
	rec := httptest.NewRecorder()
	h.getMetrics(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetMetrics_NotFoundReturns404(t *testing.T) {
	h := newTestHandlers()
	h.deps.EvalResults = &fakeEvalResults{}

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/metrics/"+id.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("query_id", id.String())
	req = req.WithContext(withChiContext(req, rctx))
	rec := httptest.NewRecorder()
	h.getMetrics(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetMetrics_FoundReturns200(t *testing.T) {
	id := uuid.New()
	h := newTestHandlers()
	h.deps.EvalResults = &fakeEvalResults{results: []*store.EvalResult{{ID: uuid.New(), QueryID: id}}}

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/"+id.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("query_id", id.String())
	req = req.WithContext(withChiContext(req, rctx))
	rec := httptest.NewRecorder()
	h.getMetrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
