package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *handlers) listMetrics(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := h.deps.EvalResults.List(r.Context(), collection, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list metrics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *handlers) getMetrics(w http.ResponseWriter, r *http.Request) {
	queryID, err := uuid.Parse(chi.URLParam(r, "query_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query_id")
		return
	}

	result, err := h.deps.EvalResults.GetByQueryID(r.Context(), queryID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no metrics recorded for this query")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
