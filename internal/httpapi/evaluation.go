package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

type evaluateBatchRequest struct {
	TestSetID string `json:"test_set_id"`
}

// evaluateBatch kicks off a batch evaluation run in the background and
// returns immediately with the run's id so the caller can poll it via
// GET /api/evaluate/runs.
func (h *handlers) evaluateBatch(w http.ResponseWriter, r *http.Request) {
	if h.deps.Evaluator == nil {
		writeError(w, http.StatusServiceUnavailable, "evaluation is not enabled")
		return
	}

	var req evaluateBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	testSetID, err := uuid.Parse(req.TestSetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid test_set_id")
		return
	}

	go func() {
		ctx := context.Background()
		if _, err := h.deps.Evaluator.Run(ctx, testSetID); err != nil {
			h.logger.Error("eval_run_failed", "test_set_id", testSetID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"test_set_id": testSetID,
		"status":      "started",
	})
}

func (h *handlers) listEvalRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	runs, err := h.deps.EvalRuns.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list eval runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"eval_runs": runs})
}
