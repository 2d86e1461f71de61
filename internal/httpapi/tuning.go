package httpapi

import (
	"net/http"
)

func (h *handlers) optimalParams(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	if collection == "" {
		writeError(w, http.StatusBadRequest, "collection is required")
		return
	}
	if h.deps.Tuner == nil {
		writeError(w, http.StatusServiceUnavailable, "auto-tuning is not enabled")
		return
	}

	rec, ok, err := h.deps.Tuner.Recommend(r.Context(), collection)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute recommendation")
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"available": false,
			"reason":    "not enough query history for this collection yet",
		})
		return
	}

	resp := map[string]any{"available": true}
	if rec.AlphaFound {
		resp["alpha"] = rec.Alpha
		resp["alpha_mean_quality"] = rec.AlphaQuality
		resp["alpha_sample_count"] = rec.AlphaSampleCount
	}
	if rec.TopKFound {
		resp["top_k"] = rec.TopK
		resp["top_k_mean_quality"] = rec.TopKQuality
		resp["top_k_sample_count"] = rec.TopKSampleCount
	}
	writeJSON(w, http.StatusOK, resp)
}
