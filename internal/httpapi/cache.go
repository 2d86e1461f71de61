package httpapi

import (
	"net/http"
)

func (h *handlers) cacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses, err := h.deps.CacheStats.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cache stats")
		return
	}

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"hit_rate": hitRate,
	})
}

func (h *handlers) clearCache(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache is not enabled")
		return
	}
	if err := h.deps.Cache.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
