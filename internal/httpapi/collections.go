package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) listCollections(w http.ResponseWriter, r *http.Request) {
	names, err := h.deps.Vectors.ListCollections(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "vector store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": names})
}

func (h *handlers) deleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing collection name")
		return
	}

	if err := h.deps.Vectors.DeleteCollection(r.Context(), name); err != nil {
		writeError(w, http.StatusServiceUnavailable, "failed to delete collection")
		return
	}

	if h.deps.Sparse != nil {
		if err := h.deps.Sparse.DeleteCollection(name); err != nil {
			h.logger.Warn("sparse_delete_collection_failed", "collection", name, "error", err.Error())
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "collection": name})
}
