package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/store"
)

type createTestSetRequest struct {
	Name       string               `json:"name"`
	Collection string               `json:"collection"`
	Questions  []store.TestQuestion `json:"questions"`
}

func (h *handlers) createTestSet(w http.ResponseWriter, r *http.Request) {
	var req createTestSetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Collection == "" || len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "name, collection, and at least one question are required")
		return
	}

	now := time.Now().UTC()
	ts := &store.TestSet{
		ID:         uuid.New(),
		Name:       req.Name,
		Collection: req.Collection,
		Questions:  req.Questions,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.deps.TestSets.Create(r.Context(), ts); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create test set")
		return
	}

	writeJSON(w, http.StatusCreated, ts)
}

func (h *handlers) listTestSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.deps.TestSets.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list test sets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"test_sets": sets})
}

func (h *handlers) deleteTestSet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid test set id")
		return
	}
	if err := h.deps.TestSets.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "test set not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type autoGenerateTestSetRequest struct {
	Name        string `json:"name"`
	Collection  string `json:"collection"`
	SampleQuery string `json:"sample_query"`
	Count       int    `json:"count,omitempty"`
}

// autoGenerateTestSet drafts a test set by asking the configured LLM to
// propose representative questions for a collection, seeded from a sample
// query the caller already knows is relevant.
func (h *handlers) autoGenerateTestSet(w http.ResponseWriter, r *http.Request) {
	var req autoGenerateTestSetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Collection == "" {
		writeError(w, http.StatusBadRequest, "name and collection are required")
		return
	}
	count := req.Count
	if count <= 0 {
		count = 5
	}

	questions, err := h.generateQuestions(r.Context(), req.Collection, req.SampleQuery, count)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate questions")
		return
	}

	now := time.Now().UTC()
	ts := &store.TestSet{
		ID:         uuid.New(),
		Name:       req.Name,
		Collection: req.Collection,
		Questions:  questions,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.deps.TestSets.Create(r.Context(), ts); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create test set")
		return
	}

	writeJSON(w, http.StatusCreated, ts)
}
