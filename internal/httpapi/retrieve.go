package httpapi

import (
	"net/http"
)

type retrieveRequest struct {
	Collection   string  `json:"collection"`
	Query        string  `json:"query"`
	TopK         int     `json:"top_k,omitempty"`
	Alpha        float64 `json:"alpha,omitempty"`
	MinScore     float32 `json:"min_score,omitempty"`
	SourceFilter string  `json:"source_filter,omitempty"`
}

type retrievedChunk struct {
	ChunkID     string            `json:"chunk_id"`
	DocumentID  string            `json:"document_id"`
	Content     string            `json:"content"`
	Score       float64           `json:"score"`
	VectorScore float64           `json:"vector_score"`
	SparseScore float64           `json:"sparse_score"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (h *handlers) retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Collection == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "collection and query are required")
		return
	}

	cfg := h.deps.Config
	topK := req.TopK
	if topK <= 0 {
		topK = cfg.DefaultTopK
	}
	alpha := req.Alpha
	if alpha <= 0 {
		alpha = cfg.DefaultAlpha
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = cfg.DefaultMinScore
	}

	results, err := h.deps.Ranker.Search(r.Context(), req.Collection, req.Query, alpha, topK, minScore)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "retrieval failed")
		return
	}

	chunks := make([]retrievedChunk, 0, len(results))
	for _, res := range results {
		if req.SourceFilter != "" && res.Metadata["source"] != req.SourceFilter {
			continue
		}
		chunks = append(chunks, retrievedChunk{
			ChunkID:     res.ID,
			DocumentID:  res.DocumentID,
			Content:     res.Content,
			Score:       res.Score,
			VectorScore: res.VectorScore,
			SparseScore: res.SparseScore,
			Metadata:    res.Metadata,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": chunks})
}
