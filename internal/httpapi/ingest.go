package httpapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/ingestion"
	"github.com/knoguchi/rag/internal/sparse"
	"github.com/knoguchi/rag/internal/store"
	"github.com/knoguchi/rag/internal/vectorstore"
)

// allowedIngestExtensions are the document types the chunker can consume
// directly as plain text. PDF/DOCX loaders are an external collaborator
// per spec and are not implemented here.
var allowedIngestExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

type uploadedFile struct {
	name    string
	content string
}

func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	cfg := h.deps.Config
	maxUploadBytes := int64(cfg.MaxFileSizeMB) * int64(cfg.MaxFilesPerUpload) * 1024 * 1024
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	collection := r.FormValue("collection")
	if collection == "" {
		writeError(w, http.StatusBadRequest, "collection is required")
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	if len(fileHeaders) > cfg.MaxFilesPerUpload {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many files: max %d per upload", cfg.MaxFilesPerUpload))
		return
	}

	maxFileBytes := int64(cfg.MaxFileSizeMB) * 1024 * 1024
	files := make([]uploadedFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		if fh.Size > maxFileBytes {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file %q exceeds max size of %d MB", fh.Filename, cfg.MaxFileSizeMB))
			return
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !allowedIngestExtensions[ext] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file extension %q", ext))
			return
		}

		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		files = append(files, uploadedFile{name: fh.Filename, content: string(content)})
	}

	if exists, err := h.deps.Vectors.CollectionExists(r.Context(), collection); err != nil {
		writeError(w, http.StatusServiceUnavailable, "vector store unreachable")
		return
	} else if !exists {
		if err := h.deps.Vectors.CreateCollection(r.Context(), collection, h.deps.Embedder.Dimension()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "vector store unreachable")
			return
		}
	}

	now := time.Now().UTC()
	job := &store.IngestJob{
		ID:         uuid.New(),
		Collection: collection,
		Status:     "pending",
		FileName:   joinFileNames(files),
		CreatedAt:  now,
	}
	if err := h.deps.IngestJobs.Create(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create ingest job")
		return
	}

	go h.runIngestJob(job.ID, collection, files)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":  job.ID.String(),
		"status":  job.Status,
		"message": fmt.Sprintf("accepted %d file(s) for ingestion", len(files)),
	})
}

func joinFileNames(files []uploadedFile) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return strings.Join(names, ", ")
}

// runIngestJob processes an upload in the background, outside the request
// lifetime. The request has already returned the job id to the caller.
func (h *handlers) runIngestJob(jobID uuid.UUID, collection string, files []uploadedFile) {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	job, err := h.deps.IngestJobs.GetByID(ctx, jobID)
	if err != nil {
		h.logger.Error("ingest_job_lookup_failed", slog.String("job_id", jobID.String()), slog.String("error", err.Error()))
		return
	}
	job.Status = "processing"
	job.StartedAt = &startedAt
	_ = h.deps.IngestJobs.Update(ctx, job)

	pipe := ingestion.NewPipelineWithDefaults()
	totalChunks := 0
	var firstDocID *uuid.UUID

	for _, f := range files {
		result, err := pipe.ProcessWithMetadata(ctx, f.content, map[string]string{"source": f.name})
		if err != nil {
			h.failIngestJob(ctx, job, err)
			return
		}

		doc := &store.Document{
			ID:          result.DocumentID,
			Collection:  collection,
			Source:      f.name,
			Title:       f.name,
			ContentHash: result.ContentHash,
			ChunkCount:  len(result.Chunks),
			Status:      "processing",
			CreatedAt:   time.Now().UTC(),
			UpdatedAt:   time.Now().UTC(),
		}
		if existing, err := h.deps.Documents.GetByHash(ctx, collection, result.ContentHash); err == nil && existing != nil {
			h.logger.Info("ingest_duplicate_skipped", slog.String("source", f.name))
			continue
		}
		if err := h.deps.Documents.Create(ctx, doc); err != nil {
			h.failIngestJob(ctx, job, err)
			return
		}
		if firstDocID == nil {
			firstDocID = &doc.ID
		}

		texts := make([]string, len(result.Chunks))
		for i, c := range result.Chunks {
			texts[i] = c.Content
		}
		vectors, err := h.deps.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			h.failIngestJob(ctx, job, err)
			return
		}

		vsChunks := make([]vectorstore.Chunk, len(result.Chunks))
		docChunks := ingestion.ChunksToDocumentChunks(result.Chunks, doc.ID)
		sparseDocs := make([]sparse.Document, len(result.Chunks))
		for i, c := range result.Chunks {
			id := fmt.Sprintf("%s:%d", doc.ID.String(), c.Index)
			vsChunks[i] = vectorstore.Chunk{
				ID:         id,
				DocumentID: doc.ID.String(),
				Collection: collection,
				Content:    c.Content,
				Vector:     vectors[i],
				Metadata:   c.Metadata,
			}
			sparseDocs[i] = sparse.Document{ID: id, DocumentID: doc.ID.String(), Content: c.Content}
		}

		if err := h.deps.Vectors.Upsert(ctx, collection, vsChunks); err != nil {
			h.failIngestJob(ctx, job, err)
			return
		}
		if err := h.deps.Documents.CreateChunks(ctx, docChunks); err != nil {
			h.failIngestJob(ctx, job, err)
			return
		}
		if h.deps.Sparse != nil {
			idx, err := h.deps.Sparse.Get(collection)
			if err != nil {
				h.logger.Warn("sparse_index_open_failed", slog.String("collection", collection), slog.String("error", err.Error()))
			} else if err := idx.Upsert(ctx, sparseDocs); err != nil {
				h.logger.Warn("sparse_index_upsert_failed", slog.String("collection", collection), slog.String("error", err.Error()))
			}
		}

		doc.Status = "completed"
		doc.UpdatedAt = time.Now().UTC()
		_ = h.deps.Documents.Update(ctx, doc)

		totalChunks += len(result.Chunks)
	}

	completedAt := time.Now().UTC()
	job.Status = "completed"
	job.ChunkCount = totalChunks
	job.DocumentID = firstDocID
	job.CompletedAt = &completedAt
	_ = h.deps.IngestJobs.Update(ctx, job)
}

func (h *handlers) failIngestJob(ctx context.Context, job *store.IngestJob, err error) {
	completedAt := time.Now().UTC()
	job.Status = "failed"
	job.ErrorMessage = err.Error()
	job.CompletedAt = &completedAt
	if updateErr := h.deps.IngestJobs.Update(ctx, job); updateErr != nil {
		h.logger.Error("ingest_job_update_failed", slog.String("job_id", job.ID.String()), slog.String("error", updateErr.Error()))
	}
	h.logger.Error("ingest_job_failed", slog.String("job_id", job.ID.String()), slog.String("error", err.Error()))
}

func (h *handlers) ingestStatus(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "job_id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.deps.IngestJobs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "ingest job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}
