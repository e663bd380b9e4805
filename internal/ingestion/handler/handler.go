package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

// DocumentResponse is the body of GET /api/docs/{id}.
type DocumentResponse struct {
	ID        index.DocID `json:"id"`
	Name      string      `json:"name"`
	Content   string      `json:"content"`
	WordCount int         `json:"word_count"`
}

// DeleteResponse is the body of both delete endpoints.
type DeleteResponse struct {
	Success   bool `json:"success"`
	Remaining int  `json:"remaining"`
}

type Handler struct {
	pipeline       *pipeline.Pipeline
	store          *store.Store
	maxUploadBytes int64
	logger         *slog.Logger
}

func New(p *pipeline.Pipeline, s *store.Store, maxUploadBytes int64) *Handler {
	return &Handler{
		pipeline:       p,
		store:          s,
		maxUploadBytes: maxUploadBytes,
		logger:         slog.Default().With("component", "documents-handler"),
	}
}

// Upload serves POST /api/upload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	var items []ingestion.UploadItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, http.StatusBadRequest, "body must be a JSON array of {name, content} objects")
		return
	}
	if err := validator.ValidateUploadItems(items); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pipeline.IngestUploads(ctx, "upload", items)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("upload failed", "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, apperrors.ClientMessage(err, "upload failed"))
		return
	}
	log.Info("upload processed",
		"received", len(items),
		"ingested", len(result.IDs),
		"skipped", len(result.Skipped),
		"total", result.Total,
	)
	h.writeJSON(w, http.StatusOK, ingestion.UploadResponse{
		TotalFiles: result.Total,
		DocIDs:     result.IDs,
		Skipped:    result.Skipped,
	})
}

// List serves GET /api/docs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List()
	if err != nil {
		h.storeError(w, r, "listing documents", err)
		return
	}
	h.writeJSON(w, http.StatusOK, docs)
}

// Get serves GET /api/docs/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.store.Get(id)
	if err != nil {
		h.storeError(w, r, "getting document", err)
		return
	}
	h.writeJSON(w, http.StatusOK, DocumentResponse{
		ID:        doc.ID,
		Name:      doc.Name,
		Content:   doc.Content,
		WordCount: doc.WordCount(),
	})
}

// Delete serves DELETE /api/docs/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	remaining, err := h.store.Delete(id)
	if err != nil {
		h.storeError(w, r, "deleting document", err)
		return
	}
	logger.FromContext(r.Context()).Info("document deleted", "doc_id", id, "remaining", remaining)
	h.writeJSON(w, http.StatusOK, DeleteResponse{Success: true, Remaining: remaining})
}

// DeleteAll serves DELETE /api/docs.
func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAll(); err != nil {
		h.storeError(w, r, "deleting all documents", err)
		return
	}
	h.writeJSON(w, http.StatusOK, DeleteResponse{Success: true, Remaining: 0})
}

// Stats serves GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		h.storeError(w, r, "computing stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (index.DocID, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid document id %q", raw))
		return 0, false
	}
	return index.DocID(id), true
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, apperrors.ErrDocumentNotFound) {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("document with id %s not found", r.PathValue("id")))
		return
	}
	statusCode := apperrors.HTTPStatusCode(err)
	logger.FromContext(r.Context()).Error(op+" failed", "error", err, "status_code", statusCode)
	h.writeError(w, statusCode, apperrors.ClientMessage(err, op+" failed"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
