package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"ragchat/internal/contextutil"
	"ragchat/internal/rag"
	"ragchat/internal/storage"
)

// DocumentHandler handles document ingestion and listing.
type DocumentHandler struct {
	engine  *rag.Engine
	docRepo storage.DocumentStore
	chunks  storage.ChunkStore
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(engine *rag.Engine, docRepo storage.DocumentStore, chunks storage.ChunkStore) *DocumentHandler {
	return &DocumentHandler{engine: engine, docRepo: docRepo, chunks: chunks}
}

// IndexRequest is the ingestion request payload.
type IndexRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// IndexResponse describes an ingested document.
type IndexResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunk_count"`
}

// DocumentResponse is one listed document.
type DocumentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Index handles POST /api/documents: chunk, embed and index a document.
func (h *DocumentHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, r, http.StatusBadRequest, "text is required")
		return
	}

	doc, err := h.engine.IndexDocument(ctx, req.Title, req.Text)
	if err != nil {
		logger.ErrorContext(ctx, "document ingestion failed", "title", req.Title, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to index document")
		return
	}

	chunkCount, err := h.chunks.CountByDocument(ctx, doc.ID)
	if err != nil {
		logger.WarnContext(ctx, "failed to count chunks for response", "error", err)
	}

	writeJSON(w, r, http.StatusCreated, IndexResponse{
		ID:         doc.ID,
		Title:      doc.Title,
		ChunkCount: chunkCount,
	})
}

// List handles GET /api/documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.docRepo.ListAll(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to list documents", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, DocumentResponse{ID: doc.ID, Title: doc.Title, CreatedAt: doc.CreatedAt})
	}
	writeJSON(w, r, http.StatusOK, out)
}
