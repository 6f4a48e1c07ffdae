package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"ragchat/internal/embedding"
	"ragchat/internal/indexer"
	"ragchat/internal/rag"
	"ragchat/internal/service"
	"ragchat/internal/storage"
	"ragchat/internal/vectorindex"
)

// stubChatService records the last request and returns a fixed response.
type stubChatService struct {
	resp    service.ChatResponse
	err     error
	lastReq service.ChatRequest
}

func (s *stubChatService) ProcessMessage(_ context.Context, req service.ChatRequest) (service.ChatResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return service.ChatResponse{}, s.err
	}
	return s.resp, nil
}

func newTestEngine(t *testing.T) (*rag.Engine, storage.DocumentStore, storage.ChunkStore) {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	index, err := vectorindex.Open(filepath.Join(t.TempDir(), "vectors.bin"), embedding.DefaultDim)
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}

	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	engine := rag.NewEngine(
		indexer.NewChunker(indexer.DefaultChunkSize, indexer.DefaultChunkOverlap),
		embedding.NewLocalEmbedder(embedding.DefaultDim),
		index,
		docRepo,
		chunkRepo,
		nil,
	)
	return engine, docRepo, chunkRepo
}

func TestAgentHandler_JSONRequest(t *testing.T) {
	svc := &stubChatService{resp: service.ChatResponse{SessionID: 5, Reply: "hello back"}}
	handler := NewAgentHandler(svc)

	body := `{"message": "hello", "session_id": 5}`
	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp AgentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != 5 || resp.Reply != "hello back" {
		t.Errorf("got response %+v", resp)
	}
	if svc.lastReq.Message != "hello" || svc.lastReq.SessionID != 5 {
		t.Errorf("service got request %+v", svc.lastReq)
	}
}

func TestAgentHandler_EmptyMessage(t *testing.T) {
	handler := NewAgentHandler(&stubChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader(`{"message": "  "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestAgentHandler_InvalidJSON(t *testing.T) {
	handler := NewAgentHandler(&stubChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestAgentHandler_ValidationErrorIs400(t *testing.T) {
	svc := &stubChatService{err: &service.ValidationError{Field: "message", Message: "cannot be empty"}}
	handler := NewAgentHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader(`{"message": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestAgentHandler_InternalErrorIs500(t *testing.T) {
	svc := &stubChatService{err: errors.New("database unavailable")}
	handler := NewAgentHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader(`{"message": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "database unavailable") {
		t.Error("internal error detail leaked to the client")
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(fileContent)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAgentHandler_MultipartTextFile(t *testing.T) {
	svc := &stubChatService{resp: service.ChatResponse{SessionID: 1, Reply: "ok"}}
	handler := NewAgentHandler(svc)

	body, contentType := multipartBody(t,
		map[string]string{"message": "summarize this"}, "notes.txt", "the file body")
	req := httptest.NewRequest(http.MethodPost, "/api/agent", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(svc.lastReq.Message, "summarize this") {
		t.Error("form message missing from service request")
	}
	if !strings.Contains(svc.lastReq.Message, "the file body") {
		t.Error("txt file content not folded into the message")
	}
	if !strings.Contains(svc.lastReq.Message, "notes.txt") {
		t.Error("filename missing from the folded content")
	}
}

func TestAgentHandler_MultipartUnsupportedFile(t *testing.T) {
	svc := &stubChatService{resp: service.ChatResponse{Reply: "ok"}}
	handler := NewAgentHandler(svc)

	body, contentType := multipartBody(t,
		map[string]string{"message": "read this"}, "image.png", "\x89PNG...")
	req := httptest.NewRequest(http.MethodPost, "/api/agent", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(svc.lastReq.Message, "content processing not supported") {
		t.Errorf("unsupported file not acknowledged: %q", svc.lastReq.Message)
	}
	if strings.Contains(svc.lastReq.Message, "PNG") {
		t.Error("binary content must not be folded into the message")
	}
}

func TestAgentHandler_MultipartBadSessionID(t *testing.T) {
	handler := NewAgentHandler(&stubChatService{})

	body, contentType := multipartBody(t,
		map[string]string{"message": "hi", "session_id": "not-a-number"}, "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/agent", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestDocumentHandler_Index(t *testing.T) {
	engine, docRepo, chunkRepo := newTestEngine(t)
	handler := NewDocumentHandler(engine, docRepo, chunkRepo)

	body := `{"title": "release notes", "text": "Version two ships faster queries and bug fixes."}`
	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Index(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp IndexResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID == "" {
		t.Error("expected a document id")
	}
	if resp.Title != "release notes" {
		t.Errorf("got title %q", resp.Title)
	}
	if resp.ChunkCount != 1 {
		t.Errorf("got chunk count %d, want 1", resp.ChunkCount)
	}
}

func TestDocumentHandler_IndexValidation(t *testing.T) {
	engine, docRepo, chunkRepo := newTestEngine(t)
	handler := NewDocumentHandler(engine, docRepo, chunkRepo)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"text": "content"}`},
		{"missing text", `{"title": "t"}`},
		{"blank title", `{"title": "  ", "text": "content"}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.Index(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("got status %d, want 400", rec.Code)
			}
		})
	}
}

func TestDocumentHandler_List(t *testing.T) {
	engine, docRepo, chunkRepo := newTestEngine(t)
	handler := NewDocumentHandler(engine, docRepo, chunkRepo)

	if _, err := engine.IndexDocument(context.Background(), "first", "some text"); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	var docs []DocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "first" {
		t.Errorf("got documents %+v", docs)
	}
}

func TestDocumentHandler_ListEmpty(t *testing.T) {
	engine, docRepo, chunkRepo := newTestEngine(t)
	handler := NewDocumentHandler(engine, docRepo, chunkRepo)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	// An empty list must serialize as [], not null.
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("got body %q, want []", got)
	}
}

func TestStatsHandler(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	handler := NewStatsHandler(engine)

	if _, err := engine.IndexDocument(context.Background(), "doc", "short document text"); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	var stats map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats["total_vectors"] != float64(1) {
		t.Errorf("got total_vectors %v, want 1", stats["total_vectors"])
	}
	if stats["vector_dimension"] != float64(embedding.DefaultDim) {
		t.Errorf("got vector_dimension %v", stats["vector_dimension"])
	}
	if stats["documents_count"] != float64(1) || stats["chunks_count"] != float64(1) {
		t.Errorf("got counts %v / %v, want 1 / 1", stats["documents_count"], stats["chunks_count"])
	}
}

func TestHealthHandler(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	handler := NewHealthHandler(db)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("got status %q, want healthy", resp.Status)
	}
	if resp.Checks["database"] != "ok" {
		t.Errorf("got database check %q, want ok", resp.Checks["database"])
	}
}
