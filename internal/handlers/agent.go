package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"ragchat/internal/contextutil"
	"ragchat/internal/indexer"
	"ragchat/internal/service"
)

// maxUploadSize bounds attached files folded into the message.
const maxUploadSize = 5 << 20 // 5 MiB

// AgentHandler handles conversation requests driven by the agent loop.
type AgentHandler struct {
	chatService service.ChatService
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(chatService service.ChatService) *AgentHandler {
	return &AgentHandler{chatService: chatService}
}

// AgentRequest is the JSON request payload.
type AgentRequest struct {
	Message   string `json:"message"`
	SessionID int64  `json:"session_id,omitempty"`
}

// AgentResponse is the response payload.
type AgentResponse struct {
	SessionID int64  `json:"session_id"`
	Reply     string `json:"reply"`
	Exhausted bool   `json:"exhausted,omitempty"`
}

// ServeHTTP handles POST /api/agent. The body is either JSON or a
// multipart form with a message field and an optional file whose text
// content is folded into the message.
func (h *AgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	req, err := h.parseRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, r, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.chatService.ProcessMessage(ctx, service.ChatRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, r, http.StatusBadRequest, validationErr.Error())
			return
		}
		logger.ErrorContext(ctx, "agent request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, r, http.StatusOK, AgentResponse{
		SessionID: resp.SessionID,
		Reply:     resp.Reply,
		Exhausted: resp.Exhausted,
	})
}

// parseRequest decodes the request body, folding a file attachment into
// the message text for .txt and .md uploads; other types are only
// acknowledged, matching the upload contract.
func (h *AgentHandler) parseRequest(r *http.Request) (*AgentRequest, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req AgentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid JSON body")
		}
		return &req, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, fmt.Errorf("invalid multipart form")
	}

	req := &AgentRequest{Message: r.FormValue("message")}
	if raw := r.FormValue("session_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("session_id must be an integer")
		}
		req.SessionID = id
	}

	file, header, err := r.FormFile("file")
	if err == http.ErrMissingFile {
		return req, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid file upload")
	}
	defer func() {
		_ = file.Close()
	}()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file")
	}

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".txt":
		req.Message += fmt.Sprintf("\n\nFile content (%s):\n%s", header.Filename, content)
	case ".md":
		req.Message += fmt.Sprintf("\n\nFile content (%s):\n%s", header.Filename, indexer.NormalizeMarkdown(content))
	default:
		req.Message += fmt.Sprintf("\n\n[Attached file: %s - content processing not supported]", header.Filename)
	}
	return req, nil
}
