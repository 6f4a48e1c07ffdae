package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"ragchat/internal/contextutil"
	"ragchat/internal/rag"
)

// ChatHandler handles the single-shot retrieval-augmented answer path.
type ChatHandler struct {
	engine *rag.Engine
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(engine *rag.Engine) *ChatHandler {
	return &ChatHandler{engine: engine}
}

// ChatRequest is the request payload.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the response payload.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ServeHTTP handles POST /api/chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, r, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.engine.Answer(ctx, req.Message)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "chat request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to generate reply")
		return
	}

	writeJSON(w, r, http.StatusOK, ChatResponse{Reply: reply})
}
