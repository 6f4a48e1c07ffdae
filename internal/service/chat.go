package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_agent_runner.go -package=mocks ragchat/internal/service AgentRunner
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_store.go -package=mocks ragchat/internal/storage SessionStore

import (
	"context"
	"errors"
	"unicode/utf8"

	"ragchat/internal/agent"
	"ragchat/internal/contextutil"
	"ragchat/internal/storage"
)

// sessionTitleLen caps the auto-generated session title.
const sessionTitleLen = 50

// AgentRunner is the agent surface the chat service consumes.
type AgentRunner interface {
	Run(ctx context.Context, message string, history []agent.Turn) agent.Result
}

// ChatRequest represents an inbound conversation message.
type ChatRequest struct {
	// SessionID continues an existing conversation when > 0. An unknown
	// or zero ID starts a new session.
	SessionID int64
	Message   string
}

// ChatResponse is the outcome of one processed message.
type ChatResponse struct {
	SessionID int64
	Reply     string
	// Exhausted mirrors agent.Result.Exhausted: the reply may still
	// contain tool-call protocol syntax.
	Exhausted bool
}

// ChatService runs the agent over persisted conversations.
type ChatService interface {
	// ProcessMessage stores the user message, runs the agent with the
	// session's history and stores the reply.
	ProcessMessage(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	sessions storage.SessionStore
	runner   AgentRunner
}

// NewChatService creates a new ChatService.
func NewChatService(sessions storage.SessionStore, runner AgentRunner) ChatService {
	return &chatService{sessions: sessions, runner: runner}
}

// ProcessMessage processes one conversation message end to end.
func (s *chatService) ProcessMessage(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.Message == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return ChatResponse{}, &ValidationError{Field: "message", Message: "cannot be empty"}
	}

	session, err := s.resolveSession(ctx, req)
	if err != nil {
		return ChatResponse{}, err
	}

	// History is rebuilt before the new user message is stored, so the
	// current message never appears in its own context window.
	history, err := s.buildHistory(ctx, session.ID)
	if err != nil {
		return ChatResponse{}, WrapError(err, "failed to load history")
	}

	if _, err := s.sessions.AppendMessage(ctx, session.ID, storage.RoleUser, req.Message); err != nil {
		return ChatResponse{}, WrapError(err, "failed to store user message")
	}

	result := s.runner.Run(ctx, req.Message, history)

	if _, err := s.sessions.AppendMessage(ctx, session.ID, storage.RoleAssistant, result.Text); err != nil {
		return ChatResponse{}, WrapError(err, "failed to store assistant message")
	}

	logger.InfoContext(ctx, "chat message processed",
		"session_id", session.ID, "history_turns", len(history),
		"tool_calls", result.ToolCalls, "exhausted", result.Exhausted)

	return ChatResponse{
		SessionID: session.ID,
		Reply:     result.Text,
		Exhausted: result.Exhausted,
	}, nil
}

// resolveSession loads the requested session, or starts a fresh one when
// no ID was given or the ID is unknown.
func (s *chatService) resolveSession(ctx context.Context, req ChatRequest) (*storage.SessionRecord, error) {
	if req.SessionID > 0 {
		session, err := s.sessions.GetByID(ctx, req.SessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, WrapError(err, "failed to load session")
		}
	}

	session, err := s.sessions.Create(ctx, truncate(req.Message, sessionTitleLen))
	if err != nil {
		return nil, WrapError(err, "failed to create session")
	}
	return session, nil
}

// buildHistory folds stored messages into (user, assistant) turns.
// Unpaired messages (a user message that never got a reply) are dropped.
func (s *chatService) buildHistory(ctx context.Context, sessionID int64) ([]agent.Turn, error) {
	msgs, err := s.sessions.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var history []agent.Turn
	var pendingUser string
	var havePending bool
	for _, msg := range msgs {
		switch msg.Role {
		case storage.RoleUser:
			pendingUser = msg.Content
			havePending = true
		case storage.RoleAssistant:
			if havePending {
				history = append(history, agent.Turn{User: pendingUser, Assistant: msg.Content})
				havePending = false
			}
		}
	}
	return history, nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
