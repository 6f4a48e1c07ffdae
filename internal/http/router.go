package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ragchat/internal/handlers"
	"ragchat/internal/rag"
	"ragchat/internal/service"
	"ragchat/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService service.ChatService
	Engine      *rag.Engine
	DocRepo     storage.DocumentStore
	ChunkRepo   storage.ChunkStore
	DB          *sql.DB
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	agentHandler := handlers.NewAgentHandler(deps.ChatService)
	chatHandler := handlers.NewChatHandler(deps.Engine)
	documentHandler := handlers.NewDocumentHandler(deps.Engine, deps.DocRepo, deps.ChunkRepo)
	statsHandler := handlers.NewStatsHandler(deps.Engine)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/agent", agentHandler)
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Post("/documents", documentHandler.Index)
		r.Get("/documents", documentHandler.List)
		r.Method(http.MethodGet, "/stats", statsHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
