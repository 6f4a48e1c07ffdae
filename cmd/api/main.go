package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"ragchat/internal/agent"
	"ragchat/internal/config"
	"ragchat/internal/embedding"
	"ragchat/internal/http"
	"ragchat/internal/indexer"
	"ragchat/internal/llm"
	"ragchat/internal/rag"
	"ragchat/internal/service"
	"ragchat/internal/storage"
	"ragchat/internal/vectorindex"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	sessionRepo := storage.NewSessionRepo(db)

	// Open the vector index. A corrupt file is fatal: starting empty
	// would silently hide data loss.
	index, err := vectorindex.Open(cfg.IndexPath, cfg.EmbedDim)
	if err != nil {
		log.Fatalf("Failed to open vector index: %v", err)
	}
	defer func() {
		_ = index.Close()
	}()
	slog.Info("Vector index ready", "path", cfg.IndexPath, "dim", cfg.EmbedDim, "size", index.Size())

	// Build the embedding fallback chain: remote provider first when an
	// API key is configured, the deterministic local extractor always last.
	local := embedding.NewLocalEmbedder(cfg.EmbedDim)
	var embedder embedding.Embedder = local
	if cfg.OpenAIAPIKey != "" {
		remote := embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, "", cfg.EmbeddingModelName, cfg.EmbedDim)
		embedder = embedding.NewChain(remote, local)
		slog.Info("Embedding chain configured", "remote_model", cfg.EmbeddingModelName, "dim", cfg.EmbedDim)
	} else {
		slog.Info("Using local embeddings only", "dim", cfg.EmbedDim)
	}

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Create retrieval engine
	chunker := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	engine := rag.NewEngine(chunker, embedder, index, docRepo, chunkRepo, llmClient)
	slog.Info("Retrieval engine initialized")

	// Create agent loop and chat service
	loop := agent.NewLoop(llmClient, engine, cfg.MaxIterations, cfg.HistoryWindow, cfg.SearchK)
	chatService := service.NewChatService(sessionRepo, loop)

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		ChatService: chatService,
		Engine:      engine,
		DocRepo:     docRepo,
		ChunkRepo:   chunkRepo,
		DB:          db,
	})

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
