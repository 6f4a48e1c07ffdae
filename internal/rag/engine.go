package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ragchat/internal/contextutil"
	"ragchat/internal/embedding"
	"ragchat/internal/indexer"
	"ragchat/internal/llm"
	"ragchat/internal/storage"
	"ragchat/internal/vectorindex"
)

// LLMClient is the completion surface the answer path needs.
type LLMClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Engine orchestrates chunking, embedding, the vector index and the
// metadata store for document ingestion and retrieval.
type Engine struct {
	chunker  *indexer.Chunker
	embedder embedding.Embedder
	index    *vectorindex.FlatIndex
	docRepo  storage.DocumentStore
	chunks   storage.ChunkStore
	llm      LLMClient

	// ingestMu serializes whole-document ingestion so two concurrent
	// ingests cannot interleave their vector position ranges.
	ingestMu sync.Mutex
}

// NewEngine creates a retrieval engine. llmClient may be nil when the
// plain answer path is not used.
func NewEngine(
	chunker *indexer.Chunker,
	embedder embedding.Embedder,
	index *vectorindex.FlatIndex,
	docRepo storage.DocumentStore,
	chunks storage.ChunkStore,
	llmClient LLMClient,
) *Engine {
	return &Engine{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		docRepo:  docRepo,
		chunks:   chunks,
		llm:      llmClient,
	}
}

// IndexDocument ingests a document: creates its record, chunks the text,
// embeds each chunk, appends it to the vector index and records the chunk
// with the assigned vector id, then persists the index once for the whole
// batch. Any mid-document failure aborts the ingestion; the caller should
// retry the whole document from scratch rather than resume.
func (e *Engine) IndexDocument(ctx context.Context, title, text string) (*storage.DocumentRecord, error) {
	logger := contextutil.LoggerFromContext(ctx)

	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	doc := &storage.DocumentRecord{
		ID:    uuid.New().String(),
		Title: title,
	}
	if err := e.docRepo.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	segments := e.chunker.Split(text)

	for i, segment := range segments {
		vec, err := e.embedder.Embed(ctx, segment)
		if err != nil {
			return nil, fmt.Errorf("indexing aborted at chunk %d: failed to embed: %w", i, err)
		}

		vectorID, err := e.index.Append(vec)
		if err != nil {
			return nil, fmt.Errorf("indexing aborted at chunk %d: failed to append vector: %w", i, err)
		}

		chunk := &storage.ChunkRecord{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Text:       segment,
			VectorID:   vectorID,
		}
		if err := e.chunks.Insert(ctx, chunk); err != nil {
			return nil, fmt.Errorf("indexing aborted at chunk %d: failed to insert chunk record: %w", i, err)
		}
	}

	if err := e.index.Flush(); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}

	logger.InfoContext(ctx, "indexed document",
		"document_id", doc.ID, "title", title, "chunks", len(segments))
	return doc, nil
}

// Search embeds the query, runs an exact nearest-neighbor search and
// resolves each position to its chunk text. Positions with no matching
// chunk are logged and skipped rather than failing the query. Texts come
// back in ascending distance order; an empty index yields an empty slice.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := e.index.Search(queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	if len(matches) == 0 {
		logger.DebugContext(ctx, "vector index is empty or returned no matches")
		return []string{}, nil
	}

	texts := make([]string, 0, len(matches))
	for _, match := range matches {
		chunk, err := e.chunks.GetByVectorID(ctx, match.Position)
		if err == storage.ErrNotFound {
			// A vector with no chunk record is a consistency gap: one
			// missing chunk must not fail the whole query.
			logger.WarnContext(ctx, "no chunk record for vector position",
				"vector_id", match.Position)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve chunk for vector %d: %w", match.Position, err)
		}
		texts = append(texts, chunk.Text)
	}

	logger.DebugContext(ctx, "search completed",
		"query_length", len(query), "matches", len(matches), "resolved", len(texts))
	return texts, nil
}

// answerPrompt frames retrieved context for the plain answer path.
const answerPrompt = `You are a helpful assistant. Use the context below to answer the question.
The context comes from trusted documents.

CONTEXT:
%s

QUESTION: %s

INSTRUCTIONS:
- Use the context above to answer the question
- If the context provides relevant information, use it in your answer
- If the context doesn't fully answer the question, use your general knowledge
- Be helpful and provide a complete answer
- Keep your response concise and informative

ANSWER:`

// answerK is how many chunks the plain answer path retrieves.
const answerK = 3

// Answer is the single-shot retrieval-augmented answer path: search once,
// fold the chunks into a context block, ask the model once.
func (e *Engine) Answer(ctx context.Context, message string) (string, error) {
	if e.llm == nil {
		return "", fmt.Errorf("no LLM client configured")
	}

	chunks, err := e.Search(ctx, message, answerK)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}

	contextText := "No specific context available."
	if len(chunks) > 0 {
		contextText = strings.Join(chunks, "\n\n")
	}

	reply, err := e.llm.ChatWithMessages(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(answerPrompt, contextText, message)},
	}, llm.ChatParams{Temperature: 0})
	if err != nil {
		return "", fmt.Errorf("failed to get LLM response: %w", err)
	}
	return reply, nil
}

// Stats returns a read-only snapshot of the index and metadata store.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	docCount, err := e.docRepo.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count documents: %w", err)
	}
	chunkCount, err := e.chunks.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count chunks: %w", err)
	}

	return Stats{
		TotalVectors:    e.index.Size(),
		VectorDimension: e.index.Dimension(),
		DocumentCount:   docCount,
		ChunkCount:      chunkCount,
	}, nil
}
