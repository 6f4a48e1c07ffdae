package agent

import (
	"context"
	"fmt"
	"strings"

	"ragchat/internal/contextutil"
	"ragchat/internal/llm"
)

// Defaults for the loop bounds.
const (
	DefaultMaxIterations = 3
	DefaultHistoryWindow = 5
	DefaultSearchK       = 4
)

// systemPrompt describes the one available tool and its wire format.
const systemPrompt = `You are an AI assistant with access to a document search tool.

You can use the following tool:
- search_documents(query): Searches indexed documents for relevant information

When you need to search documents, respond in this EXACT format:
TOOL_CALL: search_documents
QUERY: <your search query here>

After receiving tool results, provide your final answer normally without any special formatting.

Instructions:
1. If the user asks about documents or specific information, use the search_documents tool
2. Base your answer on the document content found
3. If no relevant documents are found, state this clearly
4. Be concise and accurate
`

// finalAnswerInstruction replaces the user message after a tool round.
const finalAnswerInstruction = "Based on the search results above, please provide your final answer to the user's question."

// noResultsSentinel stands in for an empty retrieval result.
const noResultsSentinel = "No relevant document chunks found in the database."

// LLMClient is the completion surface the loop needs.
type LLMClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Retriever is the one tool available to the loop.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Turn is one completed conversation exchange.
type Turn struct {
	User      string
	Assistant string
}

// Result is the outcome of one Run. Text is always set: the loop's
// public contract is that the caller gets text back, never an error.
type Result struct {
	// Text is the reply to show the user.
	Text string
	// Exhausted reports that the iteration cap was reached with the last
	// response still holding an unresolved tool-call directive, so Text
	// may leak protocol syntax. Callers decide how to present it.
	Exhausted bool
	// ToolCalls is how many retrieval calls the loop executed.
	ToolCalls int
}

// Loop is the bounded tool-calling controller. Each Run alternates model
// prompting with at most maxIterations-1 retrieval rounds; the only state
// is an in-memory transcript, nothing persists across Runs.
type Loop struct {
	llm           LLMClient
	retriever     Retriever
	maxIterations int
	historyWindow int
	searchK       int
}

// NewLoop creates an agent loop. Non-positive bounds fall back to the
// defaults.
func NewLoop(llmClient LLMClient, retriever Retriever, maxIterations, historyWindow, searchK int) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	if searchK <= 0 {
		searchK = DefaultSearchK
	}
	return &Loop{
		llm:           llmClient,
		retriever:     retriever,
		maxIterations: maxIterations,
		historyWindow: historyWindow,
		searchK:       searchK,
	}
}

// Run drives the loop for one user message and returns a Result whose
// Text is always a user-presentable string: model and retrieval failures
// are folded into an apologetic reply rather than surfaced as errors.
func (l *Loop) Run(ctx context.Context, message string, history []Turn) Result {
	logger := contextutil.LoggerFromContext(ctx)

	conversation := formatHistory(history, l.historyWindow)
	toolCalls := 0
	var response string

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		logger.DebugContext(ctx, "agent iteration",
			"iteration", iteration+1, "max_iterations", l.maxIterations)

		resp, err := l.llm.ChatWithMessages(ctx, []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: conversation + "User: " + message},
		}, llm.ChatParams{Temperature: 0})
		if err != nil {
			logger.ErrorContext(ctx, "agent LLM call failed", "error", err)
			return Result{Text: apologyFor(err), ToolCalls: toolCalls}
		}
		response = resp

		parsed := parseResponse(resp)
		switch parsed.kind {
		case kindFinal:
			logger.DebugContext(ctx, "agent produced final answer", "tool_calls", toolCalls)
			return Result{Text: resp, ToolCalls: toolCalls}

		case kindMalformed:
			// Deliberate short-circuit, not a failure: the raw response
			// goes back as-is with no further iteration.
			logger.WarnContext(ctx, "malformed tool call, returning raw response")
			return Result{Text: resp, ToolCalls: toolCalls}

		case kindToolCall:
			logger.InfoContext(ctx, "agent tool call", "tool", parsed.tool, "query", parsed.query)

			results, err := l.retriever.Search(ctx, parsed.query, l.searchK)
			if err != nil {
				logger.ErrorContext(ctx, "agent retrieval failed", "error", err)
				return Result{Text: apologyFor(err), ToolCalls: toolCalls}
			}
			toolCalls++

			toolResult := noResultsSentinel
			if len(results) > 0 {
				toolResult = strings.Join(results, "\n\n---\n\n")
			}

			conversation += "User: " + message + "\n"
			conversation += "Assistant (thinking): I'll search for: " + parsed.query + "\n"
			conversation += "Tool Result:\n" + toolResult + "\n\n"
			message = finalAnswerInstruction
		}
	}

	// The cap was reached with the last response still carrying a
	// directive. Return it verbatim but flag the outcome.
	logger.WarnContext(ctx, "agent exhausted iteration cap", "tool_calls", toolCalls)
	return Result{Text: response, Exhausted: true, ToolCalls: toolCalls}
}

// formatHistory renders the most recent window of turns as transcript text.
func formatHistory(history []Turn, window int) string {
	if len(history) == 0 {
		return "No previous conversation.\n\n"
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	var b strings.Builder
	for _, turn := range history {
		b.WriteString("User: " + turn.User + "\n")
		b.WriteString("Assistant: " + turn.Assistant + "\n\n")
	}
	return b.String()
}

// apologyFor converts an internal failure into the single user-facing
// text the loop is allowed to return.
func apologyFor(err error) string {
	return fmt.Sprintf("I encountered an error while processing your request: %v", err)
}
