package agent

import "strings"

// Wire format of the tool-call protocol. These markers exist only at the
// language-model boundary; the loop itself works on parsed values.
const (
	toolCallMarker = "TOOL_CALL:"
	queryPrefix    = "QUERY:"
	searchToolName = "search_documents"
)

type responseKind int

const (
	// kindFinal: no directive marker, the text is the final answer.
	kindFinal responseKind = iota
	// kindToolCall: a well-formed directive with a non-empty query.
	kindToolCall
	// kindMalformed: the marker is present but no usable query line
	// follows. The loop short-circuits and returns the raw text.
	kindMalformed
)

// parsedResponse is the tagged form of a model response.
type parsedResponse struct {
	kind  responseKind
	tool  string
	query string
}

// parseResponse scans a model response for a tool-call directive.
func parseResponse(text string) parsedResponse {
	if !strings.Contains(text, toolCallMarker) || !strings.Contains(text, searchToolName) {
		return parsedResponse{kind: kindFinal}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, queryPrefix) {
			query := strings.TrimSpace(strings.TrimPrefix(line, queryPrefix))
			if query == "" {
				break
			}
			return parsedResponse{kind: kindToolCall, tool: searchToolName, query: query}
		}
	}

	return parsedResponse{kind: kindMalformed}
}
