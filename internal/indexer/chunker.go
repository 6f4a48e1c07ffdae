package indexer

import (
	"strings"
)

const (
	// DefaultChunkSize is the sliding window length in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many runes consecutive chunks share.
	DefaultChunkOverlap = 200
)

// Chunker splits raw text into overlapping segments for embedding.
// It walks the text with a window of chunkSize runes advancing by
// chunkSize-overlap, cutting at the latest natural boundary inside
// the window (paragraph, then line, then sentence, then word) and
// falling back to a hard rune cut when no boundary exists.
// Splitting is pure: identical input and configuration always yield
// identical output.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a Chunker. Non-positive size or an overlap that is
// negative or >= size falls back to the defaults.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// boundaries in preference order. The empty string means hard cut.
var boundaries = []string{"\n\n", "\n", ". ", " "}

// Split returns the chunks of text in document order. Input that is empty
// or all whitespace yields no chunks; any other input yields at least one.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []string

	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			chunks = appendChunk(chunks, string(runes[start:]))
			break
		}

		cut := c.findCut(runes, start, end)
		chunks = appendChunk(chunks, string(runes[start:cut]))
		start = cut - c.overlap
	}

	return chunks
}

// findCut picks the cut position for the window [start, end). It prefers
// the latest boundary inside the window, but only if cutting there still
// advances the walk past the previous start once the overlap is rewound.
func (c *Chunker) findCut(runes []rune, start, end int) int {
	window := string(runes[start:end])
	for _, sep := range boundaries {
		if idx := strings.LastIndex(window, sep); idx != -1 {
			cut := start + len([]rune(window[:idx])) + len([]rune(sep))
			if cut-c.overlap > start {
				return cut
			}
		}
	}
	return end
}

// appendChunk trims a segment and drops it if nothing remains.
func appendChunk(chunks []string, segment string) []string {
	if trimmed := strings.TrimSpace(segment); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}
