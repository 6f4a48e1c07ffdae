package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewChunker_Defaults(t *testing.T) {
	c := NewChunker(0, -1)
	if c.chunkSize != DefaultChunkSize {
		t.Errorf("chunkSize = %d, want %d", c.chunkSize, DefaultChunkSize)
	}
	if c.overlap != DefaultChunkOverlap {
		t.Errorf("overlap = %d, want %d", c.overlap, DefaultChunkOverlap)
	}
}

func TestChunker_Split(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		text      string
		check     func(t *testing.T, chunks []string)
	}{
		{
			name: "empty input yields no chunks",
			text: "",
			check: func(t *testing.T, chunks []string) {
				if len(chunks) != 0 {
					t.Errorf("got %d chunks, want 0", len(chunks))
				}
			},
		},
		{
			name: "whitespace only yields no chunks",
			text: "   \n\n \t ",
			check: func(t *testing.T, chunks []string) {
				if len(chunks) != 0 {
					t.Errorf("got %d chunks, want 0", len(chunks))
				}
			},
		},
		{
			name: "short input yields one chunk",
			text: "hello world",
			check: func(t *testing.T, chunks []string) {
				if len(chunks) != 1 || chunks[0] != "hello world" {
					t.Errorf("got %v, want [hello world]", chunks)
				}
			},
		},
		{
			name:      "hard cuts advance by size minus overlap",
			chunkSize: 1000,
			overlap:   200,
			text:      strings.Repeat("a", 2400),
			check: func(t *testing.T, chunks []string) {
				if len(chunks) != 3 {
					t.Fatalf("got %d chunks, want 3", len(chunks))
				}
				wantLens := []int{1000, 1000, 800}
				for i, chunk := range chunks {
					if n := utf8.RuneCountInString(chunk); n != wantLens[i] {
						t.Errorf("chunk %d has %d runes, want %d", i, n, wantLens[i])
					}
					if n := utf8.RuneCountInString(chunk); n > 1000 {
						t.Errorf("chunk %d exceeds chunk size: %d", i, n)
					}
				}
			},
		},
		{
			name:      "prefers paragraph boundaries",
			chunkSize: 50,
			overlap:   10,
			text:      "first paragraph here with some words.\n\nsecond paragraph follows with more words than fit.",
			check: func(t *testing.T, chunks []string) {
				if len(chunks) < 2 {
					t.Fatalf("got %d chunks, want at least 2", len(chunks))
				}
				if chunks[0] != "first paragraph here with some words." {
					t.Errorf("first chunk = %q, want the first paragraph", chunks[0])
				}
			},
		},
		{
			name:      "multibyte runes are cut on rune boundaries",
			chunkSize: 100,
			overlap:   20,
			text:      strings.Repeat("日本語のテキスト", 40),
			check: func(t *testing.T, chunks []string) {
				for i, chunk := range chunks {
					if !utf8.ValidString(chunk) {
						t.Errorf("chunk %d is not valid UTF-8", i)
					}
					if n := utf8.RuneCountInString(chunk); n > 100 {
						t.Errorf("chunk %d has %d runes, want <= 100", i, n)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, overlap := tt.chunkSize, tt.overlap
			if size == 0 {
				size, overlap = DefaultChunkSize, DefaultChunkOverlap
			}
			chunks := NewChunker(size, overlap).Split(tt.text)
			tt.check(t, chunks)
		})
	}
}

func TestChunker_Split_Deterministic(t *testing.T) {
	c := NewChunker(120, 30)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	first := c.Split(text)
	second := c.Split(text)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunker_Split_NonEmptyInputAlwaysChunks(t *testing.T) {
	c := NewChunker(10, 2)
	inputs := []string{"x", "a b c", strings.Repeat("z", 55), "line\nline\nline"}
	for _, in := range inputs {
		if chunks := c.Split(in); len(chunks) == 0 {
			t.Errorf("Split(%q) produced no chunks", in)
		}
	}
}

func TestChunker_Split_PreservesOrder(t *testing.T) {
	c := NewChunker(40, 10)
	text := "alpha section one. beta section two. gamma section three. delta section four."

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2 for ordering check", len(chunks))
	}

	// Each chunk must start at or after the previous chunk's start.
	lastIdx := -1
	for i, chunk := range chunks {
		idx := strings.Index(text, chunk)
		if idx < 0 {
			t.Fatalf("chunk %d not found in source text", i)
		}
		if idx <= lastIdx {
			t.Errorf("chunk %d starts at %d, before previous start %d", i, idx, lastIdx)
		}
		lastIdx = idx
	}
}
