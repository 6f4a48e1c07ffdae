package embedding

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultDim is the vector dimension of the reference configuration.
const DefaultDim = 384

// Feature layout of the local extractor. The layout is fixed: changing any
// of these constants invalidates every vector already in the index.
const (
	wordFreqDims   = 20 // dims 0..19: top-frequency term weights
	charDimsOffset = 20 // dims 20..45: per-character occurrence rates a..z
	lengthDim      = 46
	wordCountDim   = 47
	diversityDim   = 48
	hashDimsOffset = 100 // dims 100..dim-1: deterministic hash fill

	maxWordsScanned = 50
	minWordLength   = 3
)

// keywordDims is a small fixed gazetteer: presence of these terms lights
// up a dedicated dimension each.
var keywordDims = map[string]int{
	"django": 49, "python": 50, "framework": 51, "web": 52,
	"development": 53, "database": 54, "admin": 55, "interface": 56,
	"component": 57, "reusable": 58, "pluggability": 59, "rapid": 60,
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// LocalEmbedder is the deterministic fallback embedding strategy. It
// extracts hand-crafted text features into a fixed-dimension vector and
// L2-normalizes it. Same text and dimension always produce a bit-identical
// vector, so an index built with it stays queryable across restarts even
// when no remote embedding provider is configured.
type LocalEmbedder struct {
	dim int
}

// NewLocalEmbedder creates a local embedder producing dim-length vectors.
// Non-positive dim falls back to DefaultDim.
func NewLocalEmbedder(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &LocalEmbedder{dim: dim}
}

// Dimension returns the configured vector length.
func (e *LocalEmbedder) Dimension() int {
	return e.dim
}

// Embed computes the feature vector for text. It never fails; the error
// return satisfies the Embedder interface.
func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	vec := make([]float64, e.dim)

	// 1. Frequency of the most common terms among the first 50 words.
	words := wordPattern.FindAllString(text, -1)
	freqOrder, freqs := countWords(words)
	for i, word := range freqOrder {
		if i >= wordFreqDims || i >= e.dim {
			break
		}
		vec[i] = math.Min(float64(freqs[word])/10.0, 1.0)
	}

	// 2. Per-character occurrence rates for a..z.
	textLen := utf8.RuneCountInString(text)
	for c := byte('a'); c <= 'z'; c++ {
		idx := charDimsOffset + int(c-'a')
		if idx >= e.dim {
			break
		}
		vec[idx] = float64(strings.Count(text, string(c))) / math.Max(float64(textLen), 1)
	}

	// 3. Coarse length and vocabulary-diversity statistics.
	if textLen > 0 {
		setAt(vec, lengthDim, math.Min(float64(textLen)/1000.0, 1.0))
		setAt(vec, wordCountDim, float64(len(words))/100.0)
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		setAt(vec, diversityDim, float64(len(unique))/math.Max(float64(len(words)), 1))
	}

	// 4. Keyword gazetteer.
	for keyword, idx := range keywordDims {
		if idx < e.dim {
			vec[idx] = float64(strings.Count(text, keyword)) / 10.0
		}
	}

	// 5. Deterministic pseudo-random fill from an MD5 digest of the text.
	sum := md5.Sum([]byte(text))
	digest := hex.EncodeToString(sum[:])
	for i := hashDimsOffset; i < e.dim; i++ {
		off := (i - hashDimsOffset) * 2 % len(digest)
		part, err := strconv.ParseUint(digest[off:off+2], 16, 8)
		if err != nil {
			// Unreachable: digest is hex by construction.
			return nil, err
		}
		vec[i] = float64(part) / 255.0 * 0.5
	}

	return normalize(vec), nil
}

// countWords tallies words of at least minWordLength runes among the first
// maxWordsScanned words, preserving first-seen order so the resulting
// dimensions are stable.
func countWords(words []string) ([]string, map[string]int) {
	var order []string
	freqs := make(map[string]int)
	limit := len(words)
	if limit > maxWordsScanned {
		limit = maxWordsScanned
	}
	for _, word := range words[:limit] {
		if utf8.RuneCountInString(word) < minWordLength {
			continue
		}
		if _, seen := freqs[word]; !seen {
			order = append(order, word)
		}
		freqs[word]++
	}
	return order, freqs
}

func setAt(vec []float64, idx int, v float64) {
	if idx < len(vec) {
		vec[idx] = v
	}
}

// normalize scales vec to unit L2 norm and converts to float32.
// The all-zero vector is returned as-is rather than producing NaNs.
func normalize(vec []float64) []float32 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
