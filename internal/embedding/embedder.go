package embedding

import (
	"context"
	"log/slog"

	"ragchat/internal/contextutil"
)

// Embedder maps text to a fixed-length, L2-normalized vector.
type Embedder interface {
	// Embed returns the vector for text. Implementations must return a
	// vector of exactly Dimension() elements.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the vector length this embedder produces.
	Dimension() int
}

// Chain tries a list of embedding strategies in order, falling through to
// the next on failure. The last strategy is expected to be infallible
// (the local extractor), so a fully configured chain never errors in
// practice; if every strategy fails the last error is returned.
type Chain struct {
	strategies []Embedder
	logger     *slog.Logger
}

// NewChain builds a fallback chain. All strategies must share a dimension;
// mismatched strategies would corrupt the index and are rejected by panic
// at construction time, which is a programming error.
func NewChain(strategies ...Embedder) *Chain {
	if len(strategies) == 0 {
		panic("embedding: NewChain requires at least one strategy")
	}
	dim := strategies[0].Dimension()
	for _, s := range strategies[1:] {
		if s.Dimension() != dim {
			panic("embedding: chain strategies disagree on dimension")
		}
	}
	return &Chain{strategies: strategies, logger: slog.Default()}
}

// Embed runs the strategies in order and returns the first success.
func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var lastErr error
	for i, s := range c.strategies {
		vec, err := s.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if i < len(c.strategies)-1 {
			logger.WarnContext(ctx, "embedding strategy failed, falling back",
				"strategy", i, "error", err)
		}
	}
	return nil, lastErr
}

// Dimension returns the shared vector length of the chain.
func (c *Chain) Dimension() int {
	return c.strategies[0].Dimension()
}
