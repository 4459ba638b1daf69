package embedding

import (
	"context"
	"fmt"

	"github.com/eduroad/coursemap/internal/domain"
	"github.com/eduroad/coursemap/internal/metrics"
)

// Pool bounds concurrent embedding calls with a semaphore so model inference
// cannot starve request handling. Size 1 serializes all embedding work.
type Pool struct {
	inner domain.Embedder
	slots chan struct{}
}

// NewPool wraps an embedder with a bounded worker pool of the given size.
func NewPool(inner domain.Embedder, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		inner: inner,
		slots: make(chan struct{}, size),
	}
}

// Embed acquires a worker slot, respecting ctx cancellation while waiting.
func (p *Pool) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	metrics.EmbeddingPoolWaiting.Inc()
	select {
	case p.slots <- struct{}{}:
		metrics.EmbeddingPoolWaiting.Dec()
	case <-ctx.Done():
		metrics.EmbeddingPoolWaiting.Dec()
		return domain.EmbeddingResult{}, fmt.Errorf("waiting for embedding slot: %w", ctx.Err())
	}
	defer func() { <-p.slots }()

	return p.inner.Embed(ctx, text)
}
