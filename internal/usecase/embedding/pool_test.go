package embedding

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eduroad/coursemap/internal/domain"
)

type slowEmbedder struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (s *slowEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	cur := s.active.Add(1)
	for {
		seen := s.maxSeen.Load()
		if cur <= seen || s.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	time.Sleep(s.delay)
	s.active.Add(-1)
	return domain.EmbeddingResult{Embedding: []float32{1}}, nil
}

type blockingEmbedder struct {
	release chan struct{}
}

func (b *blockingEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	select {
	case <-b.release:
		return domain.EmbeddingResult{}, nil
	case <-ctx.Done():
		return domain.EmbeddingResult{}, ctx.Err()
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	inner := &slowEmbedder{delay: 20 * time.Millisecond}
	pool := NewPool(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pool.Embed(context.Background(), "x"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if max := inner.maxSeen.Load(); max > 2 {
		t.Errorf("pool of 2 allowed %d concurrent embeds", max)
	}
}

func TestPool_WaitRespectsCancellation(t *testing.T) {
	inner := &blockingEmbedder{release: make(chan struct{})}
	pool := NewPool(inner, 1)

	// Occupy the only slot.
	go func() { _, _ = pool.Embed(context.Background(), "hold") }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pool.Embed(ctx, "waiter")
	if err == nil {
		t.Fatal("expected cancellation error while waiting for slot")
	}

	close(inner.release)
}

func TestPool_DefaultsToSingleWorker(t *testing.T) {
	pool := NewPool(&slowEmbedder{}, 0)
	if cap(pool.slots) != 1 {
		t.Errorf("expected capacity 1, got %d", cap(pool.slots))
	}
}
