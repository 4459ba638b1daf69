package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eduroad/coursemap/internal/db"
	"github.com/eduroad/coursemap/internal/domain"
)

// --- Mocks ---

type mockKV struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	setKeys []string
	ttls    []time.Duration
}

func newMockKV() *mockKV {
	return &mockKV{data: map[string][]byte{}}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKV) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.setKeys = append(m.setKeys, key)
	return nil
}

func (m *mockKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.setKeys = append(m.setKeys, key)
	m.ttls = append(m.ttls, ttl)
	return nil
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 9}, nil
}

// --- Tests ---

func TestEmbed_MissThenHit(t *testing.T) {
	kv := newMockKV()
	inner := &mockEmbedder{vec: []float32{0.5, -1.25}}
	cached := New(inner, kv, 0, nil, zap.NewNop())
	ctx := context.Background()

	first, err := cached.Embed(ctx, "go basics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}
	if first.TotalTokens != 9 {
		t.Errorf("miss must carry real usage, got %d", first.TotalTokens)
	}

	second, err := cached.Embed(ctx, "go basics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("hit must not call inner, calls = %d", inner.calls)
	}
	if second.TotalTokens != 0 {
		t.Errorf("hit consumes no tokens, got %d", second.TotalTokens)
	}
	if len(second.Embedding) != 2 || second.Embedding[0] != 0.5 || second.Embedding[1] != -1.25 {
		t.Errorf("cached vector mismatch: %v", second.Embedding)
	}
}

func TestEmbed_DifferentTextsGetDifferentKeys(t *testing.T) {
	kv := newMockKV()
	inner := &mockEmbedder{vec: []float32{1}}
	cached := New(inner, kv, 0, nil, zap.NewNop())
	ctx := context.Background()

	if _, err := cached.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Embed(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if len(kv.setKeys) != 2 || kv.setKeys[0] == kv.setKeys[1] {
		t.Errorf("expected distinct cache keys, got %v", kv.setKeys)
	}
}

func TestEmbed_StoreFailureFallsThrough(t *testing.T) {
	kv := newMockKV()
	kv.getErr = errors.New("connection refused")
	kv.setErr = errors.New("connection refused")
	inner := &mockEmbedder{vec: []float32{1}}
	cached := New(inner, kv, 0, nil, zap.NewNop())

	res, err := cached.Embed(context.Background(), "a")
	if err != nil {
		t.Fatalf("cache failure must not fail the embed: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("unexpected result: %v", res)
	}
}

func TestEmbed_InnerErrorPropagates(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingUnavailable}
	cached := New(inner, newMockKV(), 0, nil, zap.NewNop())

	_, err := cached.Embed(context.Background(), "a")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbed_TTLUsesExpiringSet(t *testing.T) {
	kv := newMockKV()
	inner := &mockEmbedder{vec: []float32{1}}
	cached := New(inner, kv, 24*time.Hour, nil, zap.NewNop())

	if _, err := cached.Embed(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if len(kv.ttls) != 1 || kv.ttls[0] != 24*time.Hour {
		t.Errorf("expected one expiring write with 24h ttl, got %v", kv.ttls)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3e7}
	got, err := bytesToVector(vectorToCacheBytes(vec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: got %g, want %g", i, got[i], vec[i])
		}
	}

	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated data")
	}
}
