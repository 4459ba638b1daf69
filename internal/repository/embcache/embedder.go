// Package embcache caches embeddings in the key-value store, keyed by a
// digest of the input text. Re-ingestion of an unchanged catalog then skips
// the embedding provider entirely, and repeated searches for the same
// profile cost nothing.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eduroad/coursemap/internal/db"
	"github.com/eduroad/coursemap/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the key-value subset the cache needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder decorates an Embedder with a read-through cache.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	ttl        time.Duration // zero keeps entries forever
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates the caching decorator. cacheTotal counts lookups by "result"
// label (hit or miss); nil disables counting.
func New(
	inner domain.Embedder,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached vector when one exists, otherwise calls the inner
// embedder and stores the result. A hit reports zero token usage since no
// provider call happened. Cache errors never fail the embed, the provider
// remains the source of truth.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if data, err := c.store.Get(ctx, key); err == nil && len(data) > 0 {
		vec, decodeErr := bytesToVector(data)
		if decodeErr == nil {
			c.count("hit")
			return domain.EmbeddingResult{Embedding: vec}, nil
		}
		c.logger.Warn("discarding undecodable cached embedding",
			zap.String("key", key), zap.Error(decodeErr))
	} else if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		c.logger.Warn("embedding cache lookup failed", zap.String("key", key), zap.Error(err))
	}

	c.count("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	if err := c.save(ctx, key, result.Embedding); err != nil {
		c.logger.Warn("failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) error {
	data := vectorToCacheBytes(vec)
	if c.ttl > 0 {
		return c.store.SetWithTTL(ctx, key, data, c.ttl)
	}
	return c.store.Set(ctx, key, data)
}

func (c *CachedEmbedder) count(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding cache data length %d is not a multiple of 4", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
