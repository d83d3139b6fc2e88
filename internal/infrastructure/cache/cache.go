// Package cache stores catalog title embeddings between requests.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/config"
)

const keyPrefix = "ilustra:embedding:v1:"

// EmbeddingCache maps a text key to its embedding vector.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, value []float32)
}

// NewEmbeddingCache builds the cache selected by EMBEDDING_CACHE.
func NewEmbeddingCache(cfg *config.Config, log zerolog.Logger) (EmbeddingCache, error) {
	logger := log.With().Str("component", "embedding-cache").Str("type", cfg.EmbeddingCache).Logger()
	switch cfg.EmbeddingCache {
	case "redis":
		c, err := NewRedisCache(cfg.RedisURL, keyPrefix, cfg.EmbeddingCacheTTL, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "memory":
		c, err := NewMemoryCache(cfg.EmbeddingCacheSize, cfg.EmbeddingCacheTTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "", "noop", "none":
		return NoopCache{}, nil
	default:
		return nil, fmt.Errorf("unknown embedding cache type: %s", cfg.EmbeddingCache)
	}
}

// NoopCache disables caching.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]float32, bool) { return nil, false }

func (NoopCache) Set(context.Context, string, []float32) {}

func expired(at time.Time) bool {
	return !at.IsZero() && time.Now().After(at)
}
