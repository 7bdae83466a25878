package resultcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/rihla/internal/domain/enrichment"
	"github.com/yanqian/rihla/internal/domain/generation"
	"github.com/yanqian/rihla/pkg/metrics"
)

// Valkey stores JSON encoded values with SET EX. When Valkey itself fails
// the fetch result is returned without caching.
type Valkey[V any] struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewValkey constructs a cache backed by a Valkey-compatible server.
func NewValkey[V any](client valkey.Client, prefix string, ttl time.Duration, logger *slog.Logger) *Valkey[V] {
	if prefix == "" {
		prefix = "rihla:cache"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return &Valkey[V]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("component", "resultcache.valkey"),
	}
}

// GetOrFetch implements the cache contract on top of Valkey.
func (c *Valkey[V]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	fullKey := c.prefix + ":" + key
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(fullKey).Build()).ToString()
	switch {
	case err == nil:
		var v V
		jsonErr := json.Unmarshal([]byte(payload), &v)
		if jsonErr == nil {
			metrics.CacheLookups.WithLabelValues("valkey", "hit").Inc()
			return v, nil
		}
		c.logger.Warn("dropping undecodable cache entry", "key", fullKey, "error", jsonErr)
	case valkey.IsValkeyNil(err):
	default:
		metrics.CacheLookups.WithLabelValues("valkey", "error").Inc()
		c.logger.Warn("valkey lookup failed, fetching directly", "key", fullKey, "error", err)
		return fetch(ctx)
	}
	metrics.CacheLookups.WithLabelValues("valkey", "miss").Inc()

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", "key", fullKey, "error", err)
		return v, nil
	}
	cmd := c.client.B().Set().Key(fullKey).Value(string(encoded)).Ex(c.ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("failed to store cache entry", "key", fullKey, "error", err)
	}
	return v, nil
}

var _ enrichment.VideoCache = (*Valkey[[]generation.Video])(nil)
