package resultcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanqian/rihla/internal/domain/enrichment"
	"github.com/yanqian/rihla/internal/domain/generation"
	"github.com/yanqian/rihla/pkg/metrics"
	"github.com/yanqian/rihla/pkg/util"
)

const (
	// DefaultTTL is used when a cache is built with a non-positive ttl.
	DefaultTTL = time.Hour
	// sharedFetchTimeout bounds a coalesced fetch, which outlives any single caller.
	sharedFetchTimeout = 30 * time.Second
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Memory is a process-local TTL cache. Stale entries are dropped on lookup
// and concurrent misses for one key share a single fetch.
type Memory[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	clock   util.Clock
	group   singleflight.Group
}

// NewMemory builds an empty cache. clock may be nil.
func NewMemory[V any](ttl time.Duration, clock util.Clock) *Memory[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Memory[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		clock:   clock,
	}
}

// GetOrFetch returns the fresh cached value for key or stores the result of fetch.
func (m *Memory[V]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := m.lookup(key); ok {
		metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
		return v, nil
	}
	metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()

	ch := m.group.DoChan(key, func() (any, error) {
		if v, ok := m.lookup(key); ok {
			return v, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.entries[key] = entry[V]{value: v, insertedAt: m.clock.Now()}
		m.mu.Unlock()
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Len reports how many entries are held, stale ones included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory[V]) lookup(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if m.clock.Now().Sub(e.insertedAt) > m.ttl {
		delete(m.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

var _ enrichment.VideoCache = (*Memory[[]generation.Video])(nil)
