package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/angsh-d/clinops-intel-sub000/internal/metrics"
)

// DefaultTTL is the freshness window applied when a caller does not override
// it per call.
const DefaultTTL = 120 * time.Second

// FetchFunc loads the value for a key when the cache cannot serve it.
type FetchFunc func(ctx context.Context) ([]byte, error)

type entry struct {
	body     []byte
	storedAt time.Time
}

// ResponseCache is a read-through cache for endpoint response bodies with
// in-flight de-duplication: concurrent callers for the same key share a
// single fetch and its result or error. A fetch failure never evicts a
// previously stored entry. All state is per instance; construct one per
// client.
type ResponseCache struct {
	defaultTTL time.Duration
	now        func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	entries    map[string]entry
	inflight   map[string]uint64
	generation uint64
}

// New returns a cache whose entries are fresh for defaultTTL unless a Get
// call overrides it. Non-positive defaultTTL selects DefaultTTL.
func New(defaultTTL time.Duration) *ResponseCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &ResponseCache{
		defaultTTL: defaultTTL,
		now:        time.Now,
		entries:    make(map[string]entry),
		inflight:   make(map[string]uint64),
	}
}

// Get returns the cached body for key when its age is below ttl, otherwise
// fetches through fetch. Non-positive ttl selects the instance default.
// Concurrent callers for the same key while a fetch is in flight receive
// that fetch's result; the fetch runs once. On success the entry is replaced
// atomically with the current timestamp; on failure the prior entry, if any,
// is left untouched and the error is returned to every waiting caller.
func (c *ResponseCache) Get(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("response cache not initialised")
	}
	if fetch == nil {
		return nil, fmt.Errorf("nil fetch for %s", key)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if body, ok := c.lookup(key, ttl); ok {
		metrics.ObserveCacheEvent(metrics.CacheHit)
		return body, nil
	}
	metrics.ObserveCacheEvent(metrics.CacheMiss)

	result, err, _ := c.group.Do(key, func() (any, error) {
		// Register the flight before dispatching so Invalidate can see it.
		c.mu.Lock()
		gen := c.generation
		c.inflight[key] = gen
		c.mu.Unlock()

		body, fetchErr := fetch(ctx)

		c.mu.Lock()
		if g, ok := c.inflight[key]; ok && g == gen {
			delete(c.inflight, key)
		}
		if fetchErr == nil && gen == c.generation {
			c.entries[key] = entry{
				body:     append([]byte(nil), body...),
				storedAt: c.now(),
			}
		}
		c.mu.Unlock()

		if fetchErr != nil {
			return nil, fetchErr
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), result.([]byte)...), nil
}

// Invalidate clears every entry and forgets every in-flight fetch, so the
// next Get for any key always goes to the network. Fetches already in flight
// still settle for the callers awaiting them, but their results are not
// stored.
func (c *ResponseCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.generation++
	keys := make([]string, 0, len(c.inflight))
	for key := range c.inflight {
		keys = append(keys, key)
	}
	c.inflight = make(map[string]uint64)
	c.mu.Unlock()

	for _, key := range keys {
		c.group.Forget(key)
	}
	metrics.ObserveCacheEvent(metrics.CacheInvalidate)
}

// Len reports the number of stored entries, regardless of freshness.
func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ResponseCache) lookup(key string, ttl time.Duration) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= ttl {
		return nil, false
	}
	return append([]byte(nil), e.body...), true
}
