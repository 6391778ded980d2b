package cacheutil

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Keyed is a bounded, TTL-expiring, read-through cache keyed by a
// comparable K, combining an LRU eviction policy with per-key fetch
// deduplication: concurrent callers requesting the same missing key
// block on one fetch rather than each performing their own.
//
// Used for the account/mint lookup cache (C2) and the oracle quote
// cache (C8), both of which are keyed lookups against a rate-limited
// upstream (chain RPC, a quote endpoint) where a cache stampede on a
// popular key would be wasteful.
type Keyed[K comparable, V any] struct {
	ttl   time.Duration
	cache *lru.Cache[K, entry[V]]

	mu      sync.Mutex
	inFlight map[K]*call[V]
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// NewKeyed creates a Keyed cache holding at most size entries, each
// valid for ttl after being fetched.
func NewKeyed[K comparable, V any](size int, ttl time.Duration) (*Keyed[K, V], error) {
	c, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &Keyed[K, V]{
		ttl:      ttl,
		cache:    c,
		inFlight: make(map[K]*call[V]),
	}, nil
}

// Get returns the cached value for key if present and unexpired,
// otherwise calls fetch exactly once (even under concurrent callers
// racing on the same key) and caches the result on success.
func (k *Keyed[K, V]) Get(key K, fetch func() (V, error)) (V, error) {
	now := time.Now()
	if e, ok := k.cache.Get(key); ok && now.Sub(e.fetchedAt) < k.ttl {
		return e.value, nil
	}

	k.mu.Lock()
	if c, ok := k.inFlight[key]; ok {
		k.mu.Unlock()
		<-c.done
		return c.value, c.err
	}

	c := &call[V]{done: make(chan struct{})}
	k.inFlight[key] = c
	k.mu.Unlock()

	c.value, c.err = fetch()
	if c.err == nil {
		k.cache.Add(key, entry[V]{value: c.value, fetchedAt: time.Now()})
	}

	k.mu.Lock()
	delete(k.inFlight, key)
	k.mu.Unlock()
	close(c.done)

	return c.value, c.err
}

// Invalidate removes key from the cache, forcing the next Get to fetch.
func (k *Keyed[K, V]) Invalidate(key K) {
	k.cache.Remove(key)
}

// Len reports the number of entries currently cached.
func (k *Keyed[K, V]) Len() int {
	return k.cache.Len()
}
