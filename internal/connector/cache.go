package connector

import (
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/singleflight"
)

// singleResourceKey is the cache key for resource types that target exactly
// one implicit resource.
const singleResourceKey = ""

type cacheEntry struct {
	client      any
	fingerprint string
}

// clientCache memoizes authenticated client handles for one connector
// instance. It is never shared across instances, so cached authorization
// stays scoped to the credentials that created it.
type clientCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func newClientCache() *clientCache {
	return &clientCache{entries: make(map[string]cacheEntry)}
}

// lookup returns the cached client for key if it was created with the given
// credential fingerprint.
func (c *clientCache) lookup(key, fingerprint string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || entry.fingerprint != fingerprint {
		return nil, false
	}
	return entry.client, true
}

// stale reports whether key holds an entry created with a different
// fingerprint.
func (c *clientCache) stale(key, fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return ok && entry.fingerprint != fingerprint
}

// store records a client after a fully successful handshake. Entries are
// never written for partial failures; connect only calls store once the
// driver returned without error.
func (c *clientCache) store(key, fingerprint string, client any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{client: client, fingerprint: fingerprint}
}

// evict drops the entry for key, closing the client when it is closable.
func (c *clientCache) evict(key string) error {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return closeClient(entry.client)
}

// purge synchronously drops every entry, closing closable clients before
// returning.
func (c *clientCache) purge() error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()

	var errs []error
	for _, entry := range entries {
		if err := closeClient(entry.client); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *clientCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func closeClient(client any) error {
	if closer, ok := client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
