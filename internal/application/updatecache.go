package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// UpdateCache remembers the signature of each pull request that was last
// dispatched successfully so unchanged pull requests are skipped cheaply.
// Suppression is best effort: losing the cache causes re-notification, never
// a missed notification.
type UpdateCache struct {
	mu           sync.Mutex
	signatures   map[int]string
	store        driven.SignatureStore // Optional durable copy.
	repoFullName string
}

// NewUpdateCache creates an in-memory cache.
func NewUpdateCache() *UpdateCache {
	return &UpdateCache{signatures: make(map[int]string)}
}

// NewPersistentUpdateCache creates a cache seeded from store and written
// through to it on every Invalidate. A load failure starts the cache empty so
// every pull request is treated as stale.
func NewPersistentUpdateCache(ctx context.Context, store driven.SignatureStore, repoFullName string) *UpdateCache {
	c := NewUpdateCache()
	c.store = store
	c.repoFullName = repoFullName

	loaded, err := store.Load(ctx, repoFullName)
	if err != nil {
		slog.Error("load update cache failed, assuming all pull requests stale", "repo", repoFullName, "error", err)
		return c
	}
	for number, sig := range loaded {
		c.signatures[number] = sig
	}
	slog.Debug("update cache loaded", "repo", repoFullName, "entries", len(loaded))
	return c
}

// NeedsUpdate reports whether pr has never been dispatched or has changed
// since its last successful dispatch. It does not modify the cache.
func (c *UpdateCache) NeedsUpdate(pr model.PullRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	sig, ok := c.signatures[pr.Number]
	return !ok || sig != pr.Signature()
}

// Invalidate records the current signature of pr. Call it only after every
// listener for pr has completed successfully.
func (c *UpdateCache) Invalidate(ctx context.Context, pr model.PullRequest) {
	sig := pr.Signature()

	c.mu.Lock()
	c.signatures[pr.Number] = sig
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Put(ctx, c.repoFullName, pr.Number, sig); err != nil {
		slog.Error("persist update cache entry failed", "pr", pr.Key(), "error", err)
	}
}

// Len returns the number of cached pull requests.
func (c *UpdateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.signatures)
}
