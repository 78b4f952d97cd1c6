package usercontext

import (
	"context"
	"io"
	"time"

	errs "github.com/hrygo/userctx/internal/errors"
)

// DefaultContextTTL bounds how long the external tier keeps a context alive
// without a write refreshing it.
const DefaultContextTTL = 30 * time.Minute

// CacheConfig configures the tiered context cache.
type CacheConfig struct {
	// TTL applies to writes into the external tier. Zero means
	// DefaultContextTTL.
	TTL time.Duration
	// TTLStore overrides the external tier backing. Nil means an in-process
	// ttlcache instance owned by the Cache.
	TTLStore ContextTTLStore
}

// Cache resolves the current user context through an ordered list of tiers,
// promoting hits toward the front.
type Cache struct {
	tiers []Tier
	// fast holds the tiers CurrentUserID consults: the caller-affine slot
	// and the global slot, skipping the worker table and the external store.
	fast     []Tier
	ttlStore ContextTTLStore
}

// NewCache builds the standard four-tier chain: caller-affine scope, worker
// table, global slot, external TTL store.
func NewCache(config CacheConfig) *Cache {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	ttlStore := config.TTLStore
	if ttlStore == nil {
		ttlStore = newMemoryTTLStore()
	}

	affinity := &affinityTier{}
	workers := &workerTableTier{}
	global := &globalTier{}
	external := &ttlTier{store: ttlStore, ttl: ttl}

	return &Cache{
		tiers:    []Tier{affinity, workers, global, external},
		fast:     []Tier{affinity, global},
		ttlStore: ttlStore,
	}
}

// NewCacheWithTiers builds a cache over an explicit tier chain. Used by tests
// and by deployments that need a different tier mix; CurrentUserID consults
// every tier in this mode.
func NewCacheWithTiers(tiers ...Tier) *Cache {
	return &Cache{tiers: tiers, fast: tiers}
}

// Get resolves the current context for the caller. A tier holding an invalid
// context is treated as a miss and left in place; only a later Set or Clear
// replaces it. Hits on deeper tiers are promoted into every earlier tier.
func (c *Cache) Get(ctx context.Context) *UserContext {
	for i, tier := range c.tiers {
		uc := tier.Get(ctx)
		if uc == nil || !uc.IsValid() {
			continue
		}
		for _, earlier := range c.tiers[:i] {
			earlier.Set(ctx, uc)
		}
		return uc
	}
	return nil
}

// Set installs uc in every tier and returns the context it replaced. The
// previous value is captured before any tier is written, so the caller can
// derive the change type. Nil or invalid contexts are rejected.
func (c *Cache) Set(ctx context.Context, uc *UserContext) (*UserContext, error) {
	if uc == nil {
		return nil, errs.InvalidArgument("user context must not be nil")
	}
	if !uc.IsValid() {
		return nil, errs.InvalidArgument("user context is not valid")
	}

	prev := c.Get(ctx)
	for _, tier := range c.tiers {
		tier.Set(ctx, uc)
	}
	return prev, nil
}

// Clear removes the current context from every tier and returns it. With no
// valid current context it is a no-op returning nil.
func (c *Cache) Clear(ctx context.Context) *UserContext {
	current := c.Get(ctx)
	if current == nil {
		return nil
	}
	for _, tier := range c.tiers {
		tier.Invalidate(ctx)
	}
	return current
}

// CurrentUserID returns the active user's id, consulting only the cheap
// tiers. High-frequency callers that just need the id take this path.
func (c *Cache) CurrentUserID(ctx context.Context) (int32, bool) {
	for _, tier := range c.fast {
		if uc := tier.Get(ctx); uc.IsValid() {
			return uc.UserID, true
		}
	}
	return 0, false
}

// Close releases the cache-owned external tier, if any.
func (c *Cache) Close() error {
	if closer, ok := c.ttlStore.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
