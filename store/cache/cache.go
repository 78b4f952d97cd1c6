// Package cache provides the in-memory TTL cache used by the store facade.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Config holds the cache settings.
type Config struct {
	// DefaultTTL is applied to entries stored without an explicit TTL.
	DefaultTTL time.Duration
	// MaxItems caps the cache size; the least recently used entry is evicted
	// beyond it. Zero means unbounded.
	MaxItems uint64
	// OnEviction is invoked for entries removed by expiry or capacity.
	OnEviction func(key string, value any)
}

// Cache is a TTL-bounded key/value cache.
type Cache struct {
	inner *ttlcache.Cache[string, any]
	stop  func()
}

// New creates a cache and starts its expiry janitor.
func New(config Config) *Cache {
	opts := []ttlcache.Option[string, any]{}
	if config.DefaultTTL > 0 {
		opts = append(opts, ttlcache.WithTTL[string, any](config.DefaultTTL))
	}
	if config.MaxItems > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, any](config.MaxItems))
	}

	inner := ttlcache.New(opts...)
	if config.OnEviction != nil {
		inner.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, any]) {
			config.OnEviction(item.Key(), item.Value())
		})
	}

	go inner.Start()

	return &Cache{
		inner: inner,
		stop:  inner.Stop,
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	item := c.inner.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(_ context.Context, key string, value any) {
	c.inner.Set(key, value, ttlcache.DefaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	c.inner.Set(key, value, ttl)
}

// Delete removes key from the cache.
func (c *Cache) Delete(_ context.Context, key string) {
	c.inner.Delete(key)
}

// Clear removes all entries.
func (c *Cache) Clear(_ context.Context) {
	c.inner.DeleteAll()
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	return c.inner.Len()
}

// Close stops the expiry janitor.
func (c *Cache) Close() error {
	c.stop()
	return nil
}
