package usercontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/hrygo/userctx/internal/errors"
)

func scopedContext() (context.Context, *Scope) {
	scope := NewScope()
	ctx := WithScope(context.Background(), scope)
	return WithWorkerID(ctx, "worker-1"), scope
}

func TestCacheSetGetRoundTrip(t *testing.T) {
	cache := NewCache(CacheConfig{})
	defer cache.Close()
	ctx, _ := scopedContext()

	uc := validContext(1)
	prev, err := cache.Set(ctx, uc)
	require.NoError(t, err)
	assert.Nil(t, prev)

	assert.Same(t, uc, cache.Get(ctx))

	id, ok := cache.CurrentUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int32(1), id)
}

func TestCacheSetReturnsPrevious(t *testing.T) {
	cache := NewCache(CacheConfig{})
	defer cache.Close()
	ctx, _ := scopedContext()

	first := validContext(1)
	_, err := cache.Set(ctx, first)
	require.NoError(t, err)

	second := validContext(2)
	prev, err := cache.Set(ctx, second)
	require.NoError(t, err)
	assert.Same(t, first, prev)
	assert.Same(t, second, cache.Get(ctx))
}

func TestCacheSetRejectsInvalid(t *testing.T) {
	cache := NewCache(CacheConfig{})
	defer cache.Close()
	ctx, _ := scopedContext()

	_, err := cache.Set(ctx, nil)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrCodeInvalidArgument))

	expired := validContext(1)
	past := time.Now().Add(-time.Minute)
	expired.SessionExpiresAt = &past
	_, err = cache.Set(ctx, expired)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrCodeInvalidArgument))

	// A rejected Set leaves the cache untouched.
	assert.Nil(t, cache.Get(ctx))
}

func TestCachePromotesDeeperHits(t *testing.T) {
	cache := NewCache(CacheConfig{})
	defer cache.Close()
	ctx, scope := scopedContext()

	// Plant the context in the global slot only, as another worker's Set
	// would have left it for a caller with a fresh scope.
	uc := validContext(1)
	cache.tiers[2].Set(ctx, uc)
	require.Nil(t, scope.current.Load())

	assert.Same(t, uc, cache.Get(ctx))
	assert.Same(t, uc, scope.current.Load(), "hit promoted into the affine slot")
	assert.Same(t, uc, cache.tiers[1].Get(ctx), "hit promoted into the worker table")
}

func TestCacheFallsBackToTTLStore(t *testing.T) {
	cache := NewCache(CacheConfig{})
	defer cache.Close()
	ctx, _ := scopedContext()

	uc := validContext(1)
	_, err := cache.Set(ctx, uc)
	require.NoError(t, err)

	// Wipe the in-memory tiers; only the external store still has it.
	for _, tier := range cache.tiers[:3] {
		tier.Invalidate(ctx)
	}

	assert.Same(t, uc, cache.Get(ctx))
	assert.Same(t, uc, cache.tiers[2].Get(ctx), "hit promoted back into the global slot")
}

func TestCacheTreatsInvalidAsMiss(t *testing.T) {
	cache := NewCache(CacheConfig{})
	defer cache.Close()
	ctx, _ := scopedContext()

	stale := validContext(1)
	past := time.Now().Add(-time.Minute)
	cache.tiers[2].Set(ctx, stale)
	stale.SessionExpiresAt = &past

	assert.Nil(t, cache.Get(ctx))
	// The stale value is not evicted eagerly; only a write replaces it.
	assert.Same(t, stale, cache.tiers[2].Get(ctx))

	fresh := validContext(2)
	_, err := cache.Set(ctx, fresh)
	require.NoError(t, err)
	assert.Same(t, fresh, cache.tiers[2].Get(ctx))
}

func TestCacheClearIsIdempotent(t *testing.T) {
	cache := NewCache(CacheConfig{})
	defer cache.Close()
	ctx, _ := scopedContext()

	uc := validContext(1)
	_, err := cache.Set(ctx, uc)
	require.NoError(t, err)

	removed := cache.Clear(ctx)
	assert.Same(t, uc, removed)
	assert.Nil(t, cache.Get(ctx))

	assert.Nil(t, cache.Clear(ctx), "second clear is a no-op")
}

func TestCurrentUserIDSkipsSlowTiers(t *testing.T) {
	cache := NewCache(CacheConfig{})
	defer cache.Close()
	ctx, _ := scopedContext()

	// Only the worker table holds the context: the full read path finds it,
	// the cheap id accessor does not.
	uc := validContext(7)
	cache.tiers[1].Set(ctx, uc)

	_, ok := cache.CurrentUserID(ctx)
	assert.False(t, ok)
	assert.Same(t, uc, cache.Get(ctx))

	// The full read promoted it into the affine slot, so the cheap path now
	// sees it too.
	id, ok := cache.CurrentUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int32(7), id)
}

func TestCacheWithoutScopeStillResolves(t *testing.T) {
	cache := NewCache(CacheConfig{})
	defer cache.Close()
	ctx := context.Background()

	uc := validContext(3)
	_, err := cache.Set(ctx, uc)
	require.NoError(t, err)
	assert.Same(t, uc, cache.Get(ctx), "global slot serves callers without a scope")

	id, ok := cache.CurrentUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int32(3), id)
}
