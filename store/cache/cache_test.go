package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.Set(ctx, "user:1", "alice")

	value, found := c.Get(ctx, "user:1")
	require.True(t, found)
	assert.Equal(t, "alice", value)

	_, found = c.Get(ctx, "user:2")
	assert.False(t, found)
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.SetWithTTL(ctx, "user:1", "alice", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, found := c.Get(ctx, "user:1")
	assert.False(t, found, "expired entry is a miss")
}

func TestCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)

	c.Delete(ctx, "a")
	_, found := c.Get(ctx, "a")
	assert.False(t, found)
	assert.Equal(t, 1, c.Size())

	c.Clear(ctx)
	assert.Zero(t, c.Size())
}
