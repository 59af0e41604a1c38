package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryGetSet(t *testing.T) {
	c := NewMemory(10, 0)
	ctx := context.Background()

	_, found := c.Get(ctx, "missing")
	assert.False(t, found)

	c.Set(ctx, "key", "value", time.Minute)
	got, found := c.Get(ctx, "key")
	assert.True(t, found)
	assert.Equal(t, "value", got)
}

func TestMemoryExpiration(t *testing.T) {
	c := NewMemory(10, 0)
	ctx := context.Background()

	c.Set(ctx, "short", "value", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, found := c.Get(ctx, "short")
	assert.False(t, found)
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	c := NewMemory(10, 0)
	ctx := context.Background()

	c.Set(ctx, "forever", "value", 0)
	time.Sleep(2 * time.Millisecond)

	got, found := c.Get(ctx, "forever")
	assert.True(t, found)
	assert.Equal(t, "value", got)
}

func TestMemoryDelete(t *testing.T) {
	c := NewMemory(10, 0)
	ctx := context.Background()

	c.Set(ctx, "key", "value", time.Minute)
	c.Delete(ctx, "key")

	_, found := c.Get(ctx, "key")
	assert.False(t, found)
}

func TestMemoryEviction(t *testing.T) {
	c := NewMemory(2, 0)
	ctx := context.Background()

	c.Set(ctx, "a", "1", time.Minute)
	c.Set(ctx, "b", "2", time.Hour)
	c.Set(ctx, "c", "3", time.Hour)

	// The entry closest to expiring was evicted to stay under the cap
	_, foundA := c.Get(ctx, "a")
	_, foundB := c.Get(ctx, "b")
	_, foundC := c.Get(ctx, "c")
	assert.False(t, foundA)
	assert.True(t, foundB)
	assert.True(t, foundC)
}
