package cache_test

import (
	"testing"
	"time"

	"github.com/geocoder89/monocontact/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := cache.New(time.Minute)

	c.Set("k", 42)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestCache_MissingKey(t *testing.T) {
	c := cache.New(time.Minute)

	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestCache_EntriesExpire(t *testing.T) {
	c := cache.New(10 * time.Millisecond)

	c.Set("k", "v")

	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok, "entry should have expired")
}

func TestCache_Delete(t *testing.T) {
	c := cache.New(time.Minute)

	c.Set("k", "v")
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := cache.New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.False(t, okA)
	assert.False(t, okB)
}
