package lru_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/timescope/internal/engine/lru"
	"go.trai.ch/zerr"
)

func keys[V any](c *lru.Cache[string, V]) []string {
	var out []string
	for k := range c.All() {
		out = append(out, k)
	}
	return out
}

func TestNew_RejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := lru.New[string, int](size)
		require.Error(t, err)

		zErr, ok := err.(*zerr.Error)
		require.True(t, ok, "expected *zerr.Error, got %T", err)
		assert.Equal(t, size, zErr.Metadata()["max_size"])
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := lru.New[string, int](3)
	require.NoError(t, err)

	var evicted []string
	c.OnEvict(func(k string, _ int) { evicted = append(evicted, k) })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	_, _ = c.Get("a")
	c.Set("d", 4)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b"}, evicted)
	assert.False(t, c.Has("b"))
	assert.Equal(t, []string{"d", "a", "c"}, keys(c))
}

func TestCache_SetPromotesExistingKey(t *testing.T) {
	c, err := lru.New[string, int](2)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	assert.False(t, c.Has("b"))
}

func TestCache_PeekDoesNotPromote(t *testing.T) {
	c, err := lru.New[string, int](2)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Peek("a")
	c.Set("c", 3)

	assert.False(t, c.Has("a"))
}

func TestCache_MaxSizePlusOne(t *testing.T) {
	const size = 16
	c, err := lru.New[string, int](size)
	require.NoError(t, err)

	for i := 0; i <= size; i++ {
		c.Set(fmt.Sprint(i), i)
	}

	assert.Equal(t, size, c.Len())
	assert.False(t, c.Has("0"))
	assert.True(t, c.Has(fmt.Sprint(size)))
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, err := lru.New[string, int](4)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, []string{"b"}, keys(c))

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, keys(c))
}
