package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

// TestLRUCache_Expiry tests that entries vanish at their deadline.
func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string, int](10, clock.Now)

	c.SetUntil("a", 1, clock.t.Add(time.Minute))
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock.t = clock.t.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

// TestLRUCache_Eviction tests that the least recently used entry goes first.
func TestLRUCache_Eviction(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[string, int](2, clock.Now)
	far := clock.t.Add(time.Hour)

	c.SetUntil("a", 1, far)
	c.SetUntil("b", 2, far)
	_, _ = c.Get("a")
	c.SetUntil("c", 3, far)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.True(t, c.Remove("c"))
	assert.False(t, c.Remove("c"))
}

// TestDayIndex tests midnight rollover and explicit invalidation.
func TestDayIndex(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	clock := &fakeClock{t: time.Date(2026, 10, 15, 23, 30, 0, 0, loc)}
	idx := NewDayIndex[[]string](loc, clock.Now)

	idx.Put(clock.t, []string{"x"})
	got, ok := idx.Get(clock.t)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, got)

	idx.Invalidate(clock.t)
	_, ok = idx.Get(clock.t)
	assert.False(t, ok)

	idx.Put(clock.t, []string{"y"})
	clock.t = clock.t.Add(31 * time.Minute)
	_, ok = idx.Get(clock.t.Add(-time.Hour))
	assert.False(t, ok, "entry must expire at midnight")
	assert.Equal(t, "2026-10-16", idx.Key(clock.t))
}
