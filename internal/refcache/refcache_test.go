package refcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInsertAndLookup(t *testing.T) {
	c := New(10, 5*time.Second)
	c.Insert("abc", 1000)

	got, ok := c.Lookup("abc")
	assert.True(t, ok)
	assert.Equal(t, int64(1000), got)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)
}

func TestCapacityNeverExceeded(t *testing.T) {
	c := New(3, time.Minute)
	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Insert("c", 3)
	c.Insert("d", 4) // overflow: "a" is evicted

	assert.Equal(t, 3, c.Len())
	_, ok := c.Lookup("a")
	assert.False(t, ok)
	_, ok = c.Lookup("d")
	assert.True(t, ok)
}

func TestEvictExpiredRemovesOnlyStaleEntries(t *testing.T) {
	c := New(10, time.Second)
	base := time.Now()
	c.clock = func() time.Time { return base }
	c.Insert("old", 100)

	c.clock = func() time.Time { return base.Add(10 * time.Millisecond) }
	c.Insert("fresh", 200)

	removed := c.EvictExpired(base.Add(2 * time.Second))
	assert.Equal(t, 1, removed)

	_, ok := c.Lookup("old")
	assert.False(t, ok)
	got, ok := c.Lookup("fresh")
	assert.True(t, ok)
	assert.Equal(t, int64(200), got)
}

func TestEvictExpiredReturnsZeroWhenNothingStale(t *testing.T) {
	c := New(10, time.Minute)
	c.Insert("recent", 1)
	assert.Equal(t, 0, c.EvictExpired(time.Now()))
}
