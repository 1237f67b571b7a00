package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	c := New("test", time.Minute)

	c.Set("key", []string{"a", "b"}, 0)

	value, found := c.Get("key")
	require.True(t, found)
	assert.Equal(t, []string{"a", "b"}, value)
}

func TestGetAbsentKey(t *testing.T) {
	c := New("test", time.Minute)

	_, found := c.Get("never-set")
	assert.False(t, found)
}

func TestExpiry(t *testing.T) {
	c := New("test", time.Minute)

	c.Set("short", "value", 20*time.Millisecond)

	_, found := c.Get("short")
	require.True(t, found)

	time.Sleep(40 * time.Millisecond)

	_, found = c.Get("short")
	assert.False(t, found, "expired entries must read as absent")
}

func TestKeysAreIndependent(t *testing.T) {
	c := New("test", time.Minute)

	c.Set("filters|low|3", "list-a", 0)
	c.Set("filters|low|5", "list-b", 0)

	a, foundA := c.Get("filters|low|3")
	b, foundB := c.Get("filters|low|5")
	require.True(t, foundA)
	require.True(t, foundB)
	assert.NotEqual(t, a, b)
}

func TestInvalidate(t *testing.T) {
	c := New("test", time.Minute)

	c.Set("key", "value", 0)
	c.Invalidate("key")

	_, found := c.Get("key")
	assert.False(t, found)

	// Invalidating an absent key must not panic.
	c.Invalidate("never-set")
}

func TestLastWriterWins(t *testing.T) {
	c := New("test", time.Minute)

	c.Set("key", "first", 0)
	c.Set("key", "second", 0)

	value, found := c.Get("key")
	require.True(t, found)
	assert.Equal(t, "second", value)
}
