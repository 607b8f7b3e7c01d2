package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUSetGetRoundTrip(t *testing.T) {
	l := NewLRU(10)
	l.Set("a", []byte("hello"), time.Minute)

	v, ok := l.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), v)
}

func TestLRUGetMissingKey(t *testing.T) {
	l := NewLRU(10)
	_, ok := l.Get("missing")
	assert.False(t, ok)
}

func TestLRUExpiredEntryIsEvictedOnGet(t *testing.T) {
	l := NewLRU(10)
	l.Set("a", []byte("hello"), -time.Second)

	_, ok := l.Get("a")
	assert.False(t, ok)

	l.mu.Lock()
	_, stillPresent := l.items["a"]
	l.mu.Unlock()
	assert.False(t, stillPresent)
}

func TestLRUEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	l := NewLRU(2)
	l.Set("a", []byte("1"), time.Minute)
	l.Set("b", []byte("2"), time.Minute)
	l.Set("c", []byte("3"), time.Minute)

	_, ok := l.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = l.Get("b")
	assert.True(t, ok)
	_, ok = l.Get("c")
	assert.True(t, ok)
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	l := NewLRU(2)
	l.Set("a", []byte("1"), time.Minute)
	l.Set("b", []byte("2"), time.Minute)

	l.Get("a") // a is now most-recently-used
	l.Set("c", []byte("3"), time.Minute)

	_, ok := l.Get("b")
	assert.False(t, ok, "b should have been evicted, not a")
	_, ok = l.Get("a")
	assert.True(t, ok)
}

func TestLRUDeleteRemovesEntry(t *testing.T) {
	l := NewLRU(10)
	l.Set("a", []byte("1"), time.Minute)
	l.Delete("a")

	_, ok := l.Get("a")
	assert.False(t, ok)
}

func TestLRUDeleteMissingKeyIsNoop(t *testing.T) {
	l := NewLRU(10)
	assert.NotPanics(t, func() { l.Delete("nope") })
}

func TestLRUSetOverwritesExistingKey(t *testing.T) {
	l := NewLRU(10)
	l.Set("a", []byte("1"), time.Minute)
	l.Set("a", []byte("2"), time.Minute)

	v, ok := l.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), v)

	l.mu.Lock()
	count := len(l.items)
	l.mu.Unlock()
	assert.Equal(t, 1, count, "overwriting a key must not grow the entry count")
}

func TestLRUGetReturnsCopyNotSharedSlice(t *testing.T) {
	l := NewLRU(10)
	original := []byte("hello")
	l.Set("a", original, time.Minute)

	v, _ := l.Get("a")
	v[0] = 'X'

	v2, _ := l.Get("a")
	assert.Equal(t, []byte("hello"), v2, "mutating a returned value must not affect the stored entry")
}

func TestNewLRUDefaultsNonPositiveCapacity(t *testing.T) {
	l := NewLRU(0)
	assert.Equal(t, 10000, l.maxEntries)
}
