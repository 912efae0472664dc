package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadmail/models"
)

func TestHeaderCacheSetGet(t *testing.T) {
	cache := NewHeaderCache(time.Minute)

	records := []models.HeaderRecord{{MessageID: "<a@x>", SeqNum: 1}}
	cache.Set("user|INBOX|500|1|true", records)

	got, ok := cache.Get("user|INBOX|500|1|true")
	require.True(t, ok)
	assert.Equal(t, records, got)
	assert.Equal(t, 1, cache.Size())
}

func TestHeaderCacheMiss(t *testing.T) {
	cache := NewHeaderCache(time.Minute)

	_, ok := cache.Get("absent")
	assert.False(t, ok)
}

func TestHeaderCacheExpiry(t *testing.T) {
	cache := NewHeaderCache(10 * time.Millisecond)
	cache.Set("k", []models.HeaderRecord{{SeqNum: 1}})

	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Get("k")
	assert.False(t, ok)
	// The expired read evicts the entry.
	assert.Equal(t, 0, cache.Size())
}

func TestHeaderCacheDelete(t *testing.T) {
	cache := NewHeaderCache(time.Minute)
	cache.Set("k", nil)
	cache.Delete("k")

	_, ok := cache.Get("k")
	assert.False(t, ok)
}
