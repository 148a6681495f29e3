package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key1", []byte("value1"), 0))

	val, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", string(val))

	require.NoError(t, cache.Set(ctx, "key1", []byte("value2"), 0))
	val, err = cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, "value2", string(val))

	_, err = cache.Get(ctx, "key2")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	require.NoError(t, cache.Set(ctx, "forever", []byte("v"), 0))

	time.Sleep(40 * time.Millisecond)

	_, err := cache.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = cache.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryCache_ExpiredEntryDroppedOnRead(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: 5 * time.Millisecond})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 0))
	time.Sleep(20 * time.Millisecond)

	_, err := cache.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, ok := cache.data.Load("k")
	assert.False(t, ok)
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, cache.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _ := cache.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryCache_Closed(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{})
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
	ctx := context.Background()

	assert.ErrorIs(t, cache.Set(ctx, "k", nil, 0), ErrCacheClosed)
	_, err := cache.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheClosed)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			_ = cache.Set(ctx, key, []byte{byte(i)}, 0)
			_, _ = cache.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	_, err := cache.Get(ctx, "a")
	assert.NoError(t, err)
}
