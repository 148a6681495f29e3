package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedCache(t *testing.T) {
	mem := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = mem.Close() }()
	ctx := context.Background()

	tc := NewTypedCache[map[string]string](mem, 0)

	_, err := tc.Get(ctx, "urlmap")
	assert.ErrorIs(t, err, ErrCacheMiss)

	want := map[string]string{"https://old.example.org/a.jpg": "/media/a.jpg", "30": "/media/a.jpg"}
	require.NoError(t, tc.Set(ctx, "urlmap", &want))

	got, err := tc.Get(ctx, "urlmap")
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestTypedCache_DecodeError(t *testing.T) {
	mem := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = mem.Close() }()
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "bad", []byte("not json"), 0))
	_, err := NewTypedCache[map[string]string](mem, 0).Get(ctx, "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
