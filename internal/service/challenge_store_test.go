package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryChallengeStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	require.NoError(t, store.Store(ctx, "k", []byte("state"), time.Minute))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), got)

	require.NoError(t, store.Delete(ctx, "k"))

	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryChallengeStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	require.NoError(t, store.Store(ctx, "k", []byte("state"), -time.Second))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryChallengeStoreMissingKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	got, err := store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete(ctx, "absent"))
}
