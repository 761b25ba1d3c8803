package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewMemoryStore(clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	clock.Advance(time.Minute)

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore_NoTTLNeverExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewMemoryStore(clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	clock.Advance(24 * time.Hour)

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_SetNX(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewMemoryStore(clock)
	ctx := context.Background()

	set, err := s.SetNX(ctx, "hint", []byte("1"), 10*time.Second)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = s.SetNX(ctx, "hint", []byte("1"), 10*time.Second)
	require.NoError(t, err)
	assert.False(t, set)

	clock.Advance(10 * time.Second)

	set, err = s.SetNX(ctx, "hint", []byte("1"), 10*time.Second)
	require.NoError(t, err)
	assert.True(t, set)
}

func TestMemoryStore_IncrAndDelete(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClock())
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := s.Incr(ctx, "failures", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	require.NoError(t, s.Delete(ctx, "failures"))

	n, err := s.Incr(ctx, "failures", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
