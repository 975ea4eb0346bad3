package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/feedpulse/pkg/stats"
)

type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func (brokenBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection reset")
}

func (brokenBackend) Delete(context.Context, string) error {
	return errors.New("connection reset")
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory().WithClock(func() time.Time { return now })

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, m.Delete(ctx, "k"))

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestStatsCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := NewMemory().WithClock(func() time.Time { return now })
	c := NewStatsCache(mem, 0, nil)

	_, ok := c.Get(ctx)
	assert.False(t, ok)

	c.Put(ctx, stats.Stats{Total: 7, BySource: map[string]int{"email": 7}})
	got, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 7, got.Total)
	assert.Equal(t, 7, got.BySource["email"])

	now = now.Add(DefaultStatsTTL)
	_, ok = c.Get(ctx)
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestStatsCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewStatsCache(NewMemory(), time.Minute, nil)
	c.Put(ctx, stats.Stats{Total: 1})
	c.Invalidate(ctx)

	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestStatsCacheBackendFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	c := NewStatsCache(brokenBackend{}, time.Minute, nil)

	assert.NotPanics(t, func() {
		c.Put(ctx, stats.Stats{Total: 1})
		c.Invalidate(ctx)
	})
	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestStatsCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Set(ctx, StatsKey, []byte("not json"), time.Minute))

	_, ok := NewStatsCache(mem, time.Minute, nil).Get(ctx)
	assert.False(t, ok)
}
