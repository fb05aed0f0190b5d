package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codr1/marketplace/internal/config"
	"github.com/codr1/marketplace/internal/openhours"
)

func newTestCache(t *testing.T) (*HoursCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func sampleWeek() openhours.Week {
	return openhours.Week{
		{DayID: 1, Start: openhours.MustTimeOfDay("09:00"), End: openhours.MustTimeOfDay("17:00")},
		{DayID: 5, Start: openhours.MustTimeOfDay("22:00"), End: openhours.MustTimeOfDay("02:00")},
		{DayID: 7, IsClosed: true},
	}
}

func TestLoad_ReadThrough(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (openhours.Week, error) {
		calls++
		return sampleWeek(), nil
	}

	week, err := c.Load(ctx, 7, load)
	require.NoError(t, err)
	assert.Len(t, week, 3)
	assert.True(t, mr.Exists("hours:shop:7"))

	week, err = c.Load(ctx, 7, load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, sampleWeek().Sorted(), week)

	mr.FastForward(2 * time.Minute)
	_, err = c.Load(ctx, 7, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, 3, sampleWeek())
	require.True(t, mr.Exists("hours:shop:3"))

	require.NoError(t, c.Invalidate(ctx, 3))
	assert.False(t, mr.Exists("hours:shop:3"))

	_, ok := c.Get(ctx, 3)
	assert.False(t, ok)
}

func TestLoad_PropagatesLoaderError(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("db down")

	_, err := c.Load(context.Background(), 1, func(context.Context) (openhours.Week, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("hours:shop:1"))
}

func TestGet_CorruptEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("hours:shop:4", "not json"))

	_, ok := c.Get(context.Background(), 4)
	assert.False(t, ok)
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *HoursCache
	ctx := context.Background()

	week, err := c.Load(ctx, 1, func(context.Context) (openhours.Week, error) { return sampleWeek(), nil })
	require.NoError(t, err)
	assert.Len(t, week, 3)
	assert.NoError(t, c.Invalidate(ctx, 1))
	assert.NoError(t, c.Close())
}

func TestNewFromConfig(t *testing.T) {
	c, err := NewFromConfig(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)

	mr := miniredis.RunT(t)
	c, err = NewFromConfig(context.Background(), config.RedisConfig{Address: mr.Addr(), HoursTTLSeconds: 30})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 30*time.Second, c.ttl)
	require.NoError(t, c.Close())
}
