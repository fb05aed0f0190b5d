// Package cache keeps shops' weekly opening hours in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/config"
	"github.com/codr1/marketplace/internal/metrics"
	"github.com/codr1/marketplace/internal/openhours"
)

// HoursCache is a read-through cache of opening hours. A nil *HoursCache is
// valid and always misses.
type HoursCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *HoursCache {
	if client == nil {
		return nil
	}
	return &HoursCache{client: client, ttl: ttl}
}

// NewFromConfig connects to Redis. It returns nil, nil when Redis is not configured.
func NewFromConfig(ctx context.Context, cfg config.RedisConfig) (*HoursCache, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, cfg.HoursTTL()), nil
}

func hoursKey(shopID int64) string {
	return fmt.Sprintf("hours:shop:%d", shopID)
}

// Get returns the cached week. ok is false on a miss or any Redis failure.
func (c *HoursCache) Get(ctx context.Context, shopID int64) (week openhours.Week, ok bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, hoursKey(shopID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.IncHoursCache("miss")
		} else {
			metrics.IncHoursCache("error")
			log.Ctx(ctx).Warn().Err(err).Int64("shop_id", shopID).Msg("Opening hours cache read failed")
		}
		return nil, false
	}

	var records []openhours.WireRecord
	if err := json.Unmarshal([]byte(val), &records); err != nil {
		metrics.IncHoursCache("error")
		return nil, false
	}
	week, err = openhours.WeekFromWire(records)
	if err != nil {
		metrics.IncHoursCache("error")
		return nil, false
	}
	metrics.IncHoursCache("hit")
	return week, true
}

func (c *HoursCache) Set(ctx context.Context, shopID int64, week openhours.Week) {
	if c == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(week.ToWire())
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, hoursKey(shopID), data, c.ttl).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("shop_id", shopID).Msg("Opening hours cache write failed")
	}
}

// Invalidate drops the shop's entry after its hours change.
func (c *HoursCache) Invalidate(ctx context.Context, shopID int64) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, hoursKey(shopID)).Err()
}

// Load returns the cached week or calls load and caches its result.
func (c *HoursCache) Load(ctx context.Context, shopID int64, load func(context.Context) (openhours.Week, error)) (openhours.Week, error) {
	if week, ok := c.Get(ctx, shopID); ok {
		return week, nil
	}
	week, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(ctx, shopID, week)
	return week, nil
}

func (c *HoursCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
