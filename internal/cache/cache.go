// Package cache wraps the redis concerns: the logout token denylist and
// the short-lived clinic stats cache. Redis being down degrades both
// gracefully — denylist checks fail open on the read path only when the
// error is a miss, and stats fall back to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ajaykumarbhatane/dental-management/internal/models"
)

type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to redis from a URL ("redis://host:6379") and verifies
// the connection with a ping.
func New(ctx context.Context, redisURL string, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("redis connection established", zap.String("addr", opts.Addr))
	return &Cache{client: client, logger: logger}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func denyKey(jti string) string {
	return "auth:denylist:" + jti
}

// DenyToken records a token's jti until its natural expiry. Logout calls
// this; the ttl is the token's remaining lifetime, after which the key
// (and the token) are both dead anyway.
func (c *Cache) DenyToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, denyKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("denylist token: %w", err)
	}
	return nil
}

// IsTokenDenied reports whether a jti has been logged out. A redis
// failure here is returned, not swallowed: failing open on an
// infrastructure error would let revoked tokens back in.
func (c *Cache) IsTokenDenied(ctx context.Context, jti string) (bool, error) {
	err := c.client.Get(ctx, denyKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check denylist: %w", err)
	}
	return true, nil
}

func statsKey(clinicID uuid.UUID) string {
	return "clinic:stats:" + clinicID.String()
}

// GetClinicStats returns cached stats for a clinic, or nil on miss.
// Any redis error is treated as a miss — stats are advisory.
func (c *Cache) GetClinicStats(ctx context.Context, clinicID uuid.UUID) *models.ClinicStats {
	raw, err := c.client.Get(ctx, statsKey(clinicID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("stats cache read failed", zap.Error(err))
		}
		return nil
	}

	var stats models.ClinicStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.Warn("stats cache corrupt, ignoring", zap.Error(err))
		return nil
	}
	return &stats
}

// SetClinicStats caches stats for a clinic. Short TTL: the dashboard
// polls, exact freshness doesn't matter.
func (c *Cache) SetClinicStats(ctx context.Context, clinicID uuid.UUID, stats *models.ClinicStats, ttl time.Duration) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey(clinicID), raw, ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", zap.Error(err))
	}
}
