package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warmline/warmline/config"
)

const presenceKeyPrefix = "warmline:presence:"

// Presence is the Redis-backed operator liveness store. An operator is
// online while their heartbeat key has not expired.
type Presence struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPresence connects to Redis and verifies the connection.
func NewPresence(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*Presence, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &Presence{rdb: rdb, ttl: ttl}, nil
}

// NewPresenceWithClient wraps an existing client; used by tests.
func NewPresenceWithClient(rdb *redis.Client, ttl time.Duration) *Presence {
	return &Presence{rdb: rdb, ttl: ttl}
}

// Beat refreshes the operator's liveness window.
func (p *Presence) Beat(ctx context.Context, operatorID string) error {
	return p.rdb.Set(ctx, presenceKeyPrefix+operatorID, time.Now().UTC().Format(time.RFC3339), p.ttl).Err()
}

// Online reports whether the operator's heartbeat is still live.
func (p *Presence) Online(ctx context.Context, operatorID string) (bool, error) {
	n, err := p.rdb.Exists(ctx, presenceKeyPrefix+operatorID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Drop removes the operator's liveness key immediately.
func (p *Presence) Drop(ctx context.Context, operatorID string) error {
	return p.rdb.Del(ctx, presenceKeyPrefix+operatorID).Err()
}

// Close releases the Redis connection.
func (p *Presence) Close() error {
	return p.rdb.Close()
}
