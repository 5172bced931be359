// Package cache is a thin Redis-backed cache used to memoize expensive
// upstream results, currently briefing summaries keyed by call.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warmline/warmline/config"
)

// ErrMiss reports a key that is absent or expired.
var ErrMiss = errors.New("cache miss")

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// Manager wraps a Redis client with JSON helpers and a closed guard.
type Manager struct {
	rdb        *redis.Client
	defaultTTL time.Duration
	ownsClient bool
	logger     *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig, defaultTTL time.Duration, logger *zap.Logger) (*Manager, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	m := NewWithClient(rdb, defaultTTL, logger)
	m.ownsClient = true
	return m, nil
}

// NewWithClient wraps an existing client. The caller keeps ownership of
// the connection; Close will not release it.
func NewWithClient(rdb *redis.Client, defaultTTL time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Manager{
		rdb:        rdb,
		defaultTTL: defaultTTL,
		logger:     logger.With(zap.String("component", "cache")),
	}
}

// Get returns the raw value for key, or ErrMiss.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", errors.New("cache is closed")
	}

	val, err := m.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("cache get: %w", err)
	}
	return val, nil
}

// Set stores value under key. A zero ttl uses the default.
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errors.New("cache is closed")
	}

	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	if err := m.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// GetJSON unmarshals the cached value into dest, or returns ErrMiss.
func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("unmarshal cached value: %w", err)
	}
	return nil
}

// SetJSON marshals value and stores it under key.
func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return m.Set(ctx, key, string(data), ttl)
}

// Delete removes keys. Missing keys are not an error.
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errors.New("cache is closed")
	}

	if len(keys) == 0 {
		return nil
	}
	if err := m.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errors.New("cache is closed")
	}
	return m.rdb.Ping(ctx).Err()
}

// Close marks the manager closed and releases the connection when this
// manager opened it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.ownsClient {
		return m.rdb.Close()
	}
	return nil
}
