package adminauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis-backed stores for multi-instance deployments. The in-memory stores
// lose keys, attempt counters and lockouts on restart and cannot be shared
// across replicas; these implementations keep the same semantics while
// letting Redis TTLs bound memory instead of a sweeper goroutine.

const (
	redisKeyPrefix  = "adminauth:key:"
	redisRatePrefix = "adminauth:rl:"

	// Kept well past KeyTTL so a stale key still hits the explicit expiry
	// branch (and its distinct error) before Redis drops the record.
	redisKeyRetention = 15 * time.Minute
)

// RedisConfig carries the connection settings for the Redis-backed stores.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// NewRedisStores connects to Redis and returns a KeyStore and RateLimiter
// backed by it.
func NewRedisStores(cfg RedisConfig) (*RedisKeyStore, *RedisRateLimiter, error) {
	if cfg.Addr == "" {
		return nil, nil, errors.New("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisKeyStore{client: client, now: time.Now},
		&RedisRateLimiter{client: client, now: time.Now},
		nil
}

// RedisKeyStore persists access keys as JSON values with a TTL.
type RedisKeyStore struct {
	client *redis.Client
	now    func() time.Time
}

func (s *RedisKeyStore) Set(ctx context.Context, email string, key AccessKey) error {
	data, err := json.Marshal(key)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+email, data, redisKeyRetention).Err()
}

func (s *RedisKeyStore) Get(ctx context.Context, email string) (AccessKey, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return AccessKey{}, false, nil
	}
	if err != nil {
		return AccessKey{}, false, err
	}
	var key AccessKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return AccessKey{}, false, err
	}
	return key, true, nil
}

func (s *RedisKeyStore) Delete(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Del(ctx, redisKeyPrefix+email).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the underlying client.
func (s *RedisKeyStore) Close() error { return s.client.Close() }

// RedisRateLimiter keeps one JSON record per fingerprint. Records are
// re-written with a LockoutDuration TTL on every failure, so idle
// fingerprints age out without a sweeper.
type RedisRateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func (l *RedisRateLimiter) Check(ctx context.Context, fingerprint string) (Status, error) {
	entry, ok, err := l.get(ctx, fingerprint)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{Allowed: true}, nil
	}
	now := l.now()

	if entry.IsBlocked && now.After(entry.BlockUntil) {
		if err := l.Clear(ctx, fingerprint); err != nil {
			return Status{}, err
		}
		return Status{Allowed: true}, nil
	}
	if !entry.IsBlocked && entry.Attempts >= LockoutThreshold {
		entry.IsBlocked = true
		entry.BlockUntil = now.Add(LockoutDuration)
		if err := l.put(ctx, fingerprint, entry); err != nil {
			return Status{}, err
		}
	}
	return entry.verdict(now), nil
}

func (l *RedisRateLimiter) Peek(ctx context.Context, fingerprint string) (Status, error) {
	entry, ok, err := l.get(ctx, fingerprint)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{Allowed: true}, nil
	}
	return entry.verdict(l.now()), nil
}

func (l *RedisRateLimiter) RecordFailure(ctx context.Context, fingerprint string) error {
	entry, ok, err := l.get(ctx, fingerprint)
	if err != nil {
		return err
	}
	if !ok {
		entry = rateLimitEntry{}
	}
	entry.Attempts++
	entry.LastAttempt = l.now()
	return l.put(ctx, fingerprint, entry)
}

func (l *RedisRateLimiter) Clear(ctx context.Context, fingerprint string) error {
	return l.client.Del(ctx, redisRatePrefix+fingerprint).Err()
}

// Close releases the underlying client.
func (l *RedisRateLimiter) Close() error { return l.client.Close() }

func (l *RedisRateLimiter) get(ctx context.Context, fingerprint string) (rateLimitEntry, bool, error) {
	raw, err := l.client.Get(ctx, redisRatePrefix+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return rateLimitEntry{}, false, nil
	}
	if err != nil {
		return rateLimitEntry{}, false, err
	}
	var entry rateLimitEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return rateLimitEntry{}, false, err
	}
	return entry, true, nil
}

func (l *RedisRateLimiter) put(ctx context.Context, fingerprint string, entry rateLimitEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, redisRatePrefix+fingerprint, data, LockoutDuration).Err()
}
