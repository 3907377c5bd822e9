package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by CacheClient.Get for an absent key.
var ErrCacheMiss = errors.New("cache miss")

// compareAndSwapScript replaces KEYS[1] with ARGV[2] only while it still
// holds ARGV[1], refreshing the expiry to ARGV[3] milliseconds.
var compareAndSwapScript = redis.NewScript(`
	local current = redis.call("GET", KEYS[1])
	if current == false or tonumber(current) ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
`)

// setIfCounterScript stores ARGV[2] under KEYS[2] for ARGV[3] milliseconds
// only while the counter at KEYS[1], absent meaning 0, equals ARGV[1].
var setIfCounterScript = redis.NewScript(`
	local current = tonumber(redis.call("GET", KEYS[1]) or "0")
	if current ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
	return 1
`)

// CacheClient is a thin KeyDB/Redis client used for the post read cache.
type CacheClient struct {
	client        *redis.Client
	logger        logger.Logger
	defaultExpiry time.Duration
}

func NewCacheClient(cfg config.Cache, log logger.Logger) *CacheClient {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           int(cfg.DB),
		PoolSize:     int(cfg.PoolSize),
		MinIdleConns: int(cfg.MinIdleConns),
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		MaxRetries:   int(cfg.MaxRetries),
	})

	return &CacheClient{
		client:        client,
		logger:        log.Component("cache"),
		defaultExpiry: cfg.DefaultExpiry,
	}
}

func (c *CacheClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *CacheClient) Close() error {
	return c.client.Close()
}

func (c *CacheClient) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	result, err := c.client.Get(ctx, key).Bytes()

	c.logger.Debug().
		Str("key", key).
		Dur("took", time.Since(start)).
		Bool("hit", err == nil).
		Msg("cache get")

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}

		return nil, fmt.Errorf("getting key %s: %w", key, err)
	}

	return result, nil
}

// Set stores value under key; a zero ttl falls back to the configured default.
func (c *CacheClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultExpiry
	}

	start := time.Now()

	err := c.client.Set(ctx, key, value, ttl).Err()

	c.logger.Debug().
		Str("key", key).
		Str("expiry", ttl.String()).
		Dur("took", time.Since(start)).
		Bool("success", err == nil).
		Msg("cache set")

	if err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}

	return nil
}

// SetNX stores value only when key is absent and reports whether it did.
func (c *CacheClient) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setting key %s: %w", key, err)
	}

	return ok, nil
}

func (c *CacheClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting keys: %w", err)
	}

	return nil
}

// IsHealthy checks if the cache answers within a short deadline.
func (c *CacheClient) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return c.Ping(ctx) == nil
}

// GetInt64 returns the integer under key, or -1 when the key is absent,
// together with the time of the read.
func (c *CacheClient) GetInt64(ctx context.Context, key string) (int64, time.Time, error) {
	value, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, time.Now(), nil
		}

		return 0, time.Time{}, fmt.Errorf("getting key %s: %w", key, err)
	}

	return value, time.Now(), nil
}

func (c *CacheClient) SetInt64NX(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, key, []byte(strconv.FormatInt(value, 10)), ttl)
}

// CompareAndSwapInt64 atomically replaces old with new under key.
func (c *CacheClient) CompareAndSwapInt64(ctx context.Context, key string, old, new int64, ttl time.Duration) (bool, error) {
	result, err := compareAndSwapScript.Run(ctx, c.client, []string{key}, old, new, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("swapping key %s: %w", key, err)
	}

	return result == 1, nil
}

// Incr advances the counter under key and refreshes its expiry.
func (c *CacheClient) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing key %s: %w", key, err)
	}

	return incr.Val(), nil
}

// SetIfCounter stores value under key only while the counter under
// counterKey still holds expected. It reports whether the value was stored.
func (c *CacheClient) SetIfCounter(
	ctx context.Context,
	counterKey string,
	expected int64,
	key string,
	value []byte,
	ttl time.Duration,
) (bool, error) {
	if ttl == 0 {
		ttl = c.defaultExpiry
	}

	result, err := setIfCounterScript.Run(ctx, c.client, []string{counterKey, key}, expected, value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("setting key %s: %w", key, err)
	}

	return result == 1, nil
}
