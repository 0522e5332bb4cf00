package debounce

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// CachedResolver keeps resolved debounce values in redis. Redis failures are
// logged and the lookup falls through to the wrapped resolver.
type CachedResolver struct {
	next    incident.DebounceResolver
	client  *redis.Client
	logger  *zap.Logger
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewCachedResolver wraps next with a redis cache.
func NewCachedResolver(next incident.DebounceResolver, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{
		next:    next,
		client:  client,
		logger:  logger,
		prefix:  "rsm:incident:debounce:",
		ttl:     ttl,
		timeout: 250 * time.Millisecond,
	}
}

// NewRedisClient connects and pings a redis server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Resolve returns the cached value when present, otherwise resolves and stores it.
// Errors from the wrapped resolver are never cached.
func (c *CachedResolver) Resolve(ctx context.Context, checkType string) (incident.DebounceConfig, error) {
	key := c.prefix + normalizeCheck(checkType)

	if cfg, ok := c.get(ctx, key); ok {
		return cfg, nil
	}

	cfg, err := c.next.Resolve(ctx, checkType)
	if err != nil {
		return incident.DebounceConfig{}, err
	}
	c.set(ctx, key, cfg)
	return cfg, nil
}

// Invalidate drops the cached value of a check type.
func (c *CachedResolver) Invalidate(ctx context.Context, checkType string) error {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Del(opCtx, c.prefix+normalizeCheck(checkType)).Err()
}

func (c *CachedResolver) get(ctx context.Context, key string) (incident.DebounceConfig, bool) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Get(opCtx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logRedisError("get", err)
		}
		return incident.DebounceConfig{}, false
	}
	var cfg incident.DebounceConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		c.logger.Warn("discarding malformed cached debounce", zap.String("key", key), zap.Error(err))
		return incident.DebounceConfig{}, false
	}
	return cfg, true
}

func (c *CachedResolver) set(ctx context.Context, key string, cfg incident.DebounceConfig) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Set(opCtx, key, raw, c.ttl).Err(); err != nil {
		c.logRedisError("set", err)
	}
}

func (c *CachedResolver) logRedisError(op string, err error) {
	c.logger.Warn("redis debounce cache error", zap.String("op", op), zap.Error(err))
}
