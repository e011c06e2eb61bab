package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/observability"
)

type RedisOption func(*redis.Options)

func WithPoolSize(n int) RedisOption {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) RedisOption {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithWriteTimeout(d time.Duration) RedisOption {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

// RedisSink stores each artifact as a string key <prefix><dir>/<name> with
// a TTL. A zero TTL keeps keys forever.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSink(ctx context.Context, addr, prefix string, ttl time.Duration, opts ...RedisOption) (*RedisSink, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     8,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveSinkOp("redis", "ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSink{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (s *RedisSink) Name() string { return "redis" }

// Key builds the Redis key for an artifact.
func (s *RedisSink) Key(dir, name string) string {
	dir = strings.Trim(strings.TrimSpace(dir), "/")
	if dir == "" {
		return s.prefix + name
	}
	return s.prefix + dir + "/" + name
}

func (s *RedisSink) Write(ctx context.Context, dir, name string, data []byte, overwrite bool) (Artifact, error) {
	if name == "" {
		return Artifact{}, errors.New("redis sink: empty artifact name")
	}
	key := s.Key(dir, name)

	start := time.Now()
	var err error
	if overwrite {
		err = s.rdb.Set(ctx, key, data, s.ttl).Err()
	} else {
		var ok bool
		ok, err = s.rdb.SetNX(ctx, key, data, s.ttl).Result()
		if err == nil && !ok {
			err = fmt.Errorf("%w: %s", ErrExists, key)
		}
	}
	observability.ObserveSinkOp(s.Name(), "write", err, time.Since(start).Seconds())
	if errors.Is(err, ErrExists) {
		return Artifact{}, err
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("redis SET %q: %w", key, err)
	}
	return artifact(key, data), nil
}

func (s *RedisSink) Close() error {
	if err := s.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
