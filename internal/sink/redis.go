package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSetter is the subset of a go-redis client the sink needs.
type RedisSetter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSink stores samples as plain string keys.
type RedisSink struct {
	client RedisSetter
	prefix string
	ttl    time.Duration
}

// NewRedisSink returns a sink writing to <prefix><key>. A zero ttl keeps
// samples forever.
func NewRedisSink(client RedisSetter, prefix string, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient dials a go-redis client for addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Key returns the redis key used for a sample key.
func (s *RedisSink) Key(key string) string {
	return s.prefix + key
}

// Write stores payload under the prefixed key.
func (s *RedisSink) Write(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, s.Key(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.Key(key), err)
	}
	return nil
}
