package overlay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "planner:"

// RedisStore 基于 Redis 的覆盖层持久化实现
// RedisStore persists the overlay record in Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 按连接串创建 Redis 后端并验证连通性
// NewRedisStore creates the Redis backend from a URL and verifies connectivity
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient 复用已有客户端创建后端（测试用）
// NewRedisStoreWithClient creates the backend from an existing client (tests)
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key() string {
	return redisKeyPrefix + RecordKey
}

func (s *RedisStore) Load() *Overlay {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	payload, err := s.client.Get(ctx, s.key()).Result()
	if err != nil {
		return New()
	}
	return Decode([]byte(payload))
}

func (s *RedisStore) Save(ov *Overlay) {
	stamp(ov)
	payload, err := Encode(ov)
	if err != nil {
		warn("encode", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	warn("write", s.client.Set(ctx, s.key(), payload, 0).Err())
}

// Close 关闭 Redis 连接 / Close the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
