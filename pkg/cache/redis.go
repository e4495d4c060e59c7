package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix 다른 서비스 키와 충돌 방지
const DefaultRedisKeyPrefix = "branchcache:"

// RedisBackend shared backend for multi-instance deployments
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a redis backend; prefix "" uses DefaultRedisKeyPrefix
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) Name() string { return "redis" }

// Get 캐시에서 값 조회
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis not available")
	}
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return data, err
}

// Set 캐시에 값 저장
func (r *RedisBackend) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if r.client == nil {
		return nil // Redis 없으면 무시
	}
	return r.client.Set(ctx, r.prefix+key, data, ttl).Err()
}

// Delete 캐시 삭제
func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if r.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	return r.client.Del(ctx, full...).Err()
}

// Keys SCAN 으로 접두사 일치 키 조회 (KEYS 명령 사용 금지)
func (r *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	if r.client == nil {
		return nil, nil
	}
	var out []string
	iter := r.client.Scan(ctx, 0, r.prefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	return out, iter.Err()
}

// Flush 이 백엔드 접두사의 키만 삭제
func (r *RedisBackend) Flush(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.deleteByPattern(ctx, r.prefix+"*")
}

func (r *RedisBackend) deleteByPattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
