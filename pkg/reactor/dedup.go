package reactor

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient é o subconjunto do go-redis usado na deduplicação.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const dedupPrefix = "form-builder:stream:"

// RedisDeduper reivindica eventos com SET NX e expiração.
type RedisDeduper struct {
	client RedisClient
	ttl    time.Duration
}

func NewRedisDeduper(client RedisClient, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

// NewRedisClient cria o cliente a partir do endereço e senha configurados.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func (r *RedisDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	return r.client.SetNX(ctx, dedupPrefix+eventID, "1", r.ttl).Result()
}

func (r *RedisDeduper) Release(ctx context.Context, eventID string) error {
	return r.client.Del(ctx, dedupPrefix+eventID).Err()
}
