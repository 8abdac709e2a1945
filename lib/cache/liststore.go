package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisListStore exposes the handful of Redis list primitives the feed
// cache is built on. Prepend and trim are atomic on the server side, so
// concurrent fan-outs into the same recipient's key never lose updates.
type RedisListStore struct {
	rdb *redis.Client
}

func NewRedisListStore(rdb *redis.Client) *RedisListStore {
	return &RedisListStore{rdb: rdb}
}

func (ls *RedisListStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := ls.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (ls *RedisListStore) Range(ctx context.Context, key string) ([][]byte, error) {
	values, err := ls.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	data := make([][]byte, len(values))
	for i, value := range values {
		data[i] = []byte(value)
	}
	return data, nil
}

func (ls *RedisListStore) PushFront(ctx context.Context, key string, value []byte) error {
	return ls.rdb.LPush(ctx, key, value).Err()
}

// PushBackAll writes a whole list in stored order and sets its TTL in one
// pipeline round trip.
func (ls *RedisListStore) PushBackAll(ctx context.Context, key string, values [][]byte, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}

	args := make([]interface{}, len(values))
	for i, value := range values {
		args[i] = value
	}

	pipe := ls.rdb.TxPipeline()
	pipe.RPush(ctx, key, args...)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (ls *RedisListStore) Trim(ctx context.Context, key string, maxLength int) error {
	return ls.rdb.LTrim(ctx, key, 0, int64(maxLength)-1).Err()
}
