package storage

import (
	"context"
	"errors"

	"tubeclone/internal/cache"

	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 50

// RedisStore keeps each client value under client:<id>:<key>.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an initialized Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	v, err := s.rdb.Get(ctx, cache.ClientKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	return s.rdb.Set(ctx, cache.ClientKey(namespace, key), value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	return s.rdb.Del(ctx, cache.ClientKey(namespace, key)).Err()
}

// Update runs fn under WATCH and commits with MULTI/EXEC, retrying when
// another writer touched the key in between.
func (s *RedisStore) Update(ctx context.Context, namespace, key string, fn UpdateFunc) error {
	redisKey := cache.ClientKey(namespace, key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, redisKey).Bytes()
		ok := true
		if errors.Is(err, redis.Nil) {
			current, ok = nil, false
		} else if err != nil {
			return err
		}

		next, err := fn(current, ok)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, redisKey)
				return nil
			}
			pipe.Set(ctx, redisKey, next, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, redisKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
