package storage

import (
	"context"

	"github.com/genbit2025/durable-objects-test-v2/connector"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"github.com/redis/go-redis/v9"
)

type redisBackend struct {
	client *redis.Client
}

// NewRedis 基于 Redis 的后端，PutIfAbsent 使用 SETNX
func NewRedis(conn connector.RedisConnector) (Backend, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrConnectorNil, "redis")
	}
	return &redisBackend{client: conn.GetClient()}, nil
}

func (r *redisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	data, err := r.client.Get(ctx, key).Bytes()
	if xerrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, xerrors.Wrapf(err, "storage: redis get %q", key)
	}
	return data, true, nil
}

func (r *redisBackend) Put(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return xerrors.Wrapf(err, "storage: redis set %q", key)
	}
	return nil
}

func (r *redisBackend) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	ok, err := r.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, xerrors.Wrapf(err, "storage: redis setnx %q", key)
	}
	return ok, nil
}

func (r *redisBackend) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return xerrors.Wrapf(err, "storage: redis del %q", key)
	}
	return nil
}

func (r *redisBackend) Close() error {
	return nil
}
