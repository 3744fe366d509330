package storage

import (
	"context"

	"github.com/wechatferry/ferry/internal/errors"

	"github.com/redis/go-redis/v9"
)

// RedisOptions redis 存储配置
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix 实例级前缀,隔离同一 redis 上的多个 ferry
	KeyPrefix string
}

// Redis 基于 redis 的存储,多实例共享缓存时使用
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis 创建 redis 存储并做一次连通性检查
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Storage("redis ping failed", err)
	}
	return &Redis{client: client, prefix: opts.KeyPrefix}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Storage("redis get failed", err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return errors.Storage("redis set failed", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return errors.Storage("redis del failed", err)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		// 去掉实例级前缀,对外只暴露逻辑 key
		keys = append(keys, iter.Val()[len(r.prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Storage("redis scan failed", err)
	}
	return keys, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
