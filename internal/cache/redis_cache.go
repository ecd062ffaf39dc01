package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch 按前缀清理时每次SCAN的数量
const scanBatch = 200

// RedisCache 基于Redis实现的缓存
// 所有键都带有KeyPrefix，和任务队列共用一个Redis时不会互相影响
type RedisCache struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

// NewRedisCache 创建一个新的Redis缓存
func NewRedisCache(config Config) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: config.KeyPrefix,
		ctx:    ctx,
	}, nil
}

// Get 获取缓存内容
func (r *RedisCache) Get(key string) (string, bool, error) {
	value, err := r.client.Get(r.ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set 设置缓存内容，ttl为0表示不过期
func (r *RedisCache) Set(key string, value string, ttl time.Duration) error {
	return r.client.Set(r.ctx, r.prefix+key, value, ttl).Err()
}

// Delete 删除缓存项
func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, r.prefix+key).Err()
}

// DeletePrefix 删除所有以prefix开头的缓存项
func (r *RedisCache) DeletePrefix(prefix string) error {
	return r.deleteMatching(r.prefix + prefix + "*")
}

// Clear 清空当前前缀下的所有缓存
func (r *RedisCache) Clear() error {
	return r.deleteMatching(r.prefix + "*")
}

func (r *RedisCache) deleteMatching(pattern string) error {
	iter := r.client.Scan(r.ctx, 0, pattern, scanBatch).Iterator()
	var keys []string
	for iter.Next(r.ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(r.ctx, keys...).Err()
}

func init() {
	RegisterCache("redis", NewRedisCache)
}
