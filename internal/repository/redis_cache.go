package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jarvis4every1/subscription-backend/pkg/logger"
)

// CacheRepository определяет операции кэша.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ErrCacheMiss возвращается при отсутствии ключа в кэше.
var ErrCacheMiss = errors.New("cache miss")

// RedisCacheRepository реализует CacheRepository поверх Redis.
// Значения сериализуются в JSON.
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр кэша на Redis.
func NewRedisCacheRepository(client *redis.Client, log *logger.Logger) *RedisCacheRepository {
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}
}

func (r *RedisCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		r.log.Errorw("Failed to get value from Redis", "error", err, "key", key)
		return fmt.Errorf("cache: failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// Битое значение удаляем, чтобы не отдавать его повторно.
		_ = r.client.Del(ctx, key).Err()
		return fmt.Errorf("cache: failed to unmarshal key %s: %w", key, err)
	}

	return nil
}

func (r *RedisCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal key %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.log.Errorw("Failed to set value in Redis", "error", err, "key", key)
		return fmt.Errorf("cache: failed to set key %s: %w", key, err)
	}

	return nil
}

func (r *RedisCacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Errorw("Failed to delete value from Redis", "error", err, "key", key)
		return fmt.Errorf("cache: failed to delete key %s: %w", key, err)
	}
	return nil
}
