// File: utils/cache.go
package utils

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"govbook/config"
)

var (
	// CacheClient is the generic cache client.
	CacheClient *redis.Client
	// QueueClient shares the database asynq uses; it is only pinged for health.
	QueueClient *redis.Client
)

func newRedisClient(db int, name string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		GetLogger().Fatal("Failed to connect to Redis", zap.String("client", name), zap.Error(err))
	}
	return client
}

// InitCache initializes the generic Redis cache client.
func InitCache() {
	CacheClient = newRedisClient(config.AppConfig.RedisCacheDB, "cache")
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitQueueClient initializes the Redis client pointing at the task queue database.
func InitQueueClient() {
	QueueClient = newRedisClient(config.AppConfig.RedisQueueDB, "queue")
}

// GetQueueClient returns the task queue Redis client.
func GetQueueClient() *redis.Client {
	if QueueClient == nil {
		InitQueueClient()
	}
	return QueueClient
}

// CloseRedis closes every initialized client.
func CloseRedis() {
	for _, c := range []*redis.Client{CacheClient, QueueClient} {
		if c != nil {
			_ = c.Close()
		}
	}
}
