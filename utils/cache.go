package utils

import (
	"context"
	"log"
	"time"

	"folio/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient carries section change events between API instances.
	CacheClient *redis.Client
	// SessionClient holds the per-user "served live data" marks.
	SessionClient *redis.Client
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
		log.Fatalf("Failed to connect to Redis (%s): %v", name, err)
	}
	return client
}

// InitRedis connects the cache and session clients.
func InitRedis() {
	CacheClient = newRedisClient(config.AppConfig.RedisCacheDB, "Cache")
	SessionClient = newRedisClient(config.AppConfig.RedisSessionDB, "Session")
}

// GetCacheClient returns the pub/sub client for section changes.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		CacheClient = newRedisClient(config.AppConfig.RedisCacheDB, "Cache")
	}
	return CacheClient
}

// GetSessionClient returns the Redis client for live-session marks.
func GetSessionClient() *redis.Client {
	if SessionClient == nil {
		SessionClient = newRedisClient(config.AppConfig.RedisSessionDB, "Session")
	}
	return SessionClient
}

// RedisClients lists the initialized clients for health checks.
func RedisClients() []*redis.Client {
	var clients []*redis.Client
	for _, c := range []*redis.Client{CacheClient, SessionClient} {
		if c != nil {
			clients = append(clients, c)
		}
	}
	return clients
}
