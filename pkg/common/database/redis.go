package database

import (
	"context"
	"fmt"
	"time"

	"github.com/andes-k8s/api/pkg/common/config"
	"github.com/andes-k8s/api/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedis opens the connection backing the search index replica.
func NewRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Log.Info("Connected to Redis")
	return client, nil
}
