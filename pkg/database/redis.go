// Package database 管理 MySQL 与 Redis 连接。
package database

import (
	"context"
	"docqa-go/internal/config"
	"docqa-go/pkg/log"
	"fmt"

	"github.com/go-redis/redis/v8"
)

var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接
func InitRedis(ctx context.Context, cfg config.RedisConfig) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	RDB = client
	log.Info("Redis client connected successfully")
	return nil
}
