// Package redis 构建 IP 信誉缓存使用的 Redis 客户端
package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"postback-platform/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewClient 按缓存配置连接 Redis，并在返回前 Ping 一次。
// 未配置 host 时返回 nil，调用方按无缓存运行。
func NewClient(ctx context.Context, cfg config.Cache) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}
	port := cfg.Port
	if port == 0 {
		port = 6379
	}

	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}
	return client, nil
}
