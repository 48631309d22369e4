package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/jt808-gateway/internal/config"
	"github.com/taoyao-code/jt808-gateway/internal/health"
	redisstorage "github.com/taoyao-code/jt808-gateway/internal/storage/redis"
)

// NewRedisClient 创建Redis客户端，未启用时返回 nil, nil
func NewRedisClient(ctx context.Context, cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))
	return client, nil
}

// NewDownlinkQueue 创建离线下行队列，Redis 未启用时返回 nil
func NewDownlinkQueue(client *redisstorage.Client, ttl time.Duration) *redisstorage.DownlinkQueue {
	if client == nil {
		return nil
	}
	return redisstorage.NewDownlinkQueue(client, ttl)
}

// AddRedisChecker 添加Redis检查器到聚合器
func AddRedisChecker(aggregator *health.Aggregator, client *redisstorage.Client, queue *redisstorage.DownlinkQueue) {
	if client != nil {
		aggregator.AddChecker(health.NewRedisChecker(client, queue))
	}
}
