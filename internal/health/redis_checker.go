package health

import (
	"context"
	"fmt"
	"time"

	redisstorage "github.com/taoyao-code/jt808-gateway/internal/storage/redis"
)

// RedisChecker Redis健康检查器，附带离线下行死信数量
type RedisChecker struct {
	client *redisstorage.Client
	queue  *redisstorage.DownlinkQueue
}

// NewRedisChecker 创建Redis健康检查器，queue 可为 nil
func NewRedisChecker(client *redisstorage.Client, queue *redisstorage.DownlinkQueue) *RedisChecker {
	return &RedisChecker{client: client, queue: queue}
}

func (c *RedisChecker) Name() string { return "redis" }

// Check 执行健康检查
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	if err := c.client.HealthCheck(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
			Latency: time.Since(start),
		}
	}

	stats := c.client.Stats()
	utilization := 0.0
	if stats.TotalConns > 0 {
		utilization = float64(stats.TotalConns-stats.IdleConns) / float64(stats.TotalConns)
	}

	status := StatusHealthy
	message := "ok"
	if utilization > 0.9 {
		status = StatusDegraded
		message = "connection pool near limit"
	}

	details := map[string]interface{}{
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"utilization": fmt.Sprintf("%.1f%%", utilization*100),
	}
	if c.queue != nil {
		if n, err := c.queue.DeadCount(ctx); err == nil {
			details["downlink_dead"] = n
		}
	}

	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
