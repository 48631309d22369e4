package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/jt808-gateway/internal/tcpserver"
)

// AdmissionSource 提供连接准入统计
type AdmissionSource interface {
	Stats() tcpserver.AdmissionStats
}

// TCPChecker TCP接入健康检查器：按连接占用率降级
type TCPChecker struct {
	src AdmissionSource
}

// NewTCPChecker 创建TCP健康检查器
func NewTCPChecker(src AdmissionSource) *TCPChecker {
	return &TCPChecker{src: src}
}

func (c *TCPChecker) Name() string { return "tcp" }

// Check 执行健康检查
func (c *TCPChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	stats := c.src.Stats()

	details := map[string]interface{}{
		"active_connections": stats.ActiveConnections,
		"max_connections":    stats.MaxConnections,
		"rate_rejected":      stats.RateRejected,
		"limit_rejected":     stats.LimitRejected,
	}
	if stats.MaxConnections <= 0 {
		return CheckResult{Status: StatusHealthy, Message: "no limiting enabled", Details: details, Latency: time.Since(start)}
	}

	utilization := float64(stats.ActiveConnections) / float64(stats.MaxConnections)
	details["utilization"] = fmt.Sprintf("%.1f%%", utilization*100)

	status := StatusHealthy
	message := "ok"
	if utilization > 0.8 {
		status = StatusDegraded
		message = "high connection usage"
	}
	if utilization > 0.95 {
		status = StatusUnhealthy
		message = "connection limit near exhausted"
	}

	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
