package health

import (
	"context"
	"time"

	"github.com/taoyao-code/jt808-gateway/internal/gateway"
)

// GatewayChecker 终端接入检查：离线队列熔断状态与未完成分包组
type GatewayChecker struct {
	gw *gateway.Gateway
}

// NewGatewayChecker 创建网关检查器
func NewGatewayChecker(gw *gateway.Gateway) *GatewayChecker {
	return &GatewayChecker{gw: gw}
}

func (c *GatewayChecker) Name() string { return "jt808" }

// Check 熔断打开时降级（离线指令无法入队，在线下行不受影响）
func (c *GatewayChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	state := c.gw.Breaker().State()

	status := StatusHealthy
	message := "ok"
	if state != gateway.BreakerClosed {
		status = StatusDegraded
		message = "downlink queue breaker " + state.String()
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"breaker_state":      state.String(),
			"breaker_trips":      c.gw.Breaker().Trips(),
			"reassembly_pending": c.gw.Codec().Reassembler().Pending(),
		},
		Latency: time.Since(start),
	}
}
