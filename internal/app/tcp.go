package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/jt808-gateway/internal/config"
	"github.com/taoyao-code/jt808-gateway/internal/metrics"
	"github.com/taoyao-code/jt808-gateway/internal/tcpserver"
)

// NewTCPServer 根据配置创建 TCP 服务器并挂接连接指标
func NewTCPServer(cfg cfgpkg.TCPConfig, appm *metrics.AppMetrics, logger *zap.Logger) *tcpserver.Server {
	srv := tcpserver.New(cfg, logger)
	if appm != nil {
		srv.SetMetricsCallbacks(
			func() { appm.TCPAccepted.Inc() },
			func(reason string) { appm.TCPRejected.WithLabelValues(reason).Inc() },
			func(n int) { appm.TCPBytesReceived.Add(float64(n)) },
		)
	}
	return srv
}
