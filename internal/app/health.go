package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/jt808-gateway/internal/gateway"
	"github.com/taoyao-code/jt808-gateway/internal/health"
	"github.com/taoyao-code/jt808-gateway/internal/tcpserver"
)

// NewHealthAggregator 创建健康检查聚合器，初始包含终端接入检查
func NewHealthAggregator(gw *gateway.Gateway) *health.Aggregator {
	return health.NewAggregator(health.NewGatewayChecker(gw))
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}

// AddTCPChecker 添加TCP检查器到聚合器
func AddTCPChecker(aggregator *health.Aggregator, tcpServer *tcpserver.Server) {
	aggregator.AddChecker(health.NewTCPChecker(tcpServer.Admission()))
}
