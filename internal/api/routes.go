package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/jt808-gateway/internal/api/middleware"
)

// RegisterTerminalRoutes 注册终端查询与下行指令路由
func RegisterTerminalRoutes(r *gin.Engine, h *TerminalHandler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api := r.Group("/api")
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	api.GET("/terminals", h.OnlineCount)
	t := api.Group("/terminals/:phone")
	{
		t.GET("", h.GetTerminal)
		t.POST("/text", h.SendText)
		t.POST("/control", h.VehicleControl)
		t.GET("/params", h.QueryParams)
		t.PUT("/params", h.SetParams)
		t.GET("/location", h.QueryLocation)
		t.GET("/properties", h.QueryProperties)
	}
}
