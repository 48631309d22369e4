package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/jt808-gateway/internal/config"
	"github.com/taoyao-code/jt808-gateway/internal/session"
	redisstorage "github.com/taoyao-code/jt808-gateway/internal/storage/redis"
)

// NewSessionManager 构造会话管理器
// 如果Redis客户端可用，则使用Redis会话管理器，否则使用内存会话管理器
func NewSessionManager(cfg cfgpkg.SessionConfig, redisClient *redisstorage.Client, serverID string, logger *zap.Logger) session.SessionManager {
	if redisClient != nil && redisClient.Client != nil {
		logger.Info("using redis session manager",
			zap.String("server_id", serverID),
			zap.Duration("timeout", cfg.HeartbeatTimeout))
		return session.NewRedisManager(redisClient.Client, serverID, cfg.HeartbeatTimeout)
	}

	logger.Info("using memory session manager", zap.Duration("timeout", cfg.HeartbeatTimeout))
	return session.New(cfg.HeartbeatTimeout)
}
