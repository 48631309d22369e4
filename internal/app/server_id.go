package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateServerID 生成服务器实例ID
// 优先使用配置值，其次环境变量SERVER_ID，否则生成 jt808-gateway-{hostname}-{uuid前8位}
func GenerateServerID(configured string) string {
	if configured != "" {
		return configured
	}
	if serverID := os.Getenv("SERVER_ID"); serverID != "" {
		return serverID
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("jt808-gateway-%s-%s", hostname, uuid.New().String()[:8])
}
