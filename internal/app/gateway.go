package app

import (
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/jt808-gateway/internal/config"
	"github.com/taoyao-code/jt808-gateway/internal/gateway"
	"github.com/taoyao-code/jt808-gateway/internal/metrics"
	"github.com/taoyao-code/jt808-gateway/internal/protocol/jt808"
	"github.com/taoyao-code/jt808-gateway/internal/session"
	redisstorage "github.com/taoyao-code/jt808-gateway/internal/storage/redis"
)

// NewCodec 按配置的协议版本创建编解码器
func NewCodec(cfg cfgpkg.JT808Config) (*jt808.Codec, error) {
	v, err := jt808.ParseVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("jt808.version: %w", err)
	}
	return jt808.NewCodec(jt808.WithVersion(v)), nil
}

// NewGateway 组装终端接入网关，queue 为 nil 时离线下行直接失败
func NewGateway(
	cfg cfgpkg.JT808Config,
	codec *jt808.Codec,
	sess session.SessionManager,
	queue *redisstorage.DownlinkQueue,
	appm *metrics.AppMetrics,
	logger *zap.Logger,
) *gateway.Gateway {
	opts := gateway.Options{
		Codec:             codec,
		Sessions:          sess,
		Metrics:           appm,
		Logger:            logger,
		FragmentSize:      cfg.FragmentSize,
		ReassemblyTimeout: cfg.ReassemblyTimeout,
		BreakerThreshold:  cfg.BreakerThreshold,
		BreakerTimeout:    cfg.BreakerTimeout,
		MaxRetry:          cfg.MaxRetry,
	}
	// 避免 nil 指针装箱成非 nil 接口
	if queue != nil {
		opts.Queue = queue
	}
	return gateway.New(opts)
}
