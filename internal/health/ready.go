package health

import "sync/atomic"

// Readiness 启动阶段就绪标记：TCP 监听成功且（启用时）Redis 可用
type Readiness struct {
	redisReady atomic.Bool
	tcpReady   atomic.Bool
}

// NewReadiness 创建就绪标记，redisRequired 为 false 时视 Redis 为就绪
func NewReadiness(redisRequired bool) *Readiness {
	r := &Readiness{}
	r.redisReady.Store(!redisRequired)
	return r
}

func (r *Readiness) SetRedisReady(v bool) { r.redisReady.Store(v) }
func (r *Readiness) SetTCPReady(v bool)   { r.tcpReady.Store(v) }

// Ready 总体就绪：各子系统均为 true
func (r *Readiness) Ready() bool {
	return r.redisReady.Load() && r.tcpReady.Load()
}
