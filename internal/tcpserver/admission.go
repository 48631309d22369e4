package tcpserver

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited 新建连接速率超限
	ErrRateLimited = errors.New("tcp: accept rate exceeded")
	// ErrTooManyConnections 并发连接数超限
	ErrTooManyConnections = errors.New("tcp: connection limit exceeded")
)

// Admission 入站连接准入：令牌桶限制建连速率，信号量限制并发连接数
type Admission struct {
	bucket  *rate.Limiter
	sem     chan struct{}
	timeout time.Duration

	active      atomic.Int64
	rateDropped atomic.Int64
	fullDropped atomic.Int64
}

// NewAdmission 创建准入控制
// maxConn: 最大并发连接数；acquireTimeout: 等待空闲名额的时间
// ratePerSec/burst: 每秒新建连接数与突发容量，ratePerSec<=0 时不限速
func NewAdmission(maxConn int, acquireTimeout time.Duration, ratePerSec, burst int) *Admission {
	if maxConn <= 0 {
		maxConn = 10000
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 3 * time.Second
	}
	a := &Admission{sem: make(chan struct{}, maxConn), timeout: acquireTimeout}
	if ratePerSec > 0 {
		if burst <= 0 {
			burst = ratePerSec * 2
		}
		a.bucket = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return a
}

// Admit 申请一个连接名额，成功时返回的 release 必须且只能调用一次
func (a *Admission) Admit(ctx context.Context) (release func(), err error) {
	if a.bucket != nil && !a.bucket.Allow() {
		a.rateDropped.Add(1)
		return nil, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		a.fullDropped.Add(1)
		return nil, ErrTooManyConnections
	}

	a.active.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			a.active.Add(-1)
			<-a.sem
		}
	}, nil
}

// Active 当前占用的连接名额
func (a *Admission) Active() int { return int(a.active.Load()) }

// Stats 准入统计
func (a *Admission) Stats() AdmissionStats {
	return AdmissionStats{
		MaxConnections:    cap(a.sem),
		ActiveConnections: a.Active(),
		RateRejected:      a.rateDropped.Load(),
		LimitRejected:     a.fullDropped.Load(),
	}
}

// AdmissionStats 准入统计信息
type AdmissionStats struct {
	MaxConnections    int   `json:"max_connections"`
	ActiveConnections int   `json:"active_connections"`
	RateRejected      int64 `json:"rate_rejected"`
	LimitRejected     int64 `json:"limit_rejected"`
}
