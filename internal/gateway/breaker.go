package gateway

import (
	"errors"
	"sync"
	"time"
)

// BreakerState 熔断器状态
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常放行
	BreakerOpen                         // 熔断，直接拒绝
	BreakerHalfOpen                     // 冷却结束，放行一个探测请求
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen 熔断期间拒绝调用
var ErrBreakerOpen = errors.New("gateway: circuit breaker open")

// Breaker 保护离线下行队列等外部依赖：连续失败达到阈值后熔断，冷却后单请求探测
type Breaker struct {
	mu        sync.Mutex
	state     BreakerState
	failures  int
	openedAt  time.Time
	probing   bool
	trips     int64
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	onChange  func(from, to BreakerState)
}

// NewBreaker 创建熔断器
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// OnStateChange 设置状态变化回调（同步调用，不持锁）
func (b *Breaker) OnStateChange(fn func(from, to BreakerState)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Do 在熔断器保护下执行 fn
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	var from, to BreakerState
	changed := false
	defer func() {
		cb := b.onChange
		b.mu.Unlock()
		if changed && cb != nil {
			cb(from, to)
		}
	}()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrBreakerOpen
		}
		from, to, changed = b.state, BreakerHalfOpen, true
		b.state = BreakerHalfOpen
		b.probing = true
		return nil
	default:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	from := b.state
	switch {
	case err == nil && b.state == BreakerHalfOpen:
		b.state = BreakerClosed
		b.failures = 0
	case err == nil:
		b.failures = 0
	case b.state == BreakerHalfOpen:
		b.trip()
	default:
		b.failures++
		if b.failures >= b.threshold {
			b.trip()
		}
	}
	b.probing = false
	to, cb := b.state, b.onChange
	b.mu.Unlock()

	if from != to && cb != nil {
		cb(from, to)
	}
}

func (b *Breaker) trip() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.failures = 0
	b.trips++
}

// State 当前状态
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Trips 累计熔断次数
func (b *Breaker) Trips() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}
