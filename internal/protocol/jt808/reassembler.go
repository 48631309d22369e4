package jt808

import (
	"fmt"
	"sync"
	"time"
)

// Key 分包组标识：同一终端、同一消息ID
type Key struct {
	Terminal  string
	MessageID uint16
}

func (k Key) String() string { return fmt.Sprintf("%s/0x%04X", k.Terminal, k.MessageID) }

// Status 分包处理结果
type Status uint8

const (
	StatusPending   Status = iota // 尚未收齐
	StatusCompleted               // 收齐并已拼接
)

func (s Status) String() string {
	if s == StatusCompleted {
		return "completed"
	}
	return "pending"
}

// Outcome Ingest 返回值：收齐时 Body 为按序号拼接的完整消息体
type Outcome struct {
	Status   Status
	Body     []byte
	Received int
	Total    uint16
}

type entry struct {
	total   uint16
	parts   map[uint16][]byte
	size    int
	updated time.Time
}

// Reassembler 分包重组器，可并发使用
type Reassembler struct {
	mu      sync.Mutex
	entries map[Key]*entry
	now     func() time.Time
}

// ReassemblerOption 重组器选项
type ReassemblerOption func(*Reassembler)

// WithClock 注入时钟（测试用）
func WithClock(now func() time.Time) ReassemblerOption {
	return func(r *Reassembler) { r.now = now }
}

func NewReassembler(opts ...ReassemblerOption) *Reassembler {
	r := &Reassembler{entries: make(map[Key]*entry), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Ingest 接收一个分包。分包可乱序到达，重复序号以后到者为准；
// 同组内总包数不一致时丢弃整组并返回 ErrInconsistentSubpackageCount
func (r *Reassembler) Ingest(terminal string, msgID uint16, info PackageInfo, body []byte) (Outcome, error) {
	if err := info.Validate(); err != nil {
		return Outcome{}, err
	}
	key := Key{Terminal: terminal, MessageID: msgID}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[key]
	if e == nil {
		e = &entry{total: info.Total, parts: make(map[uint16][]byte, info.Total)}
		r.entries[key] = e
	} else if e.total != info.Total {
		delete(r.entries, key)
		return Outcome{}, fmt.Errorf("%w: %s expected %d, got %d", ErrInconsistentSubpackageCount, key, e.total, info.Total)
	}

	if old, ok := e.parts[info.Sequence]; ok {
		e.size -= len(old)
	}
	part := make([]byte, len(body))
	copy(part, body)
	e.parts[info.Sequence] = part
	e.size += len(part)
	e.updated = now

	if len(e.parts) < int(e.total) {
		return Outcome{Status: StatusPending, Received: len(e.parts), Total: e.total}, nil
	}

	out := make([]byte, 0, e.size)
	for seq := 1; seq <= int(e.total); seq++ {
		out = append(out, e.parts[uint16(seq)]...)
	}
	delete(r.entries, key)
	return Outcome{Status: StatusCompleted, Body: out, Received: int(e.total), Total: e.total}, nil
}

// Evict 丢弃最后更新时间早于 olderThan 的分包组，返回被丢弃的组
func (r *Reassembler) Evict(olderThan time.Time) []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Key
	for k, e := range r.entries {
		if e.updated.Before(olderThan) {
			delete(r.entries, k)
			out = append(out, k)
		}
	}
	return out
}

// Pending 未完成的分包组数量
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Missing 指定分包组尚缺的包序号（升序），用于补传分包请求
func (r *Reassembler) Missing(terminal string, msgID uint16) []uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[Key{Terminal: terminal, MessageID: msgID}]
	if e == nil {
		return nil
	}
	return e.missing()
}

// Stale 最后更新时间早于 olderThan 的分包组及其缺失序号，不做删除
func (r *Reassembler) Stale(olderThan time.Time) map[Key][]uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Key][]uint16)
	for k, e := range r.entries {
		if !e.updated.Before(olderThan) {
			continue
		}
		out[k] = e.missing()
	}
	return out
}

func (e *entry) missing() []uint16 {
	var out []uint16
	for seq := 1; seq <= int(e.total); seq++ {
		if _, ok := e.parts[uint16(seq)]; !ok {
			out = append(out, uint16(seq))
		}
	}
	return out
}
