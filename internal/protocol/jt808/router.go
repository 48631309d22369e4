package jt808

import "sync"

// Handler 消息处理函数
type Handler func(*Decoded) error

// Table 消息ID -> 处理函数
type Table struct {
	mu       sync.RWMutex
	m        map[uint16]Handler
	fallback Handler
}

func NewTable() *Table { return &Table{m: make(map[uint16]Handler)} }

func (t *Table) Register(id uint16, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[id] = h
}

// SetFallback 未注册消息ID的处理函数
func (t *Table) SetFallback(h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallback = h
}

func (t *Table) Route(d *Decoded) error {
	t.mu.RLock()
	h := t.m[d.Header.MessageID]
	if h == nil {
		h = t.fallback
	}
	t.mu.RUnlock()
	if h == nil {
		return nil
	}
	return h(d)
}
