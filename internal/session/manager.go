package session

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type localSession struct {
	info Info
	conn interface{}
}

// Manager 单实例内存会话管理
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*localSession
	timeout  time.Duration
	nextConn atomic.Uint64
}

var _ SessionManager = (*Manager)(nil)

func New(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Manager{sessions: make(map[string]*localSession), timeout: timeout}
}

func (m *Manager) getOrCreate(phone string) *localSession {
	s, ok := m.sessions[phone]
	if !ok {
		s = &localSession{info: Info{Phone: phone}}
		m.sessions[phone] = s
	}
	return s
}

// OnHeartbeat 更新终端最近活跃时间
func (m *Manager) OnHeartbeat(phone string, t time.Time) {
	m.mu.Lock()
	m.getOrCreate(phone).info.LastSeen = t
	m.mu.Unlock()
}

// Bind 绑定终端到连接对象（opaque）
func (m *Manager) Bind(phone string, conn interface{}) {
	now := time.Now()
	m.mu.Lock()
	s := m.getOrCreate(phone)
	s.conn = conn
	s.info.ConnID = strconv.FormatUint(m.nextConn.Add(1), 10)
	s.info.BoundAt = now
	if s.info.LastSeen.Before(now) {
		s.info.LastSeen = now
	}
	m.mu.Unlock()
}

// UnbindByPhone 解除绑定
func (m *Manager) UnbindByPhone(phone string) {
	m.mu.Lock()
	delete(m.sessions, phone)
	m.mu.Unlock()
}

// OnTCPClosed 记录TCP断开事件
func (m *Manager) OnTCPClosed(phone string, t time.Time) {
	m.mu.Lock()
	if s, ok := m.sessions[phone]; ok {
		s.info.LastTCPDown = t
	}
	m.mu.Unlock()
}

// GetConn 返回绑定的连接对象
func (m *Manager) GetConn(phone string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[phone]
	if !ok || s.conn == nil {
		return nil, false
	}
	return s.conn, true
}

// Get 返回会话快照
func (m *Manager) Get(phone string) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[phone]
	if !ok {
		return Info{}, false
	}
	return s.info, true
}

// IsOnline 判断终端是否在线
func (m *Manager) IsOnline(phone string, now time.Time) bool {
	m.mu.RLock()
	s, ok := m.sessions[phone]
	var ts time.Time
	if ok {
		ts = s.info.LastSeen
	}
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return now.Sub(ts) <= m.timeout
}

// OnlineCount 返回当前在线终端数量
func (m *Manager) OnlineCount(now time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if now.Sub(s.info.LastSeen) <= m.timeout {
			count++
		}
	}
	return count
}
