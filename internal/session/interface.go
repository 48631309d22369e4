package session

import "time"

// Info 终端会话快照
type Info struct {
	Phone       string    `json:"phone"`
	ConnID      string    `json:"conn_id,omitempty"`
	ServerID    string    `json:"server_id,omitempty"`
	BoundAt     time.Time `json:"bound_at,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
	LastTCPDown time.Time `json:"last_tcp_down,omitempty"`
}

// SessionManager 会话管理器接口，支持内存和Redis两种实现
// 终端以消息头中的终端手机号标识
type SessionManager interface {
	// OnHeartbeat 更新终端最近活跃时间（任意上行消息均可视为心跳）
	OnHeartbeat(phone string, t time.Time)

	// Bind 鉴权成功后绑定终端手机号到连接对象，重复绑定将覆盖
	Bind(phone string, conn interface{})

	// UnbindByPhone 解除绑定并删除会话
	UnbindByPhone(phone string)

	// OnTCPClosed 记录TCP断开事件
	OnTCPClosed(phone string, t time.Time)

	// GetConn 返回绑定的连接对象
	GetConn(phone string) (interface{}, bool)

	// Get 返回会话快照
	Get(phone string) (Info, bool)

	// IsOnline 判断终端是否在线（心跳未超时）
	IsOnline(phone string, now time.Time) bool

	// OnlineCount 返回当前在线终端数量
	OnlineCount(now time.Time) int
}
