package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisManager Redis版本的会话管理器，支持多实例部署
// 会话数据保存在 Redis，连接对象只在持有它的实例本地缓存
type RedisManager struct {
	client   *redis.Client
	serverID string        // 当前服务器实例ID
	timeout  time.Duration // 心跳超时时间
	opTO     time.Duration // 单次 Redis 操作超时

	mu        sync.RWMutex
	localConn map[string]interface{} // connID -> conn
}

var _ SessionManager = (*RedisManager)(nil)

// Redis Key设计
const (
	// jt808:session:terminal:{phone} -> Info JSON
	keyTerminalPrefix = "jt808:session:terminal:"

	// jt808:session:conn:{connID} -> phone
	keyConnPrefix = "jt808:session:conn:"

	// jt808:session:server:{serverID}:conns -> Set[connID]
	keyServerConnsPrefix = "jt808:session:server:"
)

// NewRedisManager 创建Redis会话管理器，serverID 为空时自动生成
func NewRedisManager(client *redis.Client, serverID string, timeout time.Duration) *RedisManager {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if serverID == "" {
		serverID = uuid.New().String()
	}
	return &RedisManager{
		client:    client,
		serverID:  serverID,
		timeout:   timeout,
		opTO:      2 * time.Second,
		localConn: make(map[string]interface{}),
	}
}

// ServerID 返回当前实例ID
func (m *RedisManager) ServerID() string { return m.serverID }

func (m *RedisManager) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.opTO)
}

// OnHeartbeat 更新终端最近活跃时间
func (m *RedisManager) OnHeartbeat(phone string, t time.Time) {
	ctx, cancel := m.ctx()
	defer cancel()

	data, err := m.getInfo(ctx, phone)
	if err != nil {
		data = &Info{Phone: phone}
	}
	data.LastSeen = t
	_ = m.setInfo(ctx, data)
}

// Bind 绑定终端到本实例的连接对象
func (m *RedisManager) Bind(phone string, conn interface{}) {
	ctx, cancel := m.ctx()
	defer cancel()

	// 同一终端重复绑定时先清理旧连接映射
	if old, err := m.getInfo(ctx, phone); err == nil && old.ConnID != "" {
		m.dropConn(ctx, old)
	}

	connID := uuid.New().String()
	m.mu.Lock()
	m.localConn[connID] = conn
	m.mu.Unlock()

	now := time.Now()
	data := &Info{
		Phone:    phone,
		ConnID:   connID,
		ServerID: m.serverID,
		BoundAt:  now,
		LastSeen: now,
	}
	_ = m.setInfo(ctx, data)

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, keyConnPrefix+connID, phone, m.timeout*2)
	pipe.SAdd(ctx, m.serverConnsKey(), connID)
	_, _ = pipe.Exec(ctx)
}

// UnbindByPhone 解除终端绑定
func (m *RedisManager) UnbindByPhone(phone string) {
	ctx, cancel := m.ctx()
	defer cancel()

	data, err := m.getInfo(ctx, phone)
	if err != nil {
		return
	}
	if data.ConnID != "" {
		m.dropConn(ctx, data)
	}
	m.client.Del(ctx, keyTerminalPrefix+phone)
}

func (m *RedisManager) dropConn(ctx context.Context, data *Info) {
	if data.ServerID == m.serverID {
		m.mu.Lock()
		delete(m.localConn, data.ConnID)
		m.mu.Unlock()
	}
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, keyConnPrefix+data.ConnID)
	pipe.SRem(ctx, keyServerConnsPrefix+data.ServerID+":conns", data.ConnID)
	_, _ = pipe.Exec(ctx)
}

// OnTCPClosed 记录TCP断开事件
func (m *RedisManager) OnTCPClosed(phone string, t time.Time) {
	ctx, cancel := m.ctx()
	defer cancel()

	data, err := m.getInfo(ctx, phone)
	if err != nil {
		return
	}
	data.LastTCPDown = t
	_ = m.setInfo(ctx, data)
}

// GetConn 获取绑定的连接对象（仅限本实例持有的连接）
func (m *RedisManager) GetConn(phone string) (interface{}, bool) {
	ctx, cancel := m.ctx()
	defer cancel()

	data, err := m.getInfo(ctx, phone)
	if err != nil || data.ServerID != m.serverID {
		return nil, false
	}

	m.mu.RLock()
	conn, ok := m.localConn[data.ConnID]
	m.mu.RUnlock()
	return conn, ok
}

// Get 返回会话快照
func (m *RedisManager) Get(phone string) (Info, bool) {
	ctx, cancel := m.ctx()
	defer cancel()

	data, err := m.getInfo(ctx, phone)
	if err != nil {
		return Info{}, false
	}
	return *data, true
}

// IsOnline 判断终端是否在线
func (m *RedisManager) IsOnline(phone string, now time.Time) bool {
	ctx, cancel := m.ctx()
	defer cancel()

	data, err := m.getInfo(ctx, phone)
	if err != nil {
		return false
	}
	return now.Sub(data.LastSeen) <= m.timeout
}

// OnlineCount 扫描全部终端会话，返回在线数量
func (m *RedisManager) OnlineCount(now time.Time) int {
	ctx := context.Background()

	var cursor uint64
	count := 0
	for {
		keys, next, err := m.client.Scan(ctx, cursor, keyTerminalPrefix+"*", 100).Result()
		if err != nil {
			break
		}
		for _, key := range keys {
			data, err := m.getInfo(ctx, key[len(keyTerminalPrefix):])
			if err == nil && now.Sub(data.LastSeen) <= m.timeout {
				count++
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count
}

// --- 辅助方法 ---

func (m *RedisManager) getInfo(ctx context.Context, phone string) (*Info, error) {
	val, err := m.client.Get(ctx, keyTerminalPrefix+phone).Bytes()
	if err != nil {
		return nil, err
	}
	var data Info
	if err := json.Unmarshal(val, &data); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", phone, err)
	}
	return &data, nil
}

func (m *RedisManager) setInfo(ctx context.Context, data *Info) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	// 过期时间为心跳超时的2倍
	return m.client.Set(ctx, keyTerminalPrefix+data.Phone, b, m.timeout*2).Err()
}

func (m *RedisManager) serverConnsKey() string {
	return keyServerConnsPrefix + m.serverID + ":conns"
}

// Cleanup 清理本实例的所有会话数据（用于优雅关闭）
func (m *RedisManager) Cleanup() error {
	ctx := context.Background()

	connIDs, err := m.client.SMembers(ctx, m.serverConnsKey()).Result()
	if err != nil {
		return err
	}
	for _, connID := range connIDs {
		phone, err := m.client.Get(ctx, keyConnPrefix+connID).Result()
		if err != nil {
			continue
		}
		m.UnbindByPhone(phone)
	}
	return m.client.Del(ctx, m.serverConnsKey()).Err()
}
