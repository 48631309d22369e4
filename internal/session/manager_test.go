package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_OnHeartbeat_IsOnline(t *testing.T) {
	m := New(2 * time.Second)
	now := time.Now()
	assert.False(t, m.IsOnline("013812345678", now), "expected offline initially")

	m.OnHeartbeat("013812345678", now)
	assert.True(t, m.IsOnline("013812345678", now))
	assert.False(t, m.IsOnline("013800000000", now), "other terminal should be offline")
}

func TestManager_Timeout(t *testing.T) {
	m := New(500 * time.Millisecond)
	ts := time.Now()
	m.OnHeartbeat("X", ts)
	assert.True(t, m.IsOnline("X", ts.Add(400*time.Millisecond)))
	assert.False(t, m.IsOnline("X", ts.Add(600*time.Millisecond)))
}

func TestManager_BindAndUnbind(t *testing.T) {
	m := New(time.Minute)
	conn := &struct{ id int }{id: 1}

	_, ok := m.GetConn("A")
	assert.False(t, ok)

	m.Bind("A", conn)
	got, ok := m.GetConn("A")
	require.True(t, ok)
	assert.Same(t, conn, got)

	info, ok := m.Get("A")
	require.True(t, ok)
	assert.Equal(t, "A", info.Phone)
	assert.NotEmpty(t, info.ConnID)
	assert.False(t, info.BoundAt.IsZero())
	assert.True(t, m.IsOnline("A", time.Now()))

	// 重复绑定覆盖旧连接
	conn2 := &struct{ id int }{id: 2}
	m.Bind("A", conn2)
	got, _ = m.GetConn("A")
	assert.Same(t, conn2, got)
	info2, _ := m.Get("A")
	assert.NotEqual(t, info.ConnID, info2.ConnID)

	now := time.Now()
	m.OnTCPClosed("A", now)
	info, _ = m.Get("A")
	assert.Equal(t, now, info.LastTCPDown)

	m.UnbindByPhone("A")
	_, ok = m.GetConn("A")
	assert.False(t, ok)
	_, ok = m.Get("A")
	assert.False(t, ok)
}

func TestManager_HeartbeatWithoutBind(t *testing.T) {
	m := New(time.Minute)
	m.OnHeartbeat("A", time.Now())
	_, ok := m.GetConn("A")
	assert.False(t, ok)
	_, ok = m.Get("A")
	assert.True(t, ok)
}

func TestManager_OnlineCount(t *testing.T) {
	m := New(time.Minute)
	now := time.Now()
	m.OnHeartbeat("A", now)
	m.OnHeartbeat("B", now.Add(-30*time.Second))
	m.OnHeartbeat("C", now.Add(-2*time.Minute))
	assert.Equal(t, 2, m.OnlineCount(now))
}
