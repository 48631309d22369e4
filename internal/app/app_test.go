package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/jt808-gateway/internal/config"
	"github.com/taoyao-code/jt808-gateway/internal/gateway"
	"github.com/taoyao-code/jt808-gateway/internal/protocol/jt808"
	"github.com/taoyao-code/jt808-gateway/internal/session"
)

func TestNewSessionManager_Memory(t *testing.T) {
	mgr := NewSessionManager(cfgpkg.SessionConfig{HeartbeatTimeout: time.Minute}, nil, "s1", zap.NewNop())
	_, ok := mgr.(*session.Manager)
	assert.True(t, ok)
}

func TestNewRedisClient_Disabled(t *testing.T) {
	c, err := NewRedisClient(context.Background(), cfgpkg.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, NewDownlinkQueue(nil, time.Hour))
}

func TestGenerateServerID(t *testing.T) {
	assert.Equal(t, "fixed", GenerateServerID("fixed"))

	os.Unsetenv("SERVER_ID")
	id := GenerateServerID("")
	assert.Contains(t, id, "jt808-gateway-")

	t.Setenv("SERVER_ID", "from-env")
	assert.Equal(t, "from-env", GenerateServerID(""))
}

func TestNewCodec(t *testing.T) {
	_, err := NewCodec(cfgpkg.JT808Config{Version: "2019"})
	require.NoError(t, err)
	_, err = NewCodec(cfgpkg.JT808Config{Version: "1999"})
	assert.Error(t, err)
}

func TestNewGateway_NoQueueFailsOffline(t *testing.T) {
	reg, appm := NewMetrics()
	require.NotNil(t, reg)
	codec, err := NewCodec(cfgpkg.JT808Config{Version: "auto"})
	require.NoError(t, err)

	gw := NewGateway(cfgpkg.JT808Config{FragmentSize: 1000}, codec, session.New(time.Minute), nil, appm, zap.NewNop())
	_, err = gw.Send(context.Background(), "013812345678", jt808.TextMessage{Text: "hi"})
	assert.ErrorIs(t, err, gateway.ErrTerminalOffline)
}
