package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppMetrics_Counters(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.DecodeTotal.WithLabelValues("ok").Inc()
	m.DecodeTotal.WithLabelValues("ok").Inc()
	m.DecodeTotal.WithLabelValues("unknown").Inc()
	m.RouteTotal.WithLabelValues(MsgLabel(0x0200)).Inc()
	m.ReassemblyPending.Set(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RouteTotal.WithLabelValues("0x0200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReassemblyPending))
}

func TestAppMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	NewAppMetrics(reg)
	assert.Panics(t, func() { NewAppMetrics(reg) })
}

func TestHandler_Exposes(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)
	m.HeartbeatTotal.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "session_heartbeat_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMsgLabel(t *testing.T) {
	assert.Equal(t, "0x8001", MsgLabel(0x8001))
	assert.Equal(t, "0x0002", MsgLabel(2))
}
