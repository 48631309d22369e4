package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/jt808-gateway/internal/gateway"
	"github.com/taoyao-code/jt808-gateway/internal/tcpserver"
)

// mockChecker 模拟检查器
type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{Status: m.status, Message: "mock", Latency: time.Millisecond}
}

func TestAggregator(t *testing.T) {
	tests := []struct {
		name  string
		in    []Status
		want  Status
		ready bool
	}{
		{"全部健康", []Status{StatusHealthy, StatusHealthy}, StatusHealthy, true},
		{"部分降级", []Status{StatusHealthy, StatusDegraded}, StatusDegraded, true},
		{"部分不健康", []Status{StatusDegraded, StatusUnhealthy}, StatusUnhealthy, false},
		{"无检查器", nil, StatusHealthy, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			for i, s := range tt.in {
				agg.AddChecker(&mockChecker{name: string(rune('a' + i)), status: s})
			}
			assert.Equal(t, tt.want, agg.OverallStatus(context.Background()))
			assert.Equal(t, tt.ready, agg.Ready(context.Background()))
		})
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator(&mockChecker{"check1", StatusHealthy}, &mockChecker{"check2", StatusHealthy})
	agg.AddChecker(nil)
	agg.AddChecker(CheckerFunc{CheckerName: "fn", Fn: func(context.Context) CheckResult {
		return CheckResult{Status: StatusDegraded}
	}})

	results := agg.CheckAll(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, StatusDegraded, results["fn"].Status)

	report := agg.Report(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.False(t, report.Timestamp.IsZero())
}

type fakeAdmission tcpserver.AdmissionStats

func (f fakeAdmission) Stats() tcpserver.AdmissionStats { return tcpserver.AdmissionStats(f) }

func TestTCPChecker(t *testing.T) {
	tests := []struct {
		active, max int
		want        Status
	}{
		{10, 100, StatusHealthy},
		{85, 100, StatusDegraded},
		{99, 100, StatusUnhealthy},
		{5, 0, StatusHealthy},
	}
	for _, tt := range tests {
		c := NewTCPChecker(fakeAdmission{ActiveConnections: tt.active, MaxConnections: tt.max})
		r := c.Check(context.Background())
		assert.Equal(t, tt.want, r.Status, "active=%d max=%d", tt.active, tt.max)
		assert.Equal(t, tt.active, r.Details["active_connections"])
	}
}

func TestGatewayChecker(t *testing.T) {
	gw := gateway.New(gateway.Options{BreakerThreshold: 1, BreakerTimeout: time.Hour})
	c := NewGatewayChecker(gw)
	assert.Equal(t, "jt808", c.Name())

	r := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, "closed", r.Details["breaker_state"])

	_ = gw.Breaker().Do(func() error { return assert.AnError })
	r = c.Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "open", r.Details["breaker_state"])
}

func TestRegisterHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	agg := NewAggregator(&mockChecker{"tcp", StatusHealthy})
	r := gin.New()
	RegisterHTTPRoutes(r, agg)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var report HealthReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Contains(t, report.Checks, "tcp")

	agg.AddChecker(&mockChecker{"redis", StatusUnhealthy})
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadiness(t *testing.T) {
	r := NewReadiness(true)
	assert.False(t, r.Ready())
	r.SetTCPReady(true)
	assert.False(t, r.Ready())
	r.SetRedisReady(true)
	assert.True(t, r.Ready())

	assert.False(t, NewReadiness(false).Ready())
}
