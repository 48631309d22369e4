package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	TCPAccepted       prometheus.Counter
	TCPRejected       *prometheus.CounterVec // labels: reason=limit|rate
	TCPBytesReceived  prometheus.Counter
	DecodeTotal       *prometheus.CounterVec // labels: result=ok|buffered|unknown|error|bad_frame
	RouteTotal        *prometheus.CounterVec // labels: msg_id
	ReassemblyPending prometheus.Gauge       // 未完成的分包组数
	ReassemblyEvicted prometheus.Counter     // 超时丢弃的分包组数
	DownlinkTotal     *prometheus.CounterVec // labels: result=sent|queued|error
	OnlineGauge       prometheus.Gauge       // 当前在线终端数
	HeartbeatTotal    prometheus.Counter     // 心跳计数
	OfflineTotal      *prometheus.CounterVec // labels: reason=logout|closed|timeout
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		TCPAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_accept_total",
			Help: "Total accepted TCP connections.",
		}),
		TCPRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tcp_reject_total",
			Help: "TCP connections rejected by limiter.",
		}, []string{"reason"}),
		TCPBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_bytes_received_total",
			Help: "Total bytes received over TCP.",
		}),
		DecodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jt808_decode_total",
			Help: "JT808 frame decode attempts by result.",
		}, []string{"result"}),
		RouteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jt808_route_total",
			Help: "JT808 routed messages by message id.",
		}, []string{"msg_id"}),
		ReassemblyPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jt808_reassembly_pending",
			Help: "Subpackage groups waiting for missing fragments.",
		}),
		ReassemblyEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jt808_reassembly_evicted_total",
			Help: "Subpackage groups dropped after timeout.",
		}),
		DownlinkTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jt808_downlink_total",
			Help: "Platform downlink messages by result.",
		}, []string{"result"}),
		OnlineGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_online_count",
			Help: "Current number of online terminals.",
		}),
		HeartbeatTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_heartbeat_total",
			Help: "Total heartbeats observed.",
		}),
		OfflineTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_offline_total",
			Help: "Terminal offline events by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		m.TCPAccepted, m.TCPRejected, m.TCPBytesReceived,
		m.DecodeTotal, m.RouteTotal,
		m.ReassemblyPending, m.ReassemblyEvicted,
		m.DownlinkTotal,
		m.OnlineGauge, m.HeartbeatTotal, m.OfflineTotal,
	)
	return m
}

// MsgLabel 将消息 ID 格式化为指标标签
func MsgLabel(id uint16) string {
	return fmt.Sprintf("0x%04X", id)
}
