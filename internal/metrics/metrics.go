package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one notifyd instance. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	connected         prometheus.Gauge
	dials             *prometheus.CounterVec
	reconnects        prometheus.Counter
	framesReceived    *prometheus.CounterVec
	malformedFrames   prometheus.Counter
	commandsSent      *prometheus.CounterVec
	notificationsSeen *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notifyd",
			Name:      "connected",
			Help:      "1 while the notification socket is open.",
		}),
		dials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyd",
			Name:      "dials_total",
			Help:      "Connection attempts by result.",
		}, []string{"result"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyd",
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled after a closure.",
		}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyd",
			Name:      "frames_received_total",
			Help:      "Inbound frames by message type.",
		}, []string{"type"}),
		malformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyd",
			Name:      "frames_malformed_total",
			Help:      "Inbound frames that could not be decoded.",
		}),
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyd",
			Name:      "commands_total",
			Help:      "Outbound commands by action and result.",
		}, []string{"action", "result"}),
		notificationsSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyd",
			Name:      "notifications_pushed_total",
			Help:      "Pushed notifications by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connected,
		m.dials,
		m.reconnects,
		m.framesReceived,
		m.malformedFrames,
		m.commandsSent,
		m.notificationsSeen,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

func (m *Metrics) Dial(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.dials.WithLabelValues(result).Inc()
}

func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) FrameReceived(msgType string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(msgType).Inc()
}

func (m *Metrics) FrameMalformed() {
	if m == nil {
		return
	}
	m.malformedFrames.Inc()
}

func (m *Metrics) CommandSent(action string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.commandsSent.WithLabelValues(action, result).Inc()
}

func (m *Metrics) NotificationPushed(kind string) {
	if m == nil {
		return
	}
	m.notificationsSeen.WithLabelValues(kind).Inc()
}
