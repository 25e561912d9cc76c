package synthesis

import (
	"net/http"
	"time"

	"github.com/iqskr/AVLSystem/business/data/feed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects prometheus metrics for synthesis cycles. A nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	Cycles         *prometheus.CounterVec // state label: done|failed
	Emitted        *prometheus.CounterVec // kind label
	RecordFailures *prometheus.CounterVec // kind label
	AlertFailures  prometheus.Counter
	HeadingEntries prometheus.Gauge
	CycleDuration  prometheus.Histogram
}

// NewMetrics creates Metrics registered in their own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avl_feed_cycles_total",
			Help: "Synthesis cycles by the state they ended in.",
		}, []string{"state"}),
		Emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avl_feed_messages_emitted_total",
			Help: "Feed messages built, by kind.",
		}, []string{"kind"}),
		RecordFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avl_feed_record_failures_total",
			Help: "Feed messages a recorder failed to record, by kind.",
		}, []string{"kind"}),
		AlertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "avl_feed_alert_failures_total",
			Help: "Service alert inputs that could not be built.",
		}),
		HeadingEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avl_feed_heading_entries",
			Help: "Vehicles with heading state held between cycles.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "avl_feed_cycle_duration_seconds",
			Help:    "Duration of synthesis cycles.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
	}
	reg.MustRegister(m.Cycles, m.Emitted, m.RecordFailures, m.AlertFailures, m.HeadingEntries, m.CycleDuration)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) observeCycle(result CycleResult, headingEntries int, took time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(result.State.String()).Inc()
	m.HeadingEntries.Set(float64(headingEntries))
	m.CycleDuration.Observe(took.Seconds())
}

func (m *Metrics) emitted(kind feed.Kind) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) recordFailed(kind feed.Kind) {
	if m == nil {
		return
	}
	m.RecordFailures.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) alertFailed() {
	if m == nil {
		return
	}
	m.AlertFailures.Inc()
}
