package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/dinein/pkg/db"
)

// KitchenMetrics tracks the stale-ticket sweeper.
type KitchenMetrics struct {
	sweepRuns     prometheus.Counter
	sweepDuration prometheus.Histogram
	sweepTimeouts prometheus.Counter
	sweepErrors   *prometheus.CounterVec
	staleTickets  prometheus.Counter
	staleBacklog  prometheus.Gauge
	runLoopLag    prometheus.Histogram
}

var (
	kitchenMetricsOnce sync.Once
	kitchenMetrics     *KitchenMetrics
)

// Kitchen returns the process-wide sweeper metrics registered on the default registerer.
func Kitchen(cfg Config) *KitchenMetrics {
	kitchenMetricsOnce.Do(func() {
		kitchenMetrics = NewKitchenMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return kitchenMetrics
}

// NewKitchenMetrics registers sweeper collectors on registerer.
func NewKitchenMetrics(registerer prometheus.Registerer, cfg Config) *KitchenMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "dinein"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{"service": serviceName, "env": environment}

	m := &KitchenMetrics{
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dinein_kitchen_sweep_runs_total",
			Help:        "Stale ticket sweeps started.",
			ConstLabels: constLabels,
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "dinein_kitchen_sweep_duration_seconds",
			Help:        "Stale ticket sweep latency.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}),
		sweepTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dinein_kitchen_sweep_timeouts_total",
			Help:        "Stale ticket sweeps that hit their deadline.",
			ConstLabels: constLabels,
		}),
		sweepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dinein_kitchen_sweep_errors_total",
			Help:        "Stale ticket sweep failures by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		staleTickets: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dinein_kitchen_stale_tickets_total",
			Help:        "Tickets reported past their station alert threshold.",
			ConstLabels: constLabels,
		}),
		staleBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "dinein_kitchen_stale_tickets",
			Help:        "Stale tickets found by the most recent sweep.",
			ConstLabels: constLabels,
		}),
		runLoopLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "dinein_kitchen_sweep_lag_seconds",
			Help:        "Delay between the scheduled and actual sweep start.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.sweepRuns,
		m.sweepDuration,
		m.sweepTimeouts,
		m.sweepErrors,
		m.staleTickets,
		m.staleBacklog,
		m.runLoopLag,
	)
	return m
}

func (m *KitchenMetrics) IncSweepRun() {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
}

func (m *KitchenMetrics) ObserveSweepDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *KitchenMetrics) IncSweepTimeout() {
	if m == nil {
		return
	}
	m.sweepTimeouts.Inc()
}

// IncSweepError counts a failed sweep labelled by db.ClassifyError.
func (m *KitchenMetrics) IncSweepError(err error) {
	if m == nil || err == nil {
		return
	}
	m.sweepErrors.WithLabelValues(db.ClassifyError(err)).Inc()
}

// ObserveStale records the result of one sweep: backlog is every stale
// ticket found, reported the ones alerted for the first time.
func (m *KitchenMetrics) ObserveStale(backlog, reported int) {
	if m == nil {
		return
	}
	m.staleTickets.Add(float64(reported))
	m.staleBacklog.Set(float64(backlog))
}

func (m *KitchenMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil || d < 0 {
		return
	}
	m.runLoopLag.Observe(d.Seconds())
}
