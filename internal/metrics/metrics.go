package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments. A nil *Metrics is a valid
// disabled instance: every method is a no-op, so tests and store-less
// runs need no stub.
type Metrics struct {
	RefreshRuns      *prometheus.CounterVec
	IndicatorUpdates *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	LastRefresh      prometheus.Gauge
	BacktestRuns     *prometheus.CounterVec
}

// New registers the instruments with reg, or with the default registry
// when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RefreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cyclesentinel_refresh_runs_total",
			Help: "Refresh cycles by outcome.",
		}, []string{"result"}),
		IndicatorUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cyclesentinel_indicator_updates_total",
			Help: "Per-indicator update attempts by outcome.",
		}, []string{"indicator", "result"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cyclesentinel_fetch_duration_seconds",
			Help:    "External fetch latency by source.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		LastRefresh: f.NewGauge(prometheus.GaugeOpts{
			Name: "cyclesentinel_last_refresh_timestamp",
			Help: "Unix time of the last completed refresh cycle.",
		}),
		BacktestRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cyclesentinel_backtest_runs_total",
			Help: "Backtest runs by outcome.",
		}, []string{"result"}),
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// RefreshRun counts a completed refresh cycle.
func (m *Metrics) RefreshRun(ok bool) {
	if m == nil {
		return
	}
	m.RefreshRuns.WithLabelValues(result(ok)).Inc()
}

// IndicatorUpdate counts one indicator's update attempt.
func (m *Metrics) IndicatorUpdate(indicator string, ok bool) {
	if m == nil {
		return
	}
	m.IndicatorUpdates.WithLabelValues(indicator, result(ok)).Inc()
}

// ObserveFetch records the latency of one external fetch.
func (m *Metrics) ObserveFetch(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// SetLastRefresh stamps the end of the last refresh cycle.
func (m *Metrics) SetLastRefresh(t time.Time) {
	if m == nil {
		return
	}
	m.LastRefresh.Set(float64(t.Unix()))
}

// BacktestRun counts a backtest request.
func (m *Metrics) BacktestRun(ok bool) {
	if m == nil {
		return
	}
	m.BacktestRuns.WithLabelValues(result(ok)).Inc()
}
