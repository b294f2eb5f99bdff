package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountsByResult(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RefreshRun(true)
	m.RefreshRun(true)
	m.RefreshRun(false)
	m.IndicatorUpdate("cbbi", false)

	if got := testutil.ToFloat64(m.RefreshRuns.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok refreshes %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RefreshRuns.WithLabelValues("error")); got != 1 {
		t.Errorf("failed refreshes %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IndicatorUpdates.WithLabelValues("cbbi", "error")); got != 1 {
		t.Errorf("cbbi failures %v, want 1", got)
	}
}

func TestMetrics_NilIsDisabled(t *testing.T) {
	var m *Metrics
	// None of these may panic.
	m.RefreshRun(true)
	m.IndicatorUpdate("pi_cycle", true)
	m.ObserveFetch("yahoo", 120*time.Millisecond)
	m.SetLastRefresh(time.Now())
	m.BacktestRun(false)
}

func TestMetrics_LastRefreshGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())
	at := time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	m.SetLastRefresh(at)
	if got := testutil.ToFloat64(m.LastRefresh); got != float64(at.Unix()) {
		t.Errorf("gauge %v, want %v", got, float64(at.Unix()))
	}
}
