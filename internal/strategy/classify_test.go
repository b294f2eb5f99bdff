package strategy

import (
	"math"
	"testing"

	"CycleSentinel/internal/model"
)

func TestClassifyIndex(t *testing.T) {
	cases := []struct {
		name                 string
		value, bullMA, bearMA float64
		want                 model.Severity
	}{
		{"above medium average", 110, 100, 90, model.SeverityBullish},
		{"below long average", 80, 100, 90, model.SeverityBearish},
		{"between averages", 95, 100, 90, model.SeverityNeutral},
		{"exactly on medium average", 100, 100, 90, model.SeverityNeutral},
		{"undefined value", math.NaN(), 100, 90, model.SeverityUnknown},
		{"undefined average", 95, math.NaN(), 90, model.SeverityUnknown},
	}
	for _, c := range cases {
		if got := ClassifyIndex(c.value, c.bullMA, c.bearMA); got.Severity != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got.Severity, c.want)
		}
	}
}

func TestClassifyPiCycle(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		ratio float64
		want  string
	}{
		{0.99, LabelTopSignal},
		{0.98, LabelPiWarning}, // boundary is strict
		{0.85, LabelPiWarning},
		{0.80, LabelPiWarning}, // boundary is strict
		{0.79, LabelPiNormal},
		{0.30, LabelPiNormal},
	}
	for _, c := range cases {
		if got := ClassifyPiCycle(c.ratio, th); got.Label != c.want {
			t.Errorf("ratio %v: got %q, want %q", c.ratio, got.Label, c.want)
		}
	}
	if got := ClassifyPiCycle(math.NaN(), th); got.Severity != model.SeverityUnknown {
		t.Errorf("undefined ratio: got %s, want unknown", got.Severity)
	}
}

func TestClassifySentiment(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		score float64
		want  string
	}{
		{0.85, LabelExtremeGreed},
		{0.80, LabelGreed}, // boundary is strict
		{0.50, LabelGreed},
		{0.49, LabelFear},
		{0.10, LabelFear},
	}
	for _, c := range cases {
		if got := ClassifySentiment(c.score, th); got.Label != c.want {
			t.Errorf("score %v: got %q, want %q", c.score, got.Label, c.want)
		}
	}
}

func TestClassifyRank(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		name string
		rank model.Rank
		want string
	}{
		{"top five", model.RankedAt(5), LabelEuphoria},
		{"exactly ten", model.RankedAt(10), LabelEuphoria},
		{"eleven", model.RankedAt(11), LabelGrowingInterest},
		{"exactly fifty", model.RankedAt(50), LabelGrowingInterest},
		{"fifty one", model.RankedAt(51), LabelNormalInterest},
		{"out of range", model.OutOfRange(), LabelNormalInterest},
	}
	for _, c := range cases {
		if got := ClassifyRank(&c.rank, th); got.Label != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got.Label, c.want)
		}
	}
	if got := ClassifyRank(nil, th); got.Severity != model.SeverityUnknown {
		t.Errorf("unreadable chart: got %s, want unknown", got.Severity)
	}
}

func TestClassifyCycle(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		pct  float64
		want string
	}{
		{0.9, LabelLateCycle},
		{0.8, LabelMidCycle}, // boundary is strict
		{0.6, LabelMidCycle},
		{0.5, LabelEarlyCycle},
		{0.1, LabelEarlyCycle},
	}
	for _, c := range cases {
		if got := ClassifyCycle(c.pct, th); got.Label != c.want {
			t.Errorf("pct %v: got %q, want %q", c.pct, got.Label, c.want)
		}
	}
}
