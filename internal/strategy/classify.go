package strategy

import (
	"math"

	"CycleSentinel/internal/model"
)

// Status labels shown on the dashboard.
const (
	LabelBullishTrend = "Bullish"
	LabelNeutralTrend = "Neutral"
	LabelBearishTrend = "Bearish"

	LabelTopSignal = "Top Signal"
	LabelPiWarning = "Warning"
	LabelPiNormal  = "Normal"

	LabelExtremeGreed = "Extreme Greed"
	LabelGreed        = "Greed"
	LabelFear         = "Fear"

	LabelEuphoria        = "Market Euphoria"
	LabelGrowingInterest = "Growing Interest"
	LabelNormalInterest  = "Normal Interest"

	LabelLateCycle  = "Late Cycle"
	LabelMidCycle   = "Mid Cycle"
	LabelEarlyCycle = "Early Cycle"
)

// Thresholds collects every classification boundary. Values come from
// configuration; DefaultThresholds mirrors the published dashboard.
type Thresholds struct {
	SentimentGreed float64 // above this the score reads extreme greed
	SentimentFear  float64 // below this the score reads fear
	RankEuphoria   int     // rank at or above this chart position reads euphoria
	RankGrowing    int
	PiTop          float64 // ratio above this is an imminent top
	PiNormal       float64 // ratio below this is a calm market
	CycleLate      float64 // completed fraction above this is late cycle
	CycleMid       float64
}

// DefaultThresholds returns the published dashboard boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SentimentGreed: 0.8,
		SentimentFear:  0.5,
		RankEuphoria:   10,
		RankGrowing:    50,
		PiTop:          0.98,
		PiNormal:       0.80,
		CycleLate:      0.8,
		CycleMid:       0.5,
	}
}

// ClassifyIndex rates the composite index against its trend averages:
// above the medium average is bullish, below the long average is bearish,
// between them is neutral. Any undefined input classifies as unknown.
func ClassifyIndex(value, bullMA, bearMA float64) model.Status {
	if math.IsNaN(value) || math.IsNaN(bullMA) || math.IsNaN(bearMA) {
		return model.StatusUnknown
	}
	switch {
	case value > bullMA:
		return model.Status{Label: LabelBullishTrend, Severity: model.SeverityBullish}
	case value < bearMA:
		return model.Status{Label: LabelBearishTrend, Severity: model.SeverityBearish}
	default:
		return model.Status{Label: LabelNeutralTrend, Severity: model.SeverityNeutral}
	}
}

// ClassifyPiCycle rates the fast-to-doubled-slow average ratio.
func ClassifyPiCycle(ratio float64, t Thresholds) model.Status {
	if math.IsNaN(ratio) {
		return model.StatusUnknown
	}
	switch {
	case ratio > t.PiTop:
		return model.Status{Label: LabelTopSignal, Severity: model.SeverityBearish}
	case ratio < t.PiNormal:
		return model.Status{Label: LabelPiNormal, Severity: model.SeverityBullish}
	default:
		return model.Status{Label: LabelPiWarning, Severity: model.SeverityNeutral}
	}
}

// ClassifySentiment rates a 0-1 sentiment score.
func ClassifySentiment(score float64, t Thresholds) model.Status {
	if math.IsNaN(score) {
		return model.StatusUnknown
	}
	switch {
	case score > t.SentimentGreed:
		return model.Status{Label: LabelExtremeGreed, Severity: model.SeverityBearish}
	case score < t.SentimentFear:
		return model.Status{Label: LabelFear, Severity: model.SeverityBullish}
	default:
		return model.Status{Label: LabelGreed, Severity: model.SeverityNeutral}
	}
}

// ClassifyRank rates the app-store chart position. Out-of-range means
// retail is absent, the calmest reading there is. A nil rank means the
// chart could not be read at all.
func ClassifyRank(rank *model.Rank, t Thresholds) model.Status {
	if rank == nil {
		return model.StatusUnknown
	}
	switch {
	case rank.AtMost(t.RankEuphoria):
		return model.Status{Label: LabelEuphoria, Severity: model.SeverityBearish}
	case rank.AtMost(t.RankGrowing):
		return model.Status{Label: LabelGrowingInterest, Severity: model.SeverityNeutral}
	default:
		return model.Status{Label: LabelNormalInterest, Severity: model.SeverityBullish}
	}
}

// ClassifyCycle rates the completed fraction of the halving-to-projected-
// top span.
func ClassifyCycle(percentComplete float64, t Thresholds) model.Status {
	if math.IsNaN(percentComplete) {
		return model.StatusUnknown
	}
	switch {
	case percentComplete > t.CycleLate:
		return model.Status{Label: LabelLateCycle, Severity: model.SeverityBearish}
	case percentComplete > t.CycleMid:
		return model.Status{Label: LabelMidCycle, Severity: model.SeverityNeutral}
	default:
		return model.Status{Label: LabelEarlyCycle, Severity: model.SeverityBullish}
	}
}
