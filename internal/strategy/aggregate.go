package strategy

import (
	"time"

	"github.com/samber/lo"

	"CycleSentinel/internal/model"
)

// Fractions of the full indicator set that trigger each overall read.
// With the five standard indicators these come out to 3, 2 and 3.
const (
	strongWarnFraction   = 0.6
	moderateWarnFraction = 0.4
	favorableFraction    = 0.6
)

// Aggregate tallies the classified statuses and derives the overall
// market read. Unknown statuses never count as bearish or bullish, but
// they still belong to the set the fractions are taken of, so missing
// data weakens a warning instead of inventing one.
func Aggregate(statuses []model.IndicatorStatus) model.SignalSummary {
	tally := model.Tally{
		Bullish: countSeverity(statuses, model.SeverityBullish),
		Neutral: countSeverity(statuses, model.SeverityNeutral),
		Bearish: countSeverity(statuses, model.SeverityBearish),
		Unknown: countSeverity(statuses, model.SeverityUnknown),
	}

	overall := model.ReadMixed
	if n := len(statuses); n > 0 {
		bearish := float64(tally.Bearish) / float64(n)
		bullish := float64(tally.Bullish) / float64(n)
		switch {
		case bearish >= strongWarnFraction:
			overall = model.ReadStrongWarning
		case bearish >= moderateWarnFraction:
			overall = model.ReadModerateWarning
		case bullish >= favorableFraction:
			overall = model.ReadFavorable
		}
	}

	return model.SignalSummary{
		Schema:    model.SchemaVersion,
		Statuses:  statuses,
		Tally:     tally,
		Overall:   overall,
		UpdatedAt: time.Now().UTC(),
	}
}

func countSeverity(statuses []model.IndicatorStatus, sev model.Severity) int {
	return lo.CountBy(statuses, func(s model.IndicatorStatus) bool {
		return s.Status.Severity == sev
	})
}
