package calculator

import (
	"errors"
	"fmt"
	"time"

	"CycleSentinel/internal/model"
)

// DefaultProjectedTopDays is the historical average lag from a halving to
// that cycle's price top.
const DefaultProjectedTopDays = 520

// CyclePositionAt locates today relative to the halving table. Halvings
// must be sorted ascending. When today falls past the last tabulated
// halving, the next one is estimated four years out and flagged as such.
func CyclePositionAt(today time.Time, halvings []time.Time, projectedTopDays int) (model.CyclePosition, error) {
	if len(halvings) == 0 {
		return model.CyclePosition{}, errors.New("empty halving table")
	}
	if projectedTopDays <= 0 {
		return model.CyclePosition{}, fmt.Errorf("projected top days must be positive, got %d", projectedTopDays)
	}
	today = midnightUTC(today)
	if today.Before(halvings[0]) {
		return model.CyclePosition{}, fmt.Errorf("date %s precedes the first tabulated halving %s",
			today.Format("2006-01-02"), halvings[0].Format("2006-01-02"))
	}

	last := halvings[0]
	var next time.Time
	estimated := false
	for _, h := range halvings {
		if h.After(today) {
			next = h
			break
		}
		last = h
	}
	if next.IsZero() {
		next = last.AddDate(4, 0, 0)
		estimated = true
	}

	daysSince := daysBetween(last, today)
	projectedTop := last.AddDate(0, 0, projectedTopDays)
	return model.CyclePosition{
		Today:                 today,
		LastHalving:           last,
		NextHalving:           next,
		NextHalvingEstimated:  estimated,
		DaysSinceHalving:      daysSince,
		DaysUntilNextHalving:  daysBetween(today, next),
		ProjectedTop:          projectedTop,
		DaysUntilProjectedTop: daysBetween(today, projectedTop),
		PercentComplete:       float64(daysSince) / float64(projectedTopDays),
	}, nil
}

// CycleCurves splits the price history at each halving and normalizes
// every cycle to 100 at its first observation, so cycles overlay on a
// days-since-halving axis. Halvings with no price data are skipped; the
// curve of the newest cycle with data is marked current.
func CycleCurves(series model.PriceSeries, halvings []time.Time) []model.CycleCurve {
	var curves []model.CycleCurve
	for i, h := range halvings {
		end := time.Time{}
		if i+1 < len(halvings) {
			end = halvings[i+1]
		}
		var points []model.CyclePoint
		base := 0.0
		for _, p := range series.Points {
			if p.Date.Before(h) {
				continue
			}
			if !end.IsZero() && !p.Date.Before(end) {
				break
			}
			if base == 0 {
				base = p.Price
			}
			points = append(points, model.CyclePoint{
				DayOffset: daysBetween(h, p.Date),
				Value:     p.Price / base * 100,
			})
		}
		if len(points) == 0 {
			continue
		}
		curves = append(curves, model.CycleCurve{
			Label:   fmt.Sprintf("Cycle %d (%s)", i+1, h.Format("2006-01-02")),
			Halving: h,
			Points:  points,
		})
	}
	if len(curves) > 0 {
		curves[len(curves)-1].Current = true
	}
	return curves
}

// AddMonthsClamped shifts t by whole calendar months, clamping the day to
// the target month's length: Jan 31 minus one month is Dec 31, Mar 31
// minus one month is Feb 28 or 29.
func AddMonthsClamped(t time.Time, months int) time.Time {
	year := t.Year()
	month := int(t.Month()) - 1 + months
	year += month / 12
	month %= 12
	if month < 0 {
		month += 12
		year--
	}
	day := t.Day()
	if last := daysInMonth(year, time.Month(month+1)); day > last {
		day = last
	}
	return time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
