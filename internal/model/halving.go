package model

import "time"

// CyclePosition locates a date within the current halving cycle.
type CyclePosition struct {
	Today                 time.Time `json:"today"`
	LastHalving           time.Time `json:"last_halving"`
	NextHalving           time.Time `json:"next_halving"`
	NextHalvingEstimated  bool      `json:"next_halving_estimated"`
	DaysSinceHalving      int       `json:"days_since_halving"`
	DaysUntilNextHalving  int       `json:"days_until_next_halving"`
	ProjectedTop          time.Time `json:"projected_top"`
	DaysUntilProjectedTop int       `json:"days_until_projected_top"`
	PercentComplete       float64   `json:"percent_complete"`
}

// CyclePoint is one observation on a normalized cycle curve.
type CyclePoint struct {
	DayOffset int     `json:"day_offset"`
	Value     float64 `json:"value"`
}

// CycleCurve is the price path of one halving cycle, normalized to 100 at
// the first observation on or after the halving date, indexed by days
// since the halving so cycles overlay on a common axis.
type CycleCurve struct {
	Label   string       `json:"label"`
	Halving time.Time    `json:"halving"`
	Current bool         `json:"current"`
	Points  []CyclePoint `json:"points"`
}
