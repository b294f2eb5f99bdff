package model

import "time"

// PricePoint is one daily adjusted-close observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceSeries holds the daily price history for one ticker.
// Points are ordered by date, strictly increasing, no duplicate dates.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Dates returns the observation dates in order.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// Prices returns the observation values in date order.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// First returns the earliest observation, if any.
func (s PriceSeries) First() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[0], true
}

// Last returns the most recent observation, if any.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// HistoryPoint is one (date, value) row from an indicator's history log.
type HistoryPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
