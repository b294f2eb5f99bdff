package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// SchemaVersion tags every persisted snapshot so schema drift is caught at
// the decode boundary instead of deep inside rendering code.
const SchemaVersion = 1

// ErrSchemaMismatch is returned when a persisted snapshot carries a schema
// version this build does not understand.
var ErrSchemaMismatch = errors.New("unsupported snapshot schema")

// DecodeSnapshot unmarshals a persisted snapshot payload, rejecting
// payloads whose schema version this build does not understand.
func DecodeSnapshot[T any](data []byte) (*T, error) {
	var probe struct {
		Schema int `json:"schema"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if probe.Schema != SchemaVersion {
		return nil, fmt.Errorf("snapshot schema %d, want %d: %w", probe.Schema, SchemaVersion, ErrSchemaMismatch)
	}
	var snap T
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// OptFloat converts an internal NaN into the wire representation of a
// missing value. Pointers marshal to JSON null; NaN never crosses the
// serialization boundary.
func OptFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// OptSeries applies OptFloat element-wise.
func OptSeries(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = OptFloat(v)
	}
	return out
}

// IndexSnapshot is the persisted state of the weighted MAG7-vs-BTC
// composite index.
type IndexSnapshot struct {
	Schema    int        `json:"schema"`
	Date      time.Time  `json:"date"`
	Value     float64    `json:"value"`
	SMA       map[int]*float64 `json:"sma"`
	EMA       map[int]*float64 `json:"ema"`
	Status    Status     `json:"status"`
	Chart     IndexChart `json:"chart"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IndexChart carries the smoothed composite series and its moving
// averages for rendering. Warm-up values are null.
type IndexChart struct {
	Dates  []time.Time        `json:"dates"`
	Values []*float64         `json:"values"`
	SMA    map[int][]*float64 `json:"sma"`
	EMA    map[int][]*float64 `json:"ema"`
}

// Crossover is one historical top-signal event: the day the fast moving
// average rose through the doubled slow one.
type Crossover struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PiCycleSnapshot is the persisted state of the Pi Cycle top indicator.
type PiCycleSnapshot struct {
	Schema     int          `json:"schema"`
	Date       time.Time    `json:"date"`
	Ratio      float64      `json:"ratio"`
	SMA111     float64      `json:"sma111"`
	SMA350x2   float64      `json:"sma350x2"`
	Status     Status       `json:"status"`
	Crossovers []Crossover  `json:"crossovers"`
	Chart      PiCycleChart `json:"chart"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// PiCycleChart carries the trailing price window with both moving
// averages and their ratio.
type PiCycleChart struct {
	Dates    []time.Time `json:"dates"`
	Price    []float64   `json:"price"`
	SMA111   []*float64  `json:"sma111"`
	SMA350x2 []*float64  `json:"sma350x2"`
	Ratio    []*float64  `json:"ratio"`
}

// SentimentSnapshot is the persisted state of the market-cycle sentiment
// indicator.
type SentimentSnapshot struct {
	Schema     int            `json:"schema"`
	Date       time.Time      `json:"date"`
	Score      float64        `json:"score"`
	Provenance Provenance     `json:"provenance"`
	Status     Status         `json:"status"`
	History    []HistoryPoint `json:"history,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// RankSnapshot is the persisted state of the app-store rank indicator.
type RankSnapshot struct {
	Schema    int       `json:"schema"`
	Date      time.Time `json:"date"`
	Rank      Rank      `json:"rank"`
	Store     string    `json:"store"`
	Chart     string    `json:"chart"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CycleSnapshot is the persisted state of the halving cycle tracker.
type CycleSnapshot struct {
	Schema    int           `json:"schema"`
	Position  CyclePosition `json:"position"`
	Status    Status        `json:"status"`
	Curves    []CycleCurve  `json:"curves,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}
