package model

import "time"

// Provenance records where a reading came from, so a degraded value can
// never masquerade as a live one.
type Provenance string

const (
	ProvenanceLive         Provenance = "live"
	ProvenanceCached       Provenance = "cached"
	ProvenanceApproximated Provenance = "approximated"
)

// Degraded reports whether the value did not come from the live source.
func (p Provenance) Degraded() bool { return p != ProvenanceLive }

// SentimentScore is one market-cycle sentiment reading on the canonical
// 0-1 scale, tagged with its provenance.
type SentimentScore struct {
	Score      float64    `json:"score"`
	Provenance Provenance `json:"provenance"`
	Date       time.Time  `json:"date"`
}
