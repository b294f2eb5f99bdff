package model

import (
	"fmt"
	"strconv"
)

// Rank is an app-store chart position: either a concrete 1-based position
// inside the tracked window, or out-of-range when the app does not appear
// in the chart at all. Out-of-range is a real observation, not a missing
// value, and it is never collapsed onto a sentinel position.
type Rank struct {
	Ranked   bool `json:"ranked"`
	Position int  `json:"position,omitempty"`
}

// RankedAt returns a concrete chart position.
func RankedAt(pos int) Rank { return Rank{Ranked: true, Position: pos} }

// OutOfRange returns the rank of an app absent from the tracked chart.
func OutOfRange() Rank { return Rank{} }

// AtMost reports whether the rank is a concrete position at or above n in
// the chart (position <= n). Out-of-range is never AtMost anything.
func (r Rank) AtMost(n int) bool { return r.Ranked && r.Position <= n }

// AtLeast reports whether the rank is n or worse. Out-of-range is worse
// than every concrete position, so it always satisfies AtLeast.
func (r Rank) AtLeast(n int) bool { return !r.Ranked || r.Position >= n }

// Compare orders two ranks: negative when r is better (closer to the top
// of the chart) than other. Out-of-range sorts after every concrete
// position.
func (r Rank) Compare(other Rank) int {
	switch {
	case r.Ranked && other.Ranked:
		return r.Position - other.Position
	case r.Ranked:
		return -1
	case other.Ranked:
		return 1
	default:
		return 0
	}
}

// Ordinal maps the rank onto a single comparable number for history
// storage: concrete positions map to themselves, out-of-range maps to one
// past the tracked window.
func (r Rank) Ordinal(trackedRange int) int {
	if !r.Ranked {
		return trackedRange + 1
	}
	return r.Position
}

// Display renders the rank for humans: "17", or "200+" when the app sits
// somewhere below the tracked window.
func (r Rank) Display(trackedRange int) string {
	if !r.Ranked {
		return fmt.Sprintf("%d+", trackedRange)
	}
	return strconv.Itoa(r.Position)
}
