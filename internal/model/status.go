package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Persistence keys for the five indicators and the aggregate summary.
const (
	KeyIndex     = "mag7_btc"
	KeyPiCycle   = "pi_cycle"
	KeyRank      = "coinbase_rank"
	KeySentiment = "cbbi"
	KeyHalving   = "halving"
	KeySummary   = "signal_summary"
)

// IndicatorKeys lists the five indicator keys in dashboard order.
var IndicatorKeys = []string{KeyIndex, KeyPiCycle, KeySentiment, KeyRank, KeyHalving}

// Severity orders the three classified market states from benign to
// alarming. Unknown sits outside the ordering and is never compared
// against the other three.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityBullish
	SeverityNeutral
	SeverityBearish
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityBullish:
		return "bullish"
	case SeverityNeutral:
		return "neutral"
	case SeverityBearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity as its name rather than a bare number,
// so persisted snapshots stay readable and order-independent.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "bullish":
		*s = SeverityBullish
	case "neutral":
		*s = SeverityNeutral
	case "bearish":
		*s = SeverityBearish
	case "unknown":
		*s = SeverityUnknown
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Status is the classified state of one indicator: a display label plus
// the severity it maps to.
type Status struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
}

// StatusUnknown is the state reported when an indicator cannot be
// evaluated. It is never silently replaced with a neutral reading.
var StatusUnknown = Status{Label: "Unknown", Severity: SeverityUnknown}

// Tally counts indicator statuses by severity.
type Tally struct {
	Bullish int `json:"bullish"`
	Neutral int `json:"neutral"`
	Bearish int `json:"bearish"`
	Unknown int `json:"unknown"`
}

// OverallRead is the aggregate interpretation of all indicator statuses.
type OverallRead string

const (
	ReadStrongWarning   OverallRead = "Strong Top Warning"
	ReadModerateWarning OverallRead = "Moderate Top Warning"
	ReadFavorable       OverallRead = "Favorable Conditions"
	ReadMixed           OverallRead = "Mixed Signals"
)

// IndicatorStatus pairs an indicator with its classified status for the
// aggregate summary.
type IndicatorStatus struct {
	Indicator  string     `json:"indicator"`
	Status     Status     `json:"status"`
	Provenance Provenance `json:"provenance,omitempty"`
}

// SignalSummary is the persisted aggregate of one refresh cycle.
type SignalSummary struct {
	Schema    int               `json:"schema"`
	Statuses  []IndicatorStatus `json:"statuses"`
	Tally     Tally             `json:"tally"`
	Overall   OverallRead       `json:"overall"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// RefreshResult reports the outcome of one indicator's update in a
// refresh cycle.
type RefreshResult struct {
	Indicator  string     `json:"indicator"`
	OK         bool       `json:"ok"`
	Provenance Provenance `json:"provenance,omitempty"`
	Err        string     `json:"error,omitempty"`
}
