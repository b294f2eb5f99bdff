package recorder

import (
	"errors"
	"time"

	"CycleSentinel/internal/model"
)

// ErrNotFound is returned when an indicator has no persisted snapshot.
var ErrNotFound = errors.New("recorder: not found")

// Recorder persists indicator snapshots and their daily history. The
// latest snapshot per indicator is an opaque JSON payload replaced on
// every refresh; history keeps one numeric value per indicator per day.
type Recorder interface {
	PutLatest(name string, date time.Time, payload []byte) error
	GetLatest(name string) (time.Time, []byte, error)
	AppendHistory(name string, date time.Time, value float64) error
	GetHistory(name string, since time.Time) ([]model.HistoryPoint, error)
	Close() error
}
