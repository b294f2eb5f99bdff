package recorder

import (
	"fmt"
	"time"

	"CycleSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not
// configured. Writes vanish and reads behave like an empty store.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) PutLatest(string, time.Time, []byte) error { return nil }

func (n *NoopRecorder) GetLatest(name string) (time.Time, []byte, error) {
	return time.Time{}, nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

func (n *NoopRecorder) AppendHistory(string, time.Time, float64) error { return nil }

func (n *NoopRecorder) GetHistory(string, time.Time) ([]model.HistoryPoint, error) {
	return nil, nil
}

func (n *NoopRecorder) Close() error { return nil }
