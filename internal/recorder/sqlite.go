package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"CycleSentinel/internal/model"
)

// dateLayout keys history rows. ISO dates sort lexicographically, so the
// since-filter and ordering work as plain string comparisons.
const dateLayout = "2006-01-02"

// SQLiteRecorder persists indicator data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (the API reads
	// while the scheduler writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS indicator_latest (
			name       TEXT PRIMARY KEY,
			date       TEXT NOT NULL,
			payload    TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS indicator_history (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			name  TEXT NOT NULL,
			date  TEXT NOT NULL,
			value REAL NOT NULL,
			UNIQUE(name, date) ON CONFLICT REPLACE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_name_date ON indicator_history(name, date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// PutLatest replaces the stored snapshot for the named indicator.
func (r *SQLiteRecorder) PutLatest(name string, date time.Time, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO indicator_latest (name, date, payload, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET
			date=excluded.date, payload=excluded.payload, updated_at=excluded.updated_at`,
		name, date.UTC().Format(dateLayout), string(payload), time.Now().Unix(),
	)
	return err
}

// GetLatest returns the stored snapshot for the named indicator, or
// ErrNotFound when nothing has been persisted yet.
func (r *SQLiteRecorder) GetLatest(name string) (time.Time, []byte, error) {
	var dateStr, payload string
	err := r.db.QueryRow(`SELECT date, payload FROM indicator_latest WHERE name = ?`, name).
		Scan(&dateStr, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("query latest %s: %w", name, err)
	}
	date, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	return date, []byte(payload), nil
}

// AppendHistory records the day's value for the named indicator. Writing
// the same day twice keeps the newer value.
func (r *SQLiteRecorder) AppendHistory(name string, date time.Time, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO indicator_history (name, date, value) VALUES (?,?,?)`,
		name, date.UTC().Format(dateLayout), value,
	)
	return err
}

// GetHistory returns the recorded values for the named indicator from
// since onward, oldest first.
func (r *SQLiteRecorder) GetHistory(name string, since time.Time) ([]model.HistoryPoint, error) {
	rows, err := r.db.Query(`SELECT date, value FROM indicator_history
		WHERE name = ? AND date >= ? ORDER BY date ASC`,
		name, since.UTC().Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query history %s: %w", name, err)
	}
	defer rows.Close()

	var points []model.HistoryPoint
	for rows.Next() {
		var dateStr string
		var value float64
		if err := rows.Scan(&dateStr, &value); err != nil {
			return nil, fmt.Errorf("scan history %s: %w", name, err)
		}
		date, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", dateStr, err)
		}
		points = append(points, model.HistoryPoint{Date: date, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history %s: %w", name, err)
	}
	return points, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
