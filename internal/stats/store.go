package stats

import (
	"fmt"
	"time"
)

// RecordStore persists telemetry reports per game and pid.
type RecordStore struct {
	db *Database
}

// NewRecordStore opens the store and creates the schema.
func NewRecordStore(dbPath string) (*RecordStore, error) {
	database, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	store := &RecordStore{db: database}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate stats database: %w", err)
	}
	return store, nil
}

func (s *RecordStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			pid INTEGER NOT NULL,
			match_id INTEGER NOT NULL,
			score INTEGER NOT NULL,
			duration_sec INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			extra BLOB,
			saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_reports_game_pid ON reports(game_id, pid);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

// Save inserts a report and returns the total report count for that
// game/pid pair, which the recorder handler echoes back to the client.
func (s *RecordStore) Save(gameID string, pid int32, report *Report) (uint32, error) {
	_, err := s.db.Exec(
		`INSERT INTO reports (game_id, pid, match_id, score, duration_sec, outcome, extra, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		gameID, pid, report.MatchID, report.Score, report.Duration,
		report.Outcome.String(), report.Extra, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}
	return s.CountFor(gameID, pid)
}

// CountFor returns the number of stored reports for a game/pid pair.
func (s *RecordStore) CountFor(gameID string, pid int32) (uint32, error) {
	var count uint32
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM reports WHERE game_id = ? AND pid = ?`,
		gameID, pid,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// TotalCount returns the number of stored reports across all games.
func (s *RecordStore) TotalCount() (uint64, error) {
	var count uint64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}
