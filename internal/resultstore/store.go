// Package resultstore keeps a durable SQLite history of training runs,
// their repeats and tuning trials. The store is optional: the pipeline
// runs without one configured.
package resultstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	encoder      TEXT NOT NULL,
	started_at   TIMESTAMP NOT NULL,
	finished_at  TIMESTAMP,
	best_accuracy REAL
);
CREATE TABLE IF NOT EXISTS repeats (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	repeat_index     INTEGER NOT NULL,
	accuracy         REAL NOT NULL,
	checkpoint_path  TEXT NOT NULL,
	predictions_path TEXT NOT NULL,
	PRIMARY KEY (run_id, repeat_index)
);
CREATE TABLE IF NOT EXISTS trials (
	search_id      TEXT NOT NULL,
	trial_index    INTEGER NOT NULL,
	config_json    TEXT NOT NULL,
	final_loss     REAL NOT NULL,
	final_accuracy REAL NOT NULL,
	status         TEXT NOT NULL,
	PRIMARY KEY (search_id, trial_index)
);
`

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("resultstore: opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("resultstore: initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// BeginRun records the start of a training or tuning run.
func (s *Store) BeginRun(id, kind, encoder string) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, kind, encoder, started_at) VALUES (?, ?, ?, ?)`,
		id, kind, encoder, time.Now().UTC(),
	)
	return err
}

// FinishRun stamps a run as finished with its best observed accuracy.
func (s *Store) FinishRun(id string, bestAccuracy float64) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, best_accuracy = ? WHERE id = ?`,
		time.Now().UTC(), bestAccuracy, id,
	)
	return err
}

// RecordRepeat stores one repeat's accuracy and artifact locations.
func (s *Store) RecordRepeat(runID string, repeat int, accuracy float64, checkpointPath, predictionsPath string) error {
	_, err := s.db.Exec(
		`INSERT INTO repeats (run_id, repeat_index, accuracy, checkpoint_path, predictions_path)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, repeat, accuracy, checkpointPath, predictionsPath,
	)
	return err
}

// RecordTrial stores one tuning trial's configuration and final metrics.
func (s *Store) RecordTrial(searchID string, trial int, configJSON string, finalLoss, finalAccuracy float64, status string) error {
	_, err := s.db.Exec(
		`INSERT INTO trials (search_id, trial_index, config_json, final_loss, final_accuracy, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		searchID, trial, configJSON, finalLoss, finalAccuracy, status,
	)
	return err
}

// RunIDs returns every recorded run identifier, oldest first.
func (s *Store) RunIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM runs ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RepeatCount returns how many repeats are recorded for a run.
func (s *Store) RepeatCount(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM repeats WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// TrialCount returns how many trials are recorded for a search.
func (s *Store) TrialCount(searchID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trials WHERE search_id = ?`, searchID).Scan(&n)
	return n, err
}
