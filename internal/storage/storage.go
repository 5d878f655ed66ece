// Package storage provides persistent state for the prediction service.
// It uses BoltDB as the underlying storage engine to store per-predictor
// learning state and a log of settled rounds.
//
// Persistence is advisory: the ensemble stays correct with storage entirely
// absent, so every operation here is best-effort from the core's view.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"bigsmall-bot/internal/ensemble"
	"bigsmall-bot/internal/signal"
)

const (
	predictorsBucket = "predictors" // one row per predictor id
	roundsBucket     = "rounds"     // settled rounds keyed by timestamp
)

// predictorRow is the persisted shape of ensemble.Stats plus bookkeeping.
type predictorRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Weight      float64   `json:"weight"`
	Wins        int64     `json:"wins"`
	Losses      int64     `json:"losses"`
	EMAAccuracy float64   `json:"emaAccuracy"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoundRecord is one settled round, retained for diagnostics and backtests.
type RoundRecord struct {
	Ts         time.Time       `json:"ts"`
	Predicted  signal.Category `json:"predicted"`
	Actual     signal.Category `json:"actual"`
	Strategy   string          `json:"strategy"`
	Confidence float64         `json:"confidence"`
	Win        bool            `json:"win"`
}

// Store persists predictor state and round history using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database under dataPath and ensures all
// buckets exist.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "bigsmall-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictorsBucket)); err != nil {
			return fmt.Errorf("create predictors bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(roundsBucket)); err != nil {
			return fmt.Errorf("create rounds bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// UpsertPredictor writes one predictor's learning state, keyed by id.
// It implements the ensemble's persistence hook.
func (s *Store) UpsertPredictor(st ensemble.Stats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictorsBucket))

		row := predictorRow{
			ID:          st.ID,
			Name:        st.Name,
			Weight:      st.Weight,
			Wins:        st.Wins,
			Losses:      st.Losses,
			EMAAccuracy: st.EMAAccuracy,
			UpdatedAt:   time.Now(),
		}
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal predictor row: %w", err)
		}
		return b.Put([]byte(st.ID), data)
	})
}

// LoadPredictors returns every persisted predictor row for startup restore.
// Malformed rows are skipped.
func (s *Store) LoadPredictors() ([]ensemble.Stats, error) {
	var rows []ensemble.Stats

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictorsBucket))
		return b.ForEach(func(_, v []byte) error {
			var row predictorRow
			if err := json.Unmarshal(v, &row); err != nil {
				return nil // skip malformed rows
			}
			rows = append(rows, ensemble.Stats{
				ID:          row.ID,
				Name:        row.Name,
				Weight:      row.Weight,
				Wins:        row.Wins,
				Losses:      row.Losses,
				EMAAccuracy: row.EMAAccuracy,
			})
			return nil
		})
	})
	return rows, err
}

// RecordRound appends a settled round, keyed by its timestamp for efficient
// range scans.
func (s *Store) RecordRound(r RoundRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(roundsBucket))

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal round: %w", err)
		}
		key := fmt.Sprintf("%020d", r.Ts.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// RoundsBetween retrieves settled rounds within the inclusive time range.
func (s *Store) RoundsBetween(start, end time.Time) ([]RoundRecord, error) {
	var records []RoundRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(roundsBucket))
		c := b.Cursor()

		startKey := []byte(fmt.Sprintf("%020d", start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%020d", end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && string(k) <= string(endKey); k, v = c.Next() {
			var r RoundRecord
			if err := json.Unmarshal(v, &r); err != nil {
				continue // skip malformed records
			}
			records = append(records, r)
		}
		return nil
	})
	return records, err
}
