package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bigsmall-bot/internal/ensemble"
	"bigsmall-bot/internal/signal"
)

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	dbPath := filepath.Join(tempDir, "bigsmall-data.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "nested")); err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestUpsertAndLoadPredictors(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	rows := []ensemble.Stats{
		{ID: "streak", Name: "streak", Weight: 1.8, Wins: 42, Losses: 30, EMAAccuracy: 0.58},
		{ID: "parity", Name: "parity", Weight: 0.4, Wins: 9, Losses: 21, EMAAccuracy: 0.31},
	}
	for _, row := range rows {
		if err := store.UpsertPredictor(row); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	loaded, err := store.LoadPredictors()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(loaded))
	}

	byID := make(map[string]ensemble.Stats)
	for _, row := range loaded {
		byID[row.ID] = row
	}
	got := byID["streak"]
	if got.Weight != 1.8 || got.Wins != 42 || got.Losses != 30 || got.EMAAccuracy != 0.58 {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestUpsertPredictor_Overwrites(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.UpsertPredictor(ensemble.Stats{ID: "streak", Weight: 1.0, Wins: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertPredictor(ensemble.Stats{ID: "streak", Weight: 2.5, Wins: 2}); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadPredictors()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected single row after upsert, got %d", len(loaded))
	}
	if loaded[0].Weight != 2.5 || loaded[0].Wins != 2 {
		t.Errorf("latest row not retained: %+v", loaded[0])
	}
}

func TestRecordAndQueryRounds(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		record := RoundRecord{
			Ts:         base.Add(time.Duration(i) * time.Minute),
			Predicted:  signal.Big,
			Actual:     signal.Small,
			Strategy:   "TOP_MODEL",
			Confidence: 68,
			Win:        false,
		}
		if err := store.RecordRound(record); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	got, err := store.RoundsBetween(base.Add(1*time.Minute), base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rounds in range, got %d", len(got))
	}
	if !got[0].Ts.Equal(base.Add(1 * time.Minute)) {
		t.Errorf("rounds not ordered by timestamp: %+v", got[0])
	}
}
