package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bigsmall-bot/internal/ensemble"
	"bigsmall-bot/internal/history"
	"bigsmall-bot/internal/signal"
	"bigsmall-bot/internal/storage"
)

type fixedProvider struct {
	id  string
	sig signal.Signal
}

func (f fixedProvider) ID() string { return f.id }

func (f fixedProvider) Analyze(_ []signal.Event) (signal.Signal, error) {
	return f.sig, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()

	ens := ensemble.New(ensemble.DefaultConfig(), []ensemble.Provider{
		fixedProvider{id: "a", sig: signal.Signal{Category: signal.Big, Confidence: 85, Patterns: []string{"trend"}, LogicID: "a"}},
		fixedProvider{id: "b", sig: signal.Signal{Category: signal.Small, Confidence: 60, Patterns: []string{"parity"}, LogicID: "b"}},
	})
	hist := history.New(50)
	for i := 0; i < 20; i++ {
		cat := signal.Big
		if i%2 == 0 {
			cat = signal.Small
		}
		hist.Push(signal.Event{Category: cat, Magnitude: i % 10, Ts: time.Now()})
	}
	return New(ens, hist, nil, nil, 0)
}

func TestHandlePredict(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/predict", nil)
	rec := httptest.NewRecorder()
	s.handlePredict(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var resp predictResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Unresolved {
		t.Error("expected resolved decision with populated roster")
	}
	if resp.Decision.Confidence < 65 {
		t.Errorf("confidence %v below floor", resp.Decision.Confidence)
	}
	if resp.HistoryLen != 20 {
		t.Errorf("history len = %d, want 20", resp.HistoryLen)
	}
}

func TestHandlePredict_MethodNotAllowed(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	rec := httptest.NewRecorder()
	s.handlePredict(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status %d, want 405", rec.Code)
	}
}

func TestHandleOutcome_SettlesTopModel(t *testing.T) {
	s := testServer(t)

	body, _ := json.Marshal(outcomeRequest{
		Actual:  signal.Big,
		Context: ensemble.Context{ConsecutiveLosses: 1},
		Decision: ensemble.Decision{
			Category:   signal.Big,
			Confidence: 85,
			Strategy:   ensemble.StrategyTopModel,
			Contributors: []ensemble.Contributor{
				{PredictorID: "a", Weight: 1.0, Category: signal.Big, Confidence: 85},
			},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/outcome", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleOutcome(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp outcomeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Win {
		t.Error("expected win for matching category")
	}
	if len(resp.Updated) != 1 || resp.Updated[0].ID != "a" || resp.Updated[0].Wins != 1 {
		t.Errorf("unexpected updated stats: %+v", resp.Updated)
	}
}

func TestHandleOutcome_SettlesConsensusAcrossContributors(t *testing.T) {
	s := testServer(t)

	body, _ := json.Marshal(outcomeRequest{
		Actual: signal.Small,
		Decision: ensemble.Decision{
			Category:   signal.Big,
			Confidence: 80,
			Strategy:   ensemble.StrategyConsensus,
			Contributors: []ensemble.Contributor{
				{PredictorID: "a", Weight: 1.0, Category: signal.Big, Confidence: 85},
				{PredictorID: "b", Weight: 1.0, Category: signal.Big, Confidence: 60},
			},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/outcome", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleOutcome(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp outcomeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Win {
		t.Error("expected loss for mismatched category")
	}
	if len(resp.Updated) != 2 {
		t.Fatalf("expected both contributors settled, got %d", len(resp.Updated))
	}
	for _, st := range resp.Updated {
		if st.Losses != 1 {
			t.Errorf("contributor %s not penalized: %+v", st.ID, st)
		}
	}
}

func TestHandleOutcome_BadRequests(t *testing.T) {
	s := testServer(t)

	testCases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"invalid actual", `{"actual":"MAYBE","decision":{"category":"BIG","contributors":[{"predictorId":"a"}]}}`},
		{"no contributors", `{"actual":"BIG","decision":{"category":"BIG","contributors":[]}}`},
		{"unknown sentinel", `{"actual":"BIG","decision":{"category":"UNKNOWN","contributors":[{"predictorId":"a"}]}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/outcome", bytes.NewReader([]byte(tc.body)))
			rec := httptest.NewRecorder()
			s.handleOutcome(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleOutcome_RecordsRound(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ens := ensemble.New(ensemble.DefaultConfig(), []ensemble.Provider{
		fixedProvider{id: "a", sig: signal.Signal{Category: signal.Big, Confidence: 85, LogicID: "a"}},
	})
	s := New(ens, history.New(10), store, nil, 0)

	body, _ := json.Marshal(outcomeRequest{
		Actual: signal.Big,
		Decision: ensemble.Decision{
			Category:   signal.Big,
			Confidence: 85,
			Strategy:   ensemble.StrategyTopModel,
			Contributors: []ensemble.Contributor{
				{PredictorID: "a", Weight: 1.0, Category: signal.Big, Confidence: 85},
			},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/outcome", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleOutcome(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	rounds, err := store.RoundsBetween(time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(rounds) != 1 || !rounds[0].Win {
		t.Errorf("round not recorded: %+v", rounds)
	}
}

func TestHandleSnapshot(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	rec := httptest.NewRecorder()
	s.handleSnapshot(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var snap []ensemble.Stats
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap) != 2 {
		t.Errorf("expected 2 predictors in snapshot, got %d", len(snap))
	}
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status %d, want 200", rec.Code)
	}
}
