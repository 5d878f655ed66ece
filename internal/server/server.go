// Package server exposes the ensemble over a small JSON HTTP API: run a
// prediction round, settle an outcome, and inspect predictor state. All I/O
// timeouts live here; the ensemble core itself is timeout-free.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"bigsmall-bot/internal/ensemble"
	"bigsmall-bot/internal/history"
	"bigsmall-bot/internal/signal"
	"bigsmall-bot/internal/storage"
)

// RoundRecorder logs settled rounds for diagnostics. Optional.
type RoundRecorder interface {
	RecordRound(storage.RoundRecord) error
}

// Observer receives request instrumentation. Optional.
type Observer interface {
	RoundLatencyObserve(seconds float64)
}

// Server serves the prediction API.
type Server struct {
	ens      *ensemble.Ensemble
	hist     *history.Buffer
	recorder RoundRecorder
	metrics  Observer
	srv      *http.Server
}

func New(ens *ensemble.Ensemble, hist *history.Buffer, recorder RoundRecorder, metrics Observer, port int) *Server {
	s := &Server{
		ens:      ens,
		hist:     hist,
		recorder: recorder,
		metrics:  metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/outcome", s.handleOutcome)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("prediction API listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type predictResponse struct {
	Decision   ensemble.Decision `json:"decision"`
	Unresolved bool              `json:"unresolved"`
	HistoryLen int               `json:"historyLen"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	events := s.hist.All()
	decision := s.ens.Predict(events)
	if s.metrics != nil {
		s.metrics.RoundLatencyObserve(time.Since(start).Seconds())
	}

	writeJSON(w, predictResponse{
		Decision:   decision,
		Unresolved: decision.Unresolved(),
		HistoryLen: len(events),
		Timestamp:  time.Now(),
	})
}

type outcomeRequest struct {
	Actual   signal.Category   `json:"actual"`
	Context  ensemble.Context  `json:"context"`
	Decision ensemble.Decision `json:"decision"`
}

type outcomeResponse struct {
	Win     bool             `json:"win"`
	Updated []ensemble.Stats `json:"updated"`
}

// handleOutcome settles a previously returned decision against the actual
// draw result. Consensus decisions distribute credit across all
// contributors; other strategies credit only the top contributor.
func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if !req.Actual.Valid() {
		http.Error(w, "actual must be BIG or SMALL", http.StatusBadRequest)
		return
	}
	if req.Decision.Unresolved() || len(req.Decision.Contributors) == 0 {
		http.Error(w, "decision has no contributors to settle", http.StatusBadRequest)
		return
	}

	win := req.Decision.Category == req.Actual

	var updated []ensemble.Stats
	if req.Decision.Strategy == ensemble.StrategyConsensus {
		updated = s.ens.LearnMultiple(req.Decision.Contributors, win, req.Context)
	} else {
		if st, ok := s.ens.Learn(req.Decision.Contributors[0].PredictorID, win, req.Context); ok {
			updated = []ensemble.Stats{st}
		}
	}

	if s.recorder != nil {
		record := storage.RoundRecord{
			Ts:         time.Now(),
			Predicted:  req.Decision.Category,
			Actual:     req.Actual,
			Strategy:   string(req.Decision.Strategy),
			Confidence: req.Decision.Confidence,
			Win:        win,
		}
		if err := s.recorder.RecordRound(record); err != nil {
			log.Warn().Err(err).Msg("round record failed")
		}
	}

	writeJSON(w, outcomeResponse{Win: win, Updated: updated})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.ens.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}
