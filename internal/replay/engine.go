// Package replay runs the ensemble over historical draw data in walk-forward
// fashion: each draw is predicted from the history before it, settled against
// the real outcome, and fed back into the learners. It answers how a given
// provider roster and configuration would have performed.
package replay

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"bigsmall-bot/internal/ensemble"
	"bigsmall-bot/internal/history"
	"bigsmall-bot/internal/signal"
)

// Round is one settled replay step.
type Round struct {
	Ts         time.Time         `json:"ts"`
	Predicted  signal.Category   `json:"predicted"`
	Actual     signal.Category   `json:"actual"`
	Strategy   ensemble.Strategy `json:"strategy"`
	Confidence float64           `json:"confidence"`
	Win        bool              `json:"win"`
}

// StrategyStats aggregates outcomes per decision strategy.
type StrategyStats struct {
	Rounds  int     `json:"rounds"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"winRate"`
}

// Results holds the full outcome of a replay run.
type Results struct {
	Rounds        []Round                   `json:"rounds"`
	TotalRounds   int                       `json:"totalRounds"`
	Wins          int                       `json:"wins"`
	Losses        int                       `json:"losses"`
	WinRate       float64                   `json:"winRate"`
	MaxLossStreak int                       `json:"maxLossStreak"`
	ByStrategy    map[string]*StrategyStats `json:"byStrategy"`
	Predictors    []ensemble.Stats          `json:"predictors"`
	StartTime     time.Time                 `json:"startTime"`
	EndTime       time.Time                 `json:"endTime"`
}

// Engine drives a walk-forward replay.
type Engine struct {
	ens    *ensemble.Ensemble
	warmup int
}

// NewEngine creates a replay engine. warmup is the number of draws consumed
// as history before the first prediction is made.
func NewEngine(ens *ensemble.Ensemble, warmup int) *Engine {
	if warmup < 1 {
		warmup = 1
	}
	return &Engine{ens: ens, warmup: warmup}
}

// Run replays draws (oldest first) through the ensemble and returns the
// aggregated results. Draws that arrive before the warmup window fills only
// extend the history.
func (e *Engine) Run(draws []signal.Event, historySize int) (*Results, error) {
	if len(draws) <= e.warmup {
		return nil, fmt.Errorf("need more than %d draws, got %d", e.warmup, len(draws))
	}

	log.Info().
		Int("draws", len(draws)).
		Int("warmup", e.warmup).
		Msg("replay started")

	hist := history.New(historySize)
	results := &Results{
		ByStrategy: make(map[string]*StrategyStats),
		StartTime:  draws[0].Ts,
		EndTime:    draws[len(draws)-1].Ts,
	}

	lossStreak := 0
	for _, draw := range draws {
		if hist.Len() >= e.warmup {
			e.step(hist, draw, results, &lossStreak)
		}
		hist.Push(draw)
	}

	results.TotalRounds = len(results.Rounds)
	results.Losses = results.TotalRounds - results.Wins
	if results.TotalRounds > 0 {
		results.WinRate = float64(results.Wins) / float64(results.TotalRounds)
	}
	for _, st := range results.ByStrategy {
		if st.Rounds > 0 {
			st.WinRate = float64(st.Wins) / float64(st.Rounds)
		}
	}
	results.Predictors = e.ens.Snapshot()

	log.Info().
		Int("rounds", results.TotalRounds).
		Float64("win_rate", results.WinRate).
		Int("max_loss_streak", results.MaxLossStreak).
		Msg("replay finished")
	return results, nil
}

func (e *Engine) step(hist *history.Buffer, draw signal.Event, results *Results, lossStreak *int) {
	decision := e.ens.Predict(hist.All())
	if decision.Unresolved() {
		return
	}

	win := decision.Category == draw.Category
	rctx := ensemble.Context{ConsecutiveLosses: *lossStreak}
	if decision.Strategy == ensemble.StrategyConsensus {
		e.ens.LearnMultiple(decision.Contributors, win, rctx)
	} else if len(decision.Contributors) > 0 {
		e.ens.Learn(decision.Contributors[0].PredictorID, win, rctx)
	}

	if win {
		*lossStreak = 0
	} else {
		*lossStreak++
		if *lossStreak > results.MaxLossStreak {
			results.MaxLossStreak = *lossStreak
		}
	}
	if win {
		results.Wins++
	}

	key := string(decision.Strategy)
	st := results.ByStrategy[key]
	if st == nil {
		st = &StrategyStats{}
		results.ByStrategy[key] = st
	}
	st.Rounds++
	if win {
		st.Wins++
	}

	results.Rounds = append(results.Rounds, Round{
		Ts:         draw.Ts,
		Predicted:  decision.Category,
		Actual:     draw.Category,
		Strategy:   decision.Strategy,
		Confidence: decision.Confidence,
		Win:        win,
	})
}
