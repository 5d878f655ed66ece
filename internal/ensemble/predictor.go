package ensemble

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"bigsmall-bot/internal/signal"
)

// Provider is a stateless heuristic that maps an ordered event history
// (most-recent-first) to a raw prediction signal. Implementations must
// accept a history of any length, including empty, and should return a
// neutral signal rather than an error when the input is insufficient.
type Provider interface {
	ID() string
	Analyze(history []signal.Event) (signal.Signal, error)
}

// Stats is an observable snapshot of one predictor's learning state. It is
// also the row shape handed to the persistence hook.
type Stats struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Wins        int64   `json:"wins"`
	Losses      int64   `json:"losses"`
	EMAAccuracy float64 `json:"emaAccuracy"`
}

// Predictor wraps one provider with its adaptive learning state. All mutable
// fields are guarded by mu so a predict round never observes a half-applied
// weight update.
type Predictor struct {
	mu       sync.RWMutex
	id       string
	name     string
	provider Provider
	metrics  Observer

	weight      float64
	wins        int64
	losses      int64
	emaAccuracy float64
	outcomes    []bool // bounded FIFO of recent results, oldest first

	minWeight   float64
	maxWeight   float64
	emaAlpha    float64
	weightDecay float64
	lookback    int
}

func newPredictor(p Provider, cfg Config, metrics Observer) *Predictor {
	return &Predictor{
		id:          p.ID(),
		name:        p.ID(),
		provider:    p,
		metrics:     metrics,
		weight:      1.0,
		emaAccuracy: 0.5,
		minWeight:   cfg.MinWeight,
		maxWeight:   cfg.MaxWeight,
		emaAlpha:    cfg.EMAAlpha,
		weightDecay: cfg.WeightDecay,
		lookback:    cfg.Lookback,
	}
}

// Predict runs the underlying provider against the given history. A provider
// error, panic or malformed result degrades to the neutral signal; no fault
// ever reaches the coordinator.
func (p *Predictor) Predict(history []signal.Event) (sig signal.Signal) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("predictor", p.id).Interface("panic", r).Msg("provider panicked, substituting neutral signal")
			if p.metrics != nil {
				p.metrics.ProviderFaultInc()
			}
			sig = signal.Neutral(p.id)
		}
	}()

	raw, err := p.provider.Analyze(history)
	if err != nil {
		log.Debug().Str("predictor", p.id).Err(err).Msg("provider failed, substituting neutral signal")
		if p.metrics != nil {
			p.metrics.ProviderFaultInc()
		}
		return signal.Neutral(p.id)
	}
	return signal.Sanitize(raw, p.id)
}

// Learn applies one observed outcome to the predictor's state. The update
// order is fixed: outcome FIFO, win/loss counter, instantaneous accuracy,
// EMA accuracy, then the bounded multiplicative weight update
//
//	weight = clamp(weight*decay^lr + (1+delta)*lr, minWeight, maxWeight)
//
// where delta = (emaAccuracy-0.5)*0.5. The decay term keeps long win streaks
// from growing the weight without bound while the additive term rewards
// predictors whose long-run accuracy exceeds chance.
func (p *Predictor) Learn(wasWin bool, lr float64) Stats {
	if lr == 0 {
		lr = 1.0
	} else if lr < 0.1 {
		lr = 0.1
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.outcomes = append(p.outcomes, wasWin)
	if len(p.outcomes) > p.lookback {
		p.outcomes = p.outcomes[1:]
	}

	if wasWin {
		p.wins++
	} else {
		p.losses++
	}

	instant := float64(p.wins) / float64(p.wins+p.losses)
	p.emaAccuracy = p.emaAccuracy*(1-p.emaAlpha) + instant*p.emaAlpha

	advantage := p.emaAccuracy - 0.5
	delta := advantage * 0.5
	p.weight = clamp(p.weight*math.Pow(p.weightDecay, lr)+(1+delta)*lr, p.minWeight, p.maxWeight)

	if p.metrics != nil {
		p.metrics.LearnUpdateInc()
		p.metrics.PredictorWeightSet(p.id, p.weight)
	}

	return p.statsLocked()
}

// Stats returns a consistent snapshot of the predictor's learning state.
func (p *Predictor) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statsLocked()
}

func (p *Predictor) statsLocked() Stats {
	return Stats{
		ID:          p.id,
		Name:        p.name,
		Weight:      p.weight,
		Wins:        p.wins,
		Losses:      p.losses,
		EMAAccuracy: p.emaAccuracy,
	}
}

// restore overwrites the learning state from a persisted row, clamping the
// values back into their invariant ranges. Used once at startup.
func (p *Predictor) restore(row Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.weight = clamp(row.Weight, p.minWeight, p.maxWeight)
	p.emaAccuracy = clamp(row.EMAAccuracy, 0, 1)
	if row.Wins >= 0 {
		p.wins = row.Wins
	}
	if row.Losses >= 0 {
		p.losses = row.Losses
	}
	if row.Name != "" {
		p.name = row.Name
	}
}

// state reads the fields the coordinator needs to score a round.
func (p *Predictor) state() (weight, emaAccuracy float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.weight, p.emaAccuracy
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
