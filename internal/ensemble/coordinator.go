// Package ensemble implements the adaptive prediction core: a roster of
// stateful predictors wrapping heuristic providers, a consensus analyzer, a
// coordinator that picks a decision strategy per round, and proportional
// credit assignment that feeds observed outcomes back into per-predictor
// weights.
package ensemble

import (
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"bigsmall-bot/internal/signal"
)

// Ensemble coordinates the predictor roster. One instance is constructed at
// process start and shared by all callers; rounds and learning updates are
// serialized by mu so every round observes a consistent snapshot of all
// predictor weights.
type Ensemble struct {
	mu         sync.Mutex
	cfg        Config
	predictors []*Predictor
	byID       map[string]*Predictor
	sink       Sink
	metrics    Observer
}

// Option configures optional collaborators of the ensemble.
type Option func(*Ensemble)

// WithSink attaches a persistence hook for predictor state. Absence of the
// hook does not change prediction semantics.
func WithSink(s Sink) Option {
	return func(e *Ensemble) { e.sink = s }
}

// WithObserver attaches instrumentation.
func WithObserver(o Observer) Option {
	return func(e *Ensemble) { e.metrics = o }
}

// New builds an ensemble over the given providers. Predictors start with
// default state (weight 1.0, EMA accuracy 0.5) and live for the lifetime of
// the ensemble.
func New(cfg Config, providers []Provider, opts ...Option) *Ensemble {
	e := &Ensemble{
		cfg:  cfg,
		byID: make(map[string]*Predictor, len(providers)),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, p := range providers {
		if _, dup := e.byID[p.ID()]; dup {
			log.Warn().Str("predictor", p.ID()).Msg("duplicate provider id, skipping")
			continue
		}
		pred := newPredictor(p, cfg, e.metrics)
		e.predictors = append(e.predictors, pred)
		e.byID[pred.id] = pred
	}
	return e
}

// Restore bulk-loads persisted predictor state at startup. Rows for unknown
// predictor ids are ignored; missing rows leave the defaults in place.
func (e *Ensemble) Restore(rows []Stats) {
	e.mu.Lock()
	defer e.mu.Unlock()

	restored := 0
	for _, row := range rows {
		p, ok := e.byID[row.ID]
		if !ok {
			continue
		}
		p.restore(row)
		restored++
	}
	log.Info().Int("restored", restored).Int("roster", len(e.predictors)).Msg("predictor state restored")
}

// Predict runs one round: every predictor produces a signal, the consensus
// analyzer scores the set and the coordinator picks a strategy. An empty
// roster yields the UNKNOWN sentinel decision.
func (e *Ensemble) Predict(history []signal.Event) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.predictors) == 0 {
		return e.emit(Decision{
			Category:     signal.Unknown,
			Confidence:   e.cfg.MinConfidence,
			Contributors: []Contributor{},
		})
	}

	rows := make([]scoredSignal, 0, len(e.predictors))
	for _, p := range e.predictors {
		sig := p.Predict(history)
		weight, ema := p.state()
		rows = append(rows, scoredSignal{
			predictor: p,
			sig:       sig,
			score:     sig.Confidence * weight,
			weight:    weight,
			ema:       ema,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].score > rows[j].score })

	patterns := collectPatterns(rows)

	if len(rows) == 1 {
		top := rows[0]
		return e.emit(Decision{
			Category:     top.sig.Category,
			Confidence:   top.sig.Confidence,
			Strategy:     StrategyTopModel,
			Patterns:     patterns,
			Contributors: []Contributor{contributorOf(top)},
		})
	}

	majority, agreement := majorityVote(rows)
	overlap := patternOverlap(rows)

	if agreement > e.cfg.AgreementThreshold && overlap > e.cfg.OverlapThreshold {
		contributors := make([]Contributor, 0, len(rows))
		for _, r := range rows {
			c := contributorOf(r)
			c.Weight = r.weight * reliability(r.weight, r.ema)
			contributors = append(contributors, c)
		}
		return e.emit(Decision{
			Category:     majority,
			Confidence:   enhancedConfidence(rows, majority, agreement, overlap),
			Strategy:     StrategyConsensus,
			Patterns:     patterns,
			Contributors: contributors,
		})
	}

	top := rows[0]
	gap := rows[0].score - rows[1].score
	if gap >= e.cfg.GapThreshold {
		return e.emit(Decision{
			Category:     top.sig.Category,
			Confidence:   top.sig.Confidence,
			Strategy:     StrategyTopModel,
			Patterns:     patterns,
			Contributors: []Contributor{contributorOf(top)},
		})
	}

	// Scores too close to trust the leader outright: consult the recent
	// outcome bias before falling back to the penalized top signal.
	bias := bigBias(history, e.cfg.BiasWindow)
	switch {
	case bias > e.cfg.BiasUpper:
		return e.emit(Decision{
			Category:     signal.Big,
			Confidence:   math.Max(55, math.Round(top.sig.Confidence-10)),
			Strategy:     StrategyFallbackBias,
			Patterns:     patterns,
			Contributors: []Contributor{contributorOf(top)},
		})
	case bias < e.cfg.BiasLower:
		return e.emit(Decision{
			Category:     signal.Small,
			Confidence:   math.Max(55, math.Round(top.sig.Confidence-10)),
			Strategy:     StrategyFallbackBias,
			Patterns:     patterns,
			Contributors: []Contributor{contributorOf(top)},
		})
	default:
		return e.emit(Decision{
			Category:     top.sig.Category,
			Confidence:   math.Max(50, math.Round(top.sig.Confidence-12)),
			Strategy:     StrategyTopModel,
			Patterns:     patterns,
			Contributors: []Contributor{contributorOf(top)},
		})
	}
}

// emit applies the global confidence floor and records instrumentation.
// The floor only ever raises a confidence, never lowers it.
func (e *Ensemble) emit(d Decision) Decision {
	if d.Confidence < e.cfg.MinConfidence {
		d.Confidence = e.cfg.MinConfidence
	}
	if e.metrics != nil {
		e.metrics.DecisionInc(string(d.Strategy))
		e.metrics.DecisionConfidenceObserve(d.Confidence)
	}
	return d
}

// Learn settles a single-predictor round. An unknown id is silently skipped
// since the roster may have changed between decision and outcome.
func (e *Ensemble) Learn(id string, wasWin bool, rctx Context) (Stats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.byID[id]
	if !ok {
		log.Debug().Str("predictor", id).Msg("learn for unknown predictor, skipping")
		return Stats{}, false
	}
	st := p.Learn(wasWin, baseLearningRate(rctx))
	e.persist(st)
	return st, true
}

// LearnMultiple settles a consensus round, splitting the learning signal
// across contributors proportionally to their weight*confidence share.
// Every contributor receives at least 20% of the base rate.
func (e *Ensemble) LearnMultiple(contributors []Contributor, wasWin bool, rctx Context) []Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := baseLearningRate(rctx)
	shares := creditShares(contributors)

	updated := make([]Stats, 0, len(contributors))
	for i, c := range contributors {
		p, ok := e.byID[c.PredictorID]
		if !ok {
			log.Debug().Str("predictor", c.PredictorID).Msg("learn for unknown contributor, skipping")
			continue
		}
		st := p.Learn(wasWin, base*(0.2+0.8*shares[i]))
		e.persist(st)
		updated = append(updated, st)
	}
	return updated
}

// Snapshot returns the observable state of every predictor in roster order.
func (e *Ensemble) Snapshot() []Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Stats, 0, len(e.predictors))
	for _, p := range e.predictors {
		out = append(out, p.Stats())
	}
	return out
}

// persist hands the updated row to the sink without blocking the learning
// path. Failures are logged and counted, never retried, and never touch
// in-memory state.
func (e *Ensemble) persist(st Stats) {
	if e.sink == nil {
		return
	}
	go func() {
		if err := e.sink.UpsertPredictor(st); err != nil {
			log.Warn().Err(err).Str("predictor", st.ID).Msg("predictor state upsert failed")
			if e.metrics != nil {
				e.metrics.PersistenceErrorInc()
			}
		}
	}()
}

func contributorOf(r scoredSignal) Contributor {
	return Contributor{
		PredictorID: r.predictor.id,
		Weight:      r.weight,
		Category:    r.sig.Category,
		Confidence:  r.sig.Confidence,
	}
}

// collectPatterns gathers every pattern tag observed this round, first
// occurrence order, deduplicated.
func collectPatterns(rows []scoredSignal) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		for _, tag := range r.sig.Patterns {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// bigBias returns the fraction of BIG outcomes among the window most recent
// events; an empty history is treated as perfectly balanced.
func bigBias(history []signal.Event, window int) float64 {
	if window > len(history) {
		window = len(history)
	}
	if window == 0 {
		return 0.5
	}
	big := 0
	for _, e := range history[:window] {
		if e.Category == signal.Big {
			big++
		}
	}
	return float64(big) / float64(window)
}
