package ensemble

import "bigsmall-bot/internal/signal"

// Strategy names the decision path the coordinator took for a round.
type Strategy string

const (
	StrategyConsensus    Strategy = "CONSENSUS"
	StrategyTopModel     Strategy = "TOP_MODEL"
	StrategyFallbackBias Strategy = "FALLBACK_BIAS"
)

// Contributor records one predictor's stake in a decision, in the exact
// shape later consumed by credit assignment.
type Contributor struct {
	PredictorID string          `json:"predictorId"`
	Weight      float64         `json:"weight"`
	Category    signal.Category `json:"category"`
	Confidence  float64         `json:"confidence"`
}

// Decision is the coordinator's output for one round.
type Decision struct {
	Category     signal.Category `json:"category"`
	Confidence   float64         `json:"confidence"`
	Strategy     Strategy        `json:"strategy,omitempty"`
	Patterns     []string        `json:"patterns,omitempty"`
	Contributors []Contributor   `json:"contributors"`
}

// Unresolved reports whether this is the sentinel decision produced for an
// empty roster. Callers must check it before acting on the category.
func (d Decision) Unresolved() bool {
	return d.Category == signal.Unknown
}

// Context carries round bookkeeping supplied by the caller when settling an
// outcome. ConsecutiveLosses drives the learning-rate boost.
type Context struct {
	ConsecutiveLosses int             `json:"consecutiveLosses"`
	LastKnownCategory signal.Category `json:"lastKnownCategory,omitempty"`
}
