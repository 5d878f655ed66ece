package ensemble

// Config carries every tunable of the ensemble core. The decision thresholds
// (gap, bias, agreement, overlap) are empirically chosen values kept
// configurable rather than derived.
type Config struct {
	MinWeight   float64
	MaxWeight   float64
	EMAAlpha    float64
	WeightDecay float64
	Lookback    int

	MinConfidence      float64
	GapThreshold       float64
	BiasUpper          float64
	BiasLower          float64
	AgreementThreshold float64
	OverlapThreshold   float64
	BiasWindow         int
}

func DefaultConfig() Config {
	return Config{
		MinWeight:          0.2,
		MaxWeight:          3.0,
		EMAAlpha:           0.05,
		WeightDecay:        0.999,
		Lookback:           200,
		MinConfidence:      65,
		GapThreshold:       15,
		BiasUpper:          0.6,
		BiasLower:          0.4,
		AgreementThreshold: 0.75,
		OverlapThreshold:   0.6,
		BiasWindow:         20,
	}
}

// Observer receives instrumentation callbacks from the core. All methods
// must be safe for concurrent use; a nil Observer disables instrumentation.
type Observer interface {
	DecisionInc(strategy string)
	DecisionConfidenceObserve(confidence float64)
	ProviderFaultInc()
	LearnUpdateInc()
	PredictorWeightSet(id string, weight float64)
	PersistenceErrorInc()
}

// Sink is the persistence hook for predictor state. Upserts are
// fire-and-forget from the core's point of view: a failing or absent sink
// never changes prediction semantics.
type Sink interface {
	UpsertPredictor(row Stats) error
}
