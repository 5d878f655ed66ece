package providers

import (
	"math"

	"bigsmall-bot/internal/signal"
)

// MagnitudeTrend compares the mean draw number of the newest five events
// against the five before them and follows the drift.
type MagnitudeTrend struct{}

func (MagnitudeTrend) ID() string { return "magnitude-trend" }

func (m MagnitudeTrend) Analyze(history []signal.Event) (signal.Signal, error) {
	if len(history) < 10 {
		return lowConfidence(m.ID())
	}

	recent := meanMagnitude(history[:5])
	prior := meanMagnitude(history[5:10])
	drift := recent - prior
	if math.Abs(drift) < 1.0 {
		return lowConfidence(m.ID())
	}

	category := signal.Big
	if drift < 0 {
		category = signal.Small
	}
	conf := 55 + math.Tanh(math.Abs(drift)/3)*25
	return signal.Signal{
		Category:   category,
		Confidence: conf,
		Patterns:   []string{"magnitude", "trend"},
		LogicID:    m.ID(),
	}, nil
}

func meanMagnitude(events []signal.Event) float64 {
	if len(events) == 0 {
		return 0
	}
	sum := 0
	for _, e := range events {
		sum += e.Magnitude
	}
	return float64(sum) / float64(len(events))
}
