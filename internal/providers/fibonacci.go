package providers

import (
	"bigsmall-bot/internal/signal"
)

// fibPositions are the history offsets sampled by the Fibonacci provider.
var fibPositions = []int{1, 2, 3, 5, 8, 13}

// Fibonacci samples the history at Fibonacci offsets and votes with the
// majority category found there.
type Fibonacci struct{}

func (Fibonacci) ID() string { return "fibonacci" }

func (f Fibonacci) Analyze(history []signal.Event) (signal.Signal, error) {
	if len(history) <= fibPositions[len(fibPositions)-1] {
		return lowConfidence(f.ID())
	}

	big := 0
	for _, pos := range fibPositions {
		if history[pos].Category == signal.Big {
			big++
		}
	}
	small := len(fibPositions) - big
	if big == small {
		return lowConfidence(f.ID())
	}

	category := signal.Big
	majority := big
	if small > big {
		category = signal.Small
		majority = small
	}
	conf := 50 + float64(majority)/float64(len(fibPositions))*25
	return signal.Signal{
		Category:   category,
		Confidence: conf,
		Patterns:   []string{"fibonacci"},
		LogicID:    f.ID(),
	}, nil
}
