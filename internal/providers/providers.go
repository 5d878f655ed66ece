// Package providers contains the heuristic signal providers fed to the
// ensemble. Each provider is a stateless pattern check over the recent draw
// history; learning state lives in the ensemble's predictors, never here.
//
// Providers must accept histories of any length. When the history is too
// short for a pattern to be meaningful they return a neutral signal instead
// of an error.
package providers

import (
	"bigsmall-bot/internal/ensemble"
	"bigsmall-bot/internal/signal"
)

// Default returns the standard provider roster.
func Default() []ensemble.Provider {
	return []ensemble.Provider{
		Streak{},
		Alternation{},
		Distribution{Window: 30},
		MagnitudeTrend{},
		Parity{Window: 10},
		Fibonacci{},
		MinuteCycle{},
	}
}

// lowConfidence is the neutral signal variant providers emit when the
// history is too short to score their pattern.
func lowConfidence(id string) (signal.Signal, error) {
	return signal.Neutral(id), nil
}
