package providers

import (
	"math"

	"bigsmall-bot/internal/signal"
)

// Distribution compares category frequencies over a window and bets on
// reversion when one side is heavily overrepresented.
type Distribution struct {
	Window int
}

func (Distribution) ID() string { return "distribution" }

func (d Distribution) Analyze(history []signal.Event) (signal.Signal, error) {
	window := d.Window
	if window <= 0 {
		window = 30
	}
	if len(history) < window/2 {
		return lowConfidence(d.ID())
	}
	if window > len(history) {
		window = len(history)
	}

	big := 0
	for _, e := range history[:window] {
		if e.Category == signal.Big {
			big++
		}
	}
	ratio := float64(big) / float64(window)
	skew := math.Abs(ratio - 0.5)
	if skew < 0.15 {
		return lowConfidence(d.ID())
	}

	// The overrepresented side is bet against.
	category := signal.Small
	if ratio < 0.5 {
		category = signal.Big
	}
	conf := 55 + math.Tanh(skew*4)*30
	return signal.Signal{
		Category:   category,
		Confidence: conf,
		Patterns:   []string{"distribution", "reversion"},
		LogicID:    d.ID(),
	}, nil
}

// Parity tracks the odd/even balance of recent draw magnitudes. Odd-heavy
// stretches correlate with the upper half of the number range in this
// game's draw table, so the signal is weak but directional.
type Parity struct {
	Window int
}

func (Parity) ID() string { return "parity" }

func (p Parity) Analyze(history []signal.Event) (signal.Signal, error) {
	window := p.Window
	if window <= 0 {
		window = 10
	}
	if len(history) < window {
		return lowConfidence(p.ID())
	}

	odd := 0
	for _, e := range history[:window] {
		if e.Magnitude%2 == 1 {
			odd++
		}
	}
	ratio := float64(odd) / float64(window)
	skew := math.Abs(ratio - 0.5)
	if skew < 0.2 {
		return lowConfidence(p.ID())
	}

	category := signal.Big
	if ratio < 0.5 {
		category = signal.Small
	}
	return signal.Signal{
		Category:   category,
		Confidence: 52 + skew*40,
		Patterns:   []string{"parity"},
		LogicID:    p.ID(),
	}, nil
}
