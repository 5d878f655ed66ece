package providers

import (
	"bigsmall-bot/internal/signal"
)

// MinuteCycle checks whether draws landing in the same quarter of the
// minute as the upcoming one have leaned one way. A weak timing signal,
// mostly useful as an extra voter in consensus rounds.
type MinuteCycle struct{}

func (MinuteCycle) ID() string { return "minute-cycle" }

func (m MinuteCycle) Analyze(history []signal.Event) (signal.Signal, error) {
	if len(history) < 12 {
		return lowConfidence(m.ID())
	}

	bucket := quarter(history[0])
	big, total := 0, 0
	for _, e := range history[1:] {
		if quarter(e) != bucket {
			continue
		}
		total++
		if e.Category == signal.Big {
			big++
		}
	}
	if total < 3 {
		return lowConfidence(m.ID())
	}

	ratio := float64(big) / float64(total)
	if ratio > 0.4 && ratio < 0.6 {
		return lowConfidence(m.ID())
	}

	category := signal.Big
	skew := ratio - 0.5
	if skew < 0 {
		category = signal.Small
		skew = -skew
	}
	return signal.Signal{
		Category:   category,
		Confidence: 52 + skew*36,
		Patterns:   []string{"timing", "cycle"},
		LogicID:    m.ID(),
	}, nil
}

func quarter(e signal.Event) int {
	return e.Ts.Second() / 15
}
