package providers

import (
	"bigsmall-bot/internal/signal"
)

// Streak scores consecutive runs of one category. Short runs tend to
// continue, long runs are bet against.
type Streak struct{}

func (Streak) ID() string { return "streak" }

func (s Streak) Analyze(history []signal.Event) (signal.Signal, error) {
	if len(history) < 2 {
		return lowConfidence(s.ID())
	}

	current := history[0].Category
	run := 1
	for _, e := range history[1:] {
		if e.Category != current {
			break
		}
		run++
	}
	if run < 2 {
		return lowConfidence(s.ID())
	}

	conf := 55 + float64(run)*5
	if conf > 85 {
		conf = 85
	}

	if run >= 4 {
		// Runs this long break more often than they extend.
		return signal.Signal{
			Category:   current.Opposite(),
			Confidence: conf,
			Patterns:   []string{"streak", "streak-break"},
			LogicID:    s.ID(),
		}, nil
	}
	return signal.Signal{
		Category:   current,
		Confidence: conf,
		Patterns:   []string{"streak", "streak-follow"},
		LogicID:    s.ID(),
	}, nil
}

// Alternation detects strict zigzag sequences and predicts their
// continuation.
type Alternation struct{}

func (Alternation) ID() string { return "alternation" }

func (a Alternation) Analyze(history []signal.Event) (signal.Signal, error) {
	if len(history) < 4 {
		return lowConfidence(a.ID())
	}

	flips := 0
	for i := 0; i+1 < len(history) && i < 6; i++ {
		if history[i].Category == history[i+1].Category {
			break
		}
		flips++
	}
	if flips < 3 {
		return lowConfidence(a.ID())
	}

	conf := 55 + float64(flips)*6
	if conf > 88 {
		conf = 88
	}
	return signal.Signal{
		Category:   history[0].Category.Opposite(),
		Confidence: conf,
		Patterns:   []string{"alternation", "zigzag"},
		LogicID:    a.ID(),
	}, nil
}
