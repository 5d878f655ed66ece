// Package signal defines the shared data types exchanged between the draw
// feed, the heuristic providers and the ensemble core: historical events,
// raw prediction signals and the category vocabulary.
package signal

import (
	"math"
	"time"
)

// Category is the binary outcome of a draw.
type Category string

const (
	Big     Category = "BIG"
	Small   Category = "SMALL"
	Unknown Category = "UNKNOWN"
)

// Valid reports whether c is one of the two predictable outcomes.
func (c Category) Valid() bool {
	return c == Big || c == Small
}

// Opposite returns the other predictable category. Unknown maps to itself.
func (c Category) Opposite() Category {
	switch c {
	case Big:
		return Small
	case Small:
		return Big
	}
	return Unknown
}

// CategoryOf maps a draw number in [0,9] to its category.
func CategoryOf(magnitude int) Category {
	if magnitude >= 5 {
		return Big
	}
	return Small
}

// Event is one recorded draw outcome. Events are immutable once recorded
// and are always consumed most-recent-first.
type Event struct {
	Category  Category  `json:"category"`
	Magnitude int       `json:"magnitude"` // 0..9
	Ts        time.Time `json:"ts"`
}

// Signal is the raw output of one provider for one round. It is ephemeral:
// the ensemble never persists it.
type Signal struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"` // 0..100
	Patterns   []string `json:"patterns,omitempty"`
	LogicID    string   `json:"logicId"`
}

// Neutral is the documented fallback signal substituted whenever a provider
// fails or its input is insufficient.
func Neutral(logicID string) Signal {
	return Signal{Category: Big, Confidence: 50, LogicID: logicID}
}

// Sanitize validates a provider signal at the predictor boundary so that
// malformed shapes never reach the coordinator. An invalid category or a
// non-finite confidence degrades the whole signal to neutral; an out-of-range
// confidence is clamped.
func Sanitize(s Signal, logicID string) Signal {
	if !s.Category.Valid() {
		return Neutral(logicID)
	}
	if math.IsNaN(s.Confidence) || math.IsInf(s.Confidence, 0) {
		return Neutral(logicID)
	}
	if s.Confidence < 0 {
		s.Confidence = 0
	} else if s.Confidence > 100 {
		s.Confidence = 100
	}
	if s.LogicID == "" {
		s.LogicID = logicID
	}
	return s
}
