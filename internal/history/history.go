// Package history keeps a bounded, thread-safe window of recent draw events,
// ordered most-recent-first for consumption by the ensemble and its providers.
package history

import (
	"sync"

	"bigsmall-bot/internal/signal"
)

// Buffer is a fixed-capacity event window. Push is called by the feed
// goroutine while the ensemble reads consistent snapshots, so all access
// is guarded by a RWMutex.
type Buffer struct {
	mu     sync.RWMutex
	max    int
	events []signal.Event // index 0 is the most recent
}

func New(max int) *Buffer {
	if max <= 0 {
		max = 1
	}
	return &Buffer{max: max, events: make([]signal.Event, 0, max)}
}

// Push records a new event as the most recent one, evicting the oldest
// when the buffer is full.
func (b *Buffer) Push(e signal.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) < b.max {
		b.events = append(b.events, signal.Event{})
	}
	copy(b.events[1:], b.events)
	b.events[0] = e
}

// Recent returns a copy of up to n most recent events, newest first.
func (b *Buffer) Recent(n int) []signal.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > len(b.events) {
		n = len(b.events)
	}
	out := make([]signal.Event, n)
	copy(out, b.events[:n])
	return out
}

// All returns a copy of the full window, newest first.
func (b *Buffer) All() []signal.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]signal.Event, len(b.events))
	copy(out, b.events)
	return out
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// BigBias returns the fraction of BIG outcomes among the n most recent
// events. An empty window reports a neutral 0.5.
func (b *Buffer) BigBias(n int) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > len(b.events) {
		n = len(b.events)
	}
	if n == 0 {
		return 0.5
	}
	big := 0
	for _, e := range b.events[:n] {
		if e.Category == signal.Big {
			big++
		}
	}
	return float64(big) / float64(n)
}
