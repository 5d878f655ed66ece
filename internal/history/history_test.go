package history

import (
	"testing"
	"time"

	"bigsmall-bot/internal/signal"
)

func event(cat signal.Category, mag int) signal.Event {
	return signal.Event{Category: cat, Magnitude: mag, Ts: time.Now()}
}

func TestBuffer_MostRecentFirst(t *testing.T) {
	b := New(10)
	b.Push(event(signal.Small, 1))
	b.Push(event(signal.Big, 8))
	b.Push(event(signal.Big, 6))

	all := b.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Magnitude != 6 || all[2].Magnitude != 1 {
		t.Errorf("events not ordered newest first: %+v", all)
	}
}

func TestBuffer_EvictsOldest(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Push(event(signal.Small, i))
	}

	if b.Len() != 3 {
		t.Fatalf("expected capacity 3, got %d", b.Len())
	}
	all := b.All()
	if all[0].Magnitude != 4 || all[2].Magnitude != 2 {
		t.Errorf("wrong events retained: %+v", all)
	}
}

func TestBuffer_RecentClampsToLength(t *testing.T) {
	b := New(10)
	b.Push(event(signal.Big, 7))

	got := b.Recent(5)
	if len(got) != 1 {
		t.Errorf("expected 1 event, got %d", len(got))
	}
}

func TestBuffer_ReturnsCopies(t *testing.T) {
	b := New(5)
	b.Push(event(signal.Big, 9))

	snapshot := b.All()
	snapshot[0].Magnitude = 0

	if b.All()[0].Magnitude != 9 {
		t.Error("mutation of snapshot leaked into the buffer")
	}
}

func TestBuffer_BigBias(t *testing.T) {
	b := New(30)
	for i := 0; i < 6; i++ {
		b.Push(event(signal.Small, 2))
	}
	for i := 0; i < 14; i++ {
		b.Push(event(signal.Big, 7))
	}

	if got := b.BigBias(20); got != 0.7 {
		t.Errorf("BigBias(20) = %v, want 0.7", got)
	}
}

func TestBuffer_BigBiasEmptyIsNeutral(t *testing.T) {
	b := New(10)
	if got := b.BigBias(20); got != 0.5 {
		t.Errorf("BigBias on empty buffer = %v, want 0.5", got)
	}
}
