package providers

import (
	"testing"
	"time"

	"bigsmall-bot/internal/ensemble"
	"bigsmall-bot/internal/signal"
)

// sequence builds a newest-first history from category runs, e.g.
// sequence("BBBS") is three BIGs then one SMALL going back in time.
func sequence(pattern string) []signal.Event {
	events := make([]signal.Event, len(pattern))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, c := range pattern {
		cat := signal.Small
		mag := 2
		if c == 'B' {
			cat = signal.Big
			mag = 7
		}
		events[i] = signal.Event{Category: cat, Magnitude: mag, Ts: base.Add(-time.Duration(i) * time.Minute)}
	}
	return events
}

func TestProviders_NeutralOnShortHistory(t *testing.T) {
	for _, p := range Default() {
		t.Run(p.ID(), func(t *testing.T) {
			for _, history := range [][]signal.Event{nil, {}, sequence("B")} {
				sig, err := p.Analyze(history)
				if err != nil {
					t.Fatalf("provider errored on short history: %v", err)
				}
				if !sig.Category.Valid() {
					t.Errorf("invalid category on short history: %+v", sig)
				}
				if sig.Confidence < 0 || sig.Confidence > 100 {
					t.Errorf("confidence out of range: %+v", sig)
				}
			}
		})
	}
}

func TestProviders_NeverMutateHistory(t *testing.T) {
	history := sequence("BBSBSBBSSBBBSBSS")
	snapshot := make([]signal.Event, len(history))
	copy(snapshot, history)

	for _, p := range Default() {
		if _, err := p.Analyze(history); err != nil {
			t.Fatalf("%s errored: %v", p.ID(), err)
		}
	}
	for i := range history {
		if history[i] != snapshot[i] {
			t.Fatalf("history mutated at %d", i)
		}
	}
}

func TestStreak_FollowsShortRun(t *testing.T) {
	sig, err := Streak{}.Analyze(sequence("BBSBS"))
	if err != nil {
		t.Fatal(err)
	}
	if sig.Category != signal.Big {
		t.Errorf("expected short BIG run to continue, got %v", sig.Category)
	}
	if !hasTag(sig.Patterns, "streak-follow") {
		t.Errorf("missing streak-follow tag: %v", sig.Patterns)
	}
}

func TestStreak_BetsAgainstLongRun(t *testing.T) {
	sig, err := Streak{}.Analyze(sequence("BBBBBS"))
	if err != nil {
		t.Fatal(err)
	}
	if sig.Category != signal.Small {
		t.Errorf("expected long BIG run to break, got %v", sig.Category)
	}
	if !hasTag(sig.Patterns, "streak-break") {
		t.Errorf("missing streak-break tag: %v", sig.Patterns)
	}
}

func TestAlternation_PredictsContinuation(t *testing.T) {
	sig, err := Alternation{}.Analyze(sequence("BSBSBS"))
	if err != nil {
		t.Fatal(err)
	}
	// Newest is BIG, a continuing zigzag means the next draw is SMALL... the
	// prediction is for the upcoming event, which alternates from the newest.
	if sig.Category != signal.Small {
		t.Errorf("expected SMALL continuation, got %v", sig.Category)
	}
	if !hasTag(sig.Patterns, "alternation") {
		t.Errorf("missing alternation tag: %v", sig.Patterns)
	}
}

func TestDistribution_BetsAgainstSkew(t *testing.T) {
	d := Distribution{Window: 20}
	sig, err := d.Analyze(sequence("BBBBBBBBBBBBBBBSSSSS")) // 75% BIG
	if err != nil {
		t.Fatal(err)
	}
	if sig.Category != signal.Small {
		t.Errorf("expected reversion to SMALL, got %v", sig.Category)
	}
}

func TestDistribution_NeutralOnBalance(t *testing.T) {
	d := Distribution{Window: 20}
	sig, err := d.Analyze(sequence("BSBSBSBSBSBSBSBSBSBS"))
	if err != nil {
		t.Fatal(err)
	}
	if sig.Confidence != 50 {
		t.Errorf("expected neutral on balanced window, got %+v", sig)
	}
}

func TestMagnitudeTrend_FollowsDrift(t *testing.T) {
	history := sequence("BBBBBSSSSS") // magnitudes 7,7,7,7,7,2,2,2,2,2
	sig, err := MagnitudeTrend{}.Analyze(history)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Category != signal.Big {
		t.Errorf("rising magnitudes should predict BIG, got %v", sig.Category)
	}
}

func TestFibonacci_MajorityAtPositions(t *testing.T) {
	// Positions 1,2,3,5,8,13 must exist, so 14+ events are required.
	history := sequence("SBBBBBBBBBBBBBB")
	sig, err := Fibonacci{}.Analyze(history)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Category != signal.Big {
		t.Errorf("expected BIG majority at fibonacci positions, got %v", sig.Category)
	}
}

func TestDefault_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	var roster []ensemble.Provider = Default()
	for _, p := range roster {
		if seen[p.ID()] {
			t.Errorf("duplicate provider id %q", p.ID())
		}
		seen[p.ID()] = true
	}
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
