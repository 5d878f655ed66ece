package ensemble

import "bigsmall-bot/internal/signal"

// scoredSignal is one predictor's contribution to a round, with the state
// snapshot taken when the round started.
type scoredSignal struct {
	predictor *Predictor
	sig       signal.Signal
	score     float64 // confidence * weight
	weight    float64
	ema       float64
}

// majorityVote returns the category voted for by the most signals and the
// agreement ratio (majority votes / total votes). Ties resolve to the
// category of the highest-scoring signal, which is first in the slice.
func majorityVote(rows []scoredSignal) (signal.Category, float64) {
	var big, small int
	for _, r := range rows {
		if r.sig.Category == signal.Big {
			big++
		} else {
			small++
		}
	}

	var majority signal.Category
	var votes int
	switch {
	case big > small:
		majority, votes = signal.Big, big
	case small > big:
		majority, votes = signal.Small, small
	default:
		// tie: the highest-scoring signal breaks it
		majority, votes = rows[0].sig.Category, big
	}
	return majority, float64(votes) / float64(len(rows))
}

// patternOverlap measures how much pattern evidence the signals share:
// 1 - distinct/total over all tags. 1.0 means every tag is common to all
// signals, 0 means no two signals share a tag (or no tags at all).
func patternOverlap(rows []scoredSignal) float64 {
	distinct := make(map[string]struct{})
	total := 0
	for _, r := range rows {
		for _, tag := range r.sig.Patterns {
			distinct[tag] = struct{}{}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return 1 - float64(len(distinct))/float64(total)
}

// reliability rates a predictor for the consensus path: it must be both
// historically accurate and currently weighted highly to count fully.
func reliability(weight, emaAccuracy float64) float64 {
	return clamp(weight*emaAccuracy*2, 0, 1)
}

// enhancedConfidence computes the consensus-path confidence: the
// reliability-weighted mean of the majority voters' confidences, scaled by
// an enhancement factor driven by agreement and pattern overlap, capped
// at 92.
func enhancedConfidence(rows []scoredSignal, majority signal.Category, agreement, overlap float64) float64 {
	var weightedSum, reliabilitySum, plainSum float64
	var voters int
	for _, r := range rows {
		if r.sig.Category != majority {
			continue
		}
		rel := reliability(r.weight, r.ema)
		weightedSum += r.sig.Confidence * rel
		reliabilitySum += rel
		plainSum += r.sig.Confidence
		voters++
	}
	if voters == 0 {
		return 0
	}

	mean := plainSum / float64(voters)
	if reliabilitySum > 0 {
		mean = weightedSum / reliabilitySum
	}

	factor := 1 + agreement*0.2 + overlap*0.1
	if factor > 1.3 {
		factor = 1.3
	}

	conf := mean * factor
	if conf > 92 {
		conf = 92
	}
	return conf
}
