package ensemble

// baseLearningRate derives the learning-rate multiplier from the caller's
// round context: longer losing streaks make the next update more aggressive,
// capped at 4x.
func baseLearningRate(rctx Context) float64 {
	boost := float64(rctx.ConsecutiveLosses) * 0.4
	if boost > 3 {
		boost = 3
	}
	if boost < 0 {
		boost = 0
	}
	return 1 + boost
}

// creditShares computes each contributor's proportional share of the
// learning signal, weight*confidence over the total. Shares sum to 1 unless
// the total is zero, in which case the divisor is substituted with 1 and
// every share is 0.
func creditShares(contributors []Contributor) []float64 {
	shares := make([]float64, len(contributors))
	var total float64
	for _, c := range contributors {
		total += c.Weight * c.Confidence
	}
	if total == 0 {
		total = 1
	}
	for i, c := range contributors {
		shares[i] = c.Weight * c.Confidence / total
	}
	return shares
}
