// Package statistic implements the streaming, O(1)-per-sample aggregates
// fed by closed positions: Welford mean/variance, range dispersion,
// Sharpe/Sortino ratios, and running max drawdown. No list of returns is
// ever retained.
package statistic

import "math"

// WelfordOnline computes a numerically stable running mean and variance
// in one pass, per Welford's online algorithm.
type WelfordOnline struct {
	Count int64
	Mean  float64
	M2    float64
}

// Update folds a new sample into the running aggregate.
func (w *WelfordOnline) Update(x float64) {
	w.Count++
	delta := x - w.Mean
	w.Mean += delta / float64(w.Count)
	delta2 := x - w.Mean
	w.M2 += delta * delta2
}

// Variance returns the population variance of the samples seen so far.
func (w *WelfordOnline) Variance() float64 {
	if w.Count == 0 {
		return 0
	}
	return w.M2 / float64(w.Count)
}

// StdDev returns the population standard deviation.
func (w *WelfordOnline) StdDev() float64 {
	return math.Sqrt(w.Variance())
}
