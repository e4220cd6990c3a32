package perf

import "math"

// Welford accumulates mean and variance of a series online, so step timings
// can be summarized without keeping every sample.
type Welford struct {
	Count int64
	Mean  float64
	M2    float64
}

// Update folds one sample into the accumulator.
func (w *Welford) Update(value float64) {
	w.Count++
	delta := value - w.Mean
	w.Mean += delta / float64(w.Count)
	delta2 := value - w.Mean
	w.M2 += delta * delta2
}

// StdDev returns the population standard deviation, 0 with fewer than two
// samples.
func (w *Welford) StdDev() float64 {
	if w.Count < 2 {
		return 0
	}
	return math.Sqrt(w.M2 / float64(w.Count))
}
