package features

import (
	"slices"
)

// iqrFactor widens the interquartile range into the accepted price band.
const iqrFactor = 1.5

// Bounds is the closed price interval kept by the training outlier filter.
type Bounds struct {
	Low  float64
	High float64
}

// Contains reports whether price lies within the bounds, edges included.
func (b Bounds) Contains(price float64) bool {
	return price >= b.Low && price <= b.High
}

// ComputeOutlierBounds returns [Q1-1.5*IQR, Q3+1.5*IQR] over prices.
// It is a batch statistic and must see the whole training table.
func ComputeOutlierBounds(prices []float64) (Bounds, error) {
	if len(prices) == 0 {
		return Bounds{}, ErrEmptyBatch
	}
	sorted := slices.Clone(prices)
	slices.Sort(sorted)

	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	return Bounds{Low: q1 - iqrFactor*iqr, High: q3 + iqrFactor*iqr}, nil
}

// Quantile returns the p-quantile of ascending data using linear
// interpolation between closest ranks at h = (n-1)p.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	h := float64(n-1) * p
	lo := int(h)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
