package dataset

import (
	"sort"
)

// Quantile returns the q-th quantile of xs using linear interpolation between
// closest ranks, h = (n-1)q. xs need not be sorted. Returns 0 for empty input.
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	return sortedQuantile(s, q)
}

func sortedQuantile(s []float64, q float64) float64 {
	if q <= 0 {
		return s[0]
	}
	if q >= 1 {
		return s[len(s)-1]
	}
	h := float64(len(s)-1) * q
	lo := int(h)
	if lo+1 >= len(s) {
		return s[lo]
	}
	return s[lo] + (h-float64(lo))*(s[lo+1]-s[lo])
}

// Median is the 0.5 quantile.
func Median(xs []float64) float64 { return Quantile(xs, 0.5) }

// Fence is an interquartile outlier band.
type Fence struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// IQRFence computes [Q1 - k*IQR, Q3 + k*IQR].
func IQRFence(xs []float64, k float64) Fence {
	if len(xs) == 0 {
		return Fence{}
	}
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	q1 := sortedQuantile(s, 0.25)
	q3 := sortedQuantile(s, 0.75)
	iqr := q3 - q1
	return Fence{Q1: q1, Q3: q3, IQR: iqr, Lower: q1 - k*iqr, Upper: q3 + k*iqr}
}

// Outside reports whether x falls outside the fence.
func (f Fence) Outside(x float64) bool { return x < f.Lower || x > f.Upper }

// CountOutside counts values outside the fence.
func (f Fence) CountOutside(xs []float64) int {
	n := 0
	for _, x := range xs {
		if f.Outside(x) {
			n++
		}
	}
	return n
}
