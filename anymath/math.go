// Package anymath accumulates the column statistics that estimators compute
// in their fitting passes.
package anymath

import (
	"math"

	"golang.org/x/exp/constraints"
)

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Stats accumulates the count, extremes, mean and variance of a stream of
// values.  The mean and variance are updated incrementally so that long
// passes do not lose precision to a running sum of squares.
type Stats struct {
	Count int64
	min   float64
	max   float64
	mean  float64
	m2    float64
}

func (s *Stats) Add(v float64) {
	s.AddN(v, 1)
}

// AddN adds n copies of v, as for the implicit zeros of a sparse vector.
func (s *Stats) AddN(v float64, n int64) {
	if n <= 0 {
		return
	}
	if s.Count == 0 {
		s.min, s.max = v, v
	} else {
		s.min = Min(s.min, v)
		s.max = Max(s.max, v)
	}
	total := s.Count + n
	delta := v - s.mean
	s.mean += delta * float64(n) / float64(total)
	s.m2 += delta * delta * float64(s.Count) * float64(n) / float64(total)
	s.Count = total
}

// Min returns the smallest value or 0 if there are none.
func (s *Stats) Min() float64 {
	return s.min
}

// Max returns the largest value or 0 if there are none.
func (s *Stats) Max() float64 {
	return s.max
}

// Mean returns the mean or 0 if there are no values.
func (s *Stats) Mean() float64 {
	return s.mean
}

// Variance returns the population variance.
func (s *Stats) Variance() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.m2 / float64(s.Count)
}

func (s *Stats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}
