// Package runningstat computes min, max, mean, and variance over a stream of inputs.
// Algorithm comes from https://www.johndcook.com/blog/standard_deviation/ .
package runningstat

import (
	"math"
)

// RunningStat collects statistics.
// Zero value is an empty instance.
type RunningStat struct {
	n   uint64
	min float64
	max float64
	m1  float64
	m2  float64
}

// Clear deletes collected data.
func (s *RunningStat) Clear() {
	*s = RunningStat{}
}

// Push adds an input.
func (s *RunningStat) Push(x float64) {
	s.n++
	if s.n == 1 {
		s.min, s.max, s.m1, s.m2 = x, x, x, 0
		return
	}
	s.min, s.max = math.Min(s.min, x), math.Max(s.max, x)
	delta := x - s.m1
	s.m1 += delta / float64(s.n)
	s.m2 += delta * (x - s.m1)
}

// Read returns current statistics as Snapshot.
func (s RunningStat) Read() (o Snapshot) {
	o.Count = s.n
	if s.n == 0 {
		nan := math.NaN()
		o.Min, o.Max, o.Mean, o.Stdev = nan, nan, nan, nan
		return o
	}
	o.Min, o.Max, o.Mean = s.min, s.max, s.m1
	if s.n == 1 {
		o.Stdev = math.NaN()
	} else {
		o.Stdev = math.Sqrt(s.m2 / float64(s.n-1))
	}
	return o
}

// Combine computes statistics of the union of two input streams.
func Combine(a, b RunningStat) (c RunningStat) {
	switch {
	case a.n == 0:
		return b
	case b.n == 0:
		return a
	}
	c.n = a.n + b.n
	c.min, c.max = math.Min(a.min, b.min), math.Max(a.max, b.max)
	delta := b.m1 - a.m1
	c.m1 = (float64(a.n)*a.m1 + float64(b.n)*b.m1) / float64(c.n)
	c.m2 = a.m2 + b.m2 + delta*delta*float64(a.n)*float64(b.n)/float64(c.n)
	return c
}
