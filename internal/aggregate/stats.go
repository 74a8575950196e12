package aggregate

import (
	"math"
	"sort"
)

// sample is one weighted evidence value.
type sample struct {
	value  float64
	weight float64
}

// series holds weight-sorted samples for percentile queries. Zero-weight
// samples are dropped at construction; they carry no evidence.
type series struct {
	sorted []sample
	total  float64
}

func newSeries(samples []sample) series {
	s := series{sorted: make([]sample, 0, len(samples))}
	for _, sm := range samples {
		if sm.weight <= 0 {
			continue
		}
		s.sorted = append(s.sorted, sm)
		s.total += sm.weight
	}
	sort.Slice(s.sorted, func(i, j int) bool { return s.sorted[i].value < s.sorted[j].value })
	return s
}

func (s series) empty() bool { return len(s.sorted) == 0 }

// percentile returns the smallest value whose cumulative weight reaches
// p of the total. With one sample every percentile is that sample.
func (s series) percentile(p float64) float64 {
	if s.empty() {
		return 0
	}
	target := p * s.total
	cum := 0.0
	for _, sm := range s.sorted {
		cum += sm.weight
		if cum >= target || cum >= s.total {
			return sm.value
		}
	}
	return s.sorted[len(s.sorted)-1].value
}

func (s series) mean() float64 {
	if s.empty() {
		return 0
	}
	sum := 0.0
	for _, sm := range s.sorted {
		sum += sm.value * sm.weight
	}
	return sum / s.total
}

func (s series) stddev() float64 {
	if len(s.sorted) < 2 {
		return 0
	}
	m := s.mean()
	sum := 0.0
	for _, sm := range s.sorted {
		d := sm.value - m
		sum += sm.weight * d * d
	}
	return math.Sqrt(sum / s.total)
}
