package functions

import (
	"math"
	"sort"
)

// valid returns the non-NaN entries of values.
func valid(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// reduceValid runs fn over the non-NaN entries, or returns NaN when there
// are none.
func reduceValid(fn func([]float64) float64) func([]float64) float64 {
	return func(values []float64) float64 {
		v := valid(values)
		if len(v) == 0 {
			return math.NaN()
		}
		return fn(v)
	}
}

func sum(v []float64) float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	return total
}

func mean(v []float64) float64 {
	return sum(v) / float64(len(v))
}

func minimum(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Min(m, x)
	}
	return m
}

func maximum(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Max(m, x)
	}
	return m
}

func median(v []float64) float64 {
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mode returns the most frequent value; ties go to the smallest value.
func mode(v []float64) float64 {
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	best, bestCount := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestCount {
			best, bestCount = sorted[i], j-i
		}
		i = j
	}
	return best
}

func valueRange(v []float64) float64 {
	return maximum(v) - minimum(v)
}

// variance is the sample variance; a single value has variance 0.
func variance(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	ss := 0.0
	for _, x := range v {
		d := x - m
		ss += d * d
	}
	return ss / float64(len(v)-1)
}

func sdev(v []float64) float64 {
	return math.Sqrt(variance(v))
}

var (
	Sum      = reduceValid(sum)
	Mean     = reduceValid(mean)
	Median   = reduceValid(median)
	Min      = reduceValid(minimum)
	Max      = reduceValid(maximum)
	Mode     = reduceValid(mode)
	Range    = reduceValid(valueRange)
	Variance = reduceValid(variance)
	Sdev     = reduceValid(sdev)
)

func init() {
	reducer("sum", Sum)
	reducer("mean", Mean)
	reducer("median", Median)
	reducer("min", Min)
	reducer("max", Max)
	reducer("mode", Mode)
	reducer("range", Range)
	reducer("variance", Variance)
	reducer("sdev", Sdev)
}
