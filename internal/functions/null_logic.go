package functions

import (
	"math"

	"github.com/funvibe/jiffle/internal/config"
)

// Compare returns 0 when a and b are within CompareEpsilon of each other,
// otherwise -1 or 1.
func Compare(a, b float64) int {
	if math.Abs(a-b) < config.CompareEpsilon {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

// IsZero applies the comparison tolerance to x.
func IsZero(x float64) bool {
	return math.Abs(x) < config.CompareEpsilon
}

// Truthy is the branch test used by if, while, until and breakif. It
// applies the same tolerance as con and the logic operators: NaN and
// values within CompareEpsilon of zero are false.
func Truthy(x float64) bool {
	return !math.IsNaN(x) && !IsZero(x)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func nullable2(fn func(x, y float64) bool) func(x, y float64) float64 {
	return func(x, y float64) float64 {
		if math.IsNaN(x) || math.IsNaN(y) {
			return math.NaN()
		}
		return boolValue(fn(x, y))
	}
}

var (
	GT  = nullable2(func(x, y float64) bool { return Compare(x, y) > 0 })
	GE  = nullable2(func(x, y float64) bool { return Compare(x, y) >= 0 })
	LT  = nullable2(func(x, y float64) bool { return Compare(x, y) < 0 })
	LE  = nullable2(func(x, y float64) bool { return Compare(x, y) <= 0 })
	EQ  = nullable2(func(x, y float64) bool { return Compare(x, y) == 0 })
	NE  = nullable2(func(x, y float64) bool { return Compare(x, y) != 0 })
	AND = nullable2(func(x, y float64) bool { return !IsZero(x) && !IsZero(y) })
	OR  = nullable2(func(x, y float64) bool { return !IsZero(x) || !IsZero(y) })
	XOR = nullable2(func(x, y float64) bool { return !IsZero(x) != !IsZero(y) })
)

// NOT is 1 for zero, 0 for non-zero and NaN for NaN.
func NOT(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	return boolValue(IsZero(x))
}

// Con implements con(cond, ...). With one branch value: a when cond is
// true else 0. With two: a or b. With three: a, b or c for positive, zero
// and negative cond. With none: 1 or 0. A NaN cond yields NaN.
func Con(cond float64, branch func(i int) float64, n int) float64 {
	if math.IsNaN(cond) {
		return math.NaN()
	}
	switch n {
	case 0:
		return boolValue(!IsZero(cond))
	case 1:
		if !IsZero(cond) {
			return branch(0)
		}
		return 0
	case 2:
		if !IsZero(cond) {
			return branch(0)
		}
		return branch(1)
	default:
		switch Compare(cond, 0) {
		case 1:
			return branch(0)
		case 0:
			return branch(1)
		default:
			return branch(2)
		}
	}
}

func init() {
	binary(config.GtFuncName, GT)
	binary(config.GeFuncName, GE)
	binary(config.LtFuncName, LT)
	binary(config.LeFuncName, LE)
	binary(config.EqFuncName, EQ)
	binary(config.NeFuncName, NE)
	binary(config.AndFuncName, AND)
	binary(config.OrFuncName, OR)
	binary(config.XorFuncName, XOR)
	unary(config.NotFuncName, NOT)
}
