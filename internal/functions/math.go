package functions

import (
	"math"
	"math/rand/v2"

	"github.com/funvibe/jiffle/internal/config"
)

func sign(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	return float64(Compare(x, 0))
}

func isinf(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	return boolValue(math.IsInf(x, 0))
}

func isnan(x float64) float64 {
	return boolValue(math.IsNaN(x))
}

// round2 rounds x to a multiple of prec (itself rounded to an integer).
func round2(x, prec float64) float64 {
	factor := math.Floor(prec + 0.5)
	if factor <= 0 || math.IsNaN(factor) {
		return math.Round(x)
	}
	return math.Round(x/factor) * factor
}

func randValue(x float64) float64 {
	return rand.Float64() * x
}

func randInt(x float64) float64 {
	n := int64(x)
	if n <= 0 {
		return math.NaN()
	}
	return float64(rand.Int64N(n))
}

func nanMax(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return math.Max(a, b)
}

func nanMin(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return math.Min(a, b)
}

func init() {
	unary("abs", math.Abs)
	unary("acos", math.Acos)
	unary("asin", math.Asin)
	unary("atan", math.Atan)
	binary("atan2", math.Atan2)
	unary("ceil", math.Ceil)
	unary("cos", math.Cos)
	unary("degToRad", func(x float64) float64 { return math.Pi * x / 180 })
	unary("exp", math.Exp)
	unary("floor", math.Floor)
	unary("isinf", isinf)
	unary("isnan", isnan)
	unary("isnull", isnan)
	unary("log", math.Log)
	binary("log", func(x, b float64) float64 { return math.Log(x) / math.Log(b) })
	unary("log10", math.Log10)
	binary("max", nanMax)
	binary("min", nanMin)
	unary("radToDeg", func(x float64) float64 { return x / math.Pi * 180 })
	unary("rand", randValue)
	unary("randInt", randInt)
	unary("round", math.Round)
	binary("round", round2)
	unary("sign", sign)
	unary("sin", math.Sin)
	unary("sqrt", math.Sqrt)
	unary("tan", math.Tan)

	for _, name := range []string{
		config.XFuncName, config.YFuncName, "width", "height",
		"xmin", "xmax", "ymin", "ymax", "xres", "yres",
	} {
		proxy(name)
	}
}
