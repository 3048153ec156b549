package config

import "math"

const SourceFileExt = ".jfl"

// SourceFileExtensions are all recognized script file extensions
var SourceFileExtensions = []string{".jfl", ".jiffle"}

// Header block names
const (
	OptionsBlockName = "options"
	ImagesBlockName  = "images"
	InitBlockName    = "init"
)

// Option names
const (
	OutsideOptionName = "outside"
)

// Built-in function names that the compiler treats specially
const (
	ConFuncName = "con"
	XFuncName   = "x"
	YFuncName   = "y"
)

// Names of the logical helper functions that operators lower to
const (
	AndFuncName = "AND"
	OrFuncName  = "OR"
	XorFuncName = "XOR"
	NotFuncName = "NOT"
	GtFuncName  = "GT"
	GeFuncName  = "GE"
	LtFuncName  = "LT"
	LeFuncName  = "LE"
	EqFuncName  = "EQ"
	NeFuncName  = "NE"
)

// Numeric tolerances
const (
	// CompareEpsilon is the tolerance used by the comparison functions.
	CompareEpsilon = 1.0e-8
	// ScanEpsilon guards the half-open scan loop against rounding.
	ScanEpsilon = 1.0e-10
	// ResolutionEpsilon is the smallest accepted world resolution.
	ResolutionEpsilon = 1.0e-8
)

// Runtime defaults
const (
	DefaultUpdateInterval = 1000
	DefaultWorkers        = 4
	DefaultQueueCapacity  = 64
)

// Constants are the named numeric constants visible to every script.
var Constants = map[string]float64{
	"M_E":       math.E,
	"M_PI":      math.Pi,
	"M_PI_2":    math.Pi / 2,
	"M_PI_4":    math.Pi / 4,
	"M_SQRT2":   math.Sqrt2,
	"M_SQRT1_2": 1 / math.Sqrt2,
	"NaN":       math.NaN(),
}
