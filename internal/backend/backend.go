// Package backend lowers a checked Script to a tree of Go closures that
// evaluate one pixel per call. Direct programs write destination images
// through the bound Env; Indirect programs return the value assigned to
// their single destination.
package backend

import (
	"math"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/ir"
	"github.com/funvibe/jiffle/internal/token"
)

// ErrUndefinedVar is returned when an init block variable is read before it
// has either a default or a caller supplied value, and by SetVar for
// unknown names.
var ErrUndefinedVar = errors.New("undefined variable")

// ErrNoEnv is returned when a program is evaluated before Bind.
var ErrNoEnv = errors.New("evaluator is not bound to a runtime")

// WorldInfo is the processing area as seen by the world proxy functions.
type WorldInfo struct {
	MinX, MinY    float64
	Width, Height float64
	XRes, YRes    float64
}

// Env is the runtime a Program reads images from and writes images to.
type Env interface {
	ReadFromImage(name string, x, y float64, band int) (float64, error)
	WriteToImage(name string, x, y float64, band int, value float64) error
	World() WorldInfo
}

// frame is the per-pixel state of a Program. Local scalars start as NaN
// and local lists start empty on every call.
type frame struct {
	x, y    float64
	scalars []float64
	lists   [][]float64
	result  float64
	env     Env
}

func (f *frame) reset(x, y float64) {
	f.x, f.y = x, y
	for i := range f.scalars {
		f.scalars[i] = math.NaN()
	}
	for i := range f.lists {
		f.lists[i] = f.lists[i][:0]
	}
	f.result = math.NaN()
}

// Program is one lowered evaluator instance. It is not safe for
// concurrent use: a Program owns its frame and its global values.
type Program struct {
	mode    ir.Mode
	script  *ir.Script
	body    []stmtFn
	globals *GlobalTable
	frame   frame
}

// Compile lowers script for mode. Lowering errors (break outside a loop,
// an Indirect script without exactly one destination) are returned as
// diagnostics and no Program is produced.
func Compile(script *ir.Script, mode ir.Mode) (*Program, []*diagnostics.DiagnosticError) {
	l := newLowerer(mode)

	if mode == ir.Indirect {
		if dests := script.Destinations(); len(dests) != 1 {
			l.addError(diagnostics.ErrC003, token.Token{}, len(dests))
		}
	}

	globals := newGlobalTable()
	for _, gv := range script.Globals {
		globals.add(gv.Symbol)
	}
	l.globals = globals
	for _, gv := range script.Globals {
		if gv.Default != nil {
			globals.setDefault(gv.Symbol.Name, l.scalar(gv.Default))
		}
	}

	body := make([]stmtFn, 0, len(script.Body))
	for _, stmt := range script.Body {
		body = append(body, l.statement(stmt))
	}
	if diagnostics.HasErrors(l.errors) {
		return nil, l.errors
	}

	p := &Program{
		mode:    mode,
		script:  script,
		body:    body,
		globals: globals,
	}
	p.frame.scalars = make([]float64, l.numScalars)
	p.frame.lists = make([][]float64, l.numLists)
	return p, l.errors
}

func (p *Program) Mode() ir.Mode      { return p.mode }
func (p *Program) Script() *ir.Script { return p.script }

// Bind attaches the runtime used for image access and world proxies.
func (p *Program) Bind(env Env) {
	p.frame.env = env
}

// Run evaluates the script at world position (x, y). In Indirect mode the
// returned value is the destination value (NaN when never assigned); in
// Direct mode it is always NaN. Globals are initialised on first use.
func (p *Program) Run(x, y float64) (float64, error) {
	if p.frame.env == nil {
		return math.NaN(), ErrNoEnv
	}
	if !p.globals.initialized {
		if err := p.InitGlobals(); err != nil {
			return math.NaN(), err
		}
	}
	f := &p.frame
	f.reset(x, y)
	for _, stmt := range p.body {
		if _, err := stmt(f); err != nil {
			return math.NaN(), err
		}
	}
	return f.result, nil
}

// InitGlobals evaluates the defaults of init block variables that have no
// caller supplied value, in declaration order.
func (p *Program) InitGlobals() error {
	if p.frame.env == nil {
		return ErrNoEnv
	}
	p.frame.reset(0, 0)
	return p.globals.initialize(&p.frame)
}

// ResetGlobals forces initialisation on the next Run.
func (p *Program) ResetGlobals() {
	p.globals.initialized = false
}

// GetVar returns the current value of an init block variable, or nil when
// the name is unknown or the variable has no value yet.
func (p *Program) GetVar(name string) *float64 {
	return p.globals.get(name)
}

// SetVar supplies a value for an init block variable. A nil value removes
// the caller value so the default is used again on the next run.
func (p *Program) SetVar(name string, value *float64) error {
	return p.globals.set(name, value)
}

// VarNames lists the init block variables in declaration order.
func (p *Program) VarNames() []string {
	return p.globals.names()
}
