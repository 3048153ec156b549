// Package jiffle compiles pixel-expression scripts and runs them over
// rasters.
//
//	j, err := jiffle.Compile("dest = src > 10 ? 1 : 0;", map[string]jiffle.ImageRole{
//		"src":  jiffle.Source,
//		"dest": jiffle.Dest,
//	})
//	ev, _ := j.NewDirect()
//	ev.SetSourceImage("src", src, nil)
//	ev.SetDestinationImage("dest", dest, nil)
//	err = ev.EvaluateAll(nil)
//
// A compiled Jiffle is immutable and may be shared between goroutines.
// Evaluators are not: each one belongs to a single goroutine or job.
package jiffle

import (
	"strings"

	"github.com/funvibe/jiffle/internal/analyzer"
	"github.com/funvibe/jiffle/internal/backend"
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/ir"
	"github.com/funvibe/jiffle/internal/lexer"
	"github.com/funvibe/jiffle/internal/parser"
	"github.com/funvibe/jiffle/internal/pipeline"
	"github.com/funvibe/jiffle/internal/runtime"
)

type (
	ImageRole = ir.ImageRole
	Mode      = ir.Mode

	// Diagnostic is one compiler message.
	Diagnostic = diagnostics.DiagnosticError

	Image               = runtime.Image
	Rect                = runtime.Rect
	CoordinateTransform = runtime.CoordinateTransform
	IdentityTransform   = runtime.IdentityTransform
	AffineTransform     = runtime.AffineTransform
	ProgressListener    = runtime.ProgressListener
)

const (
	Source = ir.RoleSource
	Dest   = ir.RoleDest

	Direct   = ir.Direct
	Indirect = ir.Indirect
)

// WorldToGrid returns the transform that stretches world onto an image grid.
var WorldToGrid = runtime.WorldToGrid

// Runtime errors, for use with errors.Is.
var (
	ErrWorldNotSet   = runtime.ErrWorldNotSet
	ErrInvalidWorld  = runtime.ErrInvalidWorld
	ErrOutsideBounds = runtime.ErrOutsideBounds
	ErrInvalidBand   = runtime.ErrInvalidBand
	ErrUnknownImage  = runtime.ErrUnknownImage
	ErrImageNotBound = runtime.ErrImageNotBound
	ErrUndefinedVar  = runtime.ErrUndefinedVar
)

// CompileError carries every diagnostic of a failed compilation,
// warnings included.
type CompileError struct {
	Diagnostics []*Diagnostic
}

func (e *CompileError) Error() string {
	errs := diagnostics.Errors(e.Diagnostics)
	var b strings.Builder
	b.WriteString("jiffle: compilation failed")
	for _, d := range errs {
		b.WriteString("\n  ")
		b.WriteString(d.Error())
	}
	return b.String()
}

// Errors returns only the error-severity diagnostics.
func (e *CompileError) Errors() []*Diagnostic {
	return diagnostics.Errors(e.Diagnostics)
}

type compileOptions struct {
	mode Mode
	file string
}

type Option func(*compileOptions)

// WithMode selects the evaluator flavour; the default is Direct.
func WithMode(m Mode) Option {
	return func(o *compileOptions) { o.mode = m }
}

// WithFileName sets the file name shown in diagnostics.
func WithFileName(name string) Option {
	return func(o *compileOptions) { o.file = name }
}

// Jiffle is a compiled script.
type Jiffle struct {
	source   string
	mode     Mode
	script   *ir.Script
	warnings []*Diagnostic
}

// Compile checks source against the caller's image roles. Images may also
// be declared in the script's images block. All diagnostics are collected;
// any error-severity one makes Compile return a *CompileError.
func Compile(source string, roles map[string]ImageRole, opts ...Option) (*Jiffle, error) {
	cfg := compileOptions{mode: Direct}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = cfg.file
	ctx.Mode = cfg.mode
	for name, role := range roles {
		ctx.ImageRoles[name] = role
	}
	lower := &backend.LowerProcessor{}
	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&analyzer.ScopeProcessor{},
		&analyzer.TypeCheckProcessor{},
		lower,
	).Run(ctx)

	if ctx.HasErrors() || lower.Program == nil {
		return nil, &CompileError{Diagnostics: ctx.Errors}
	}
	return &Jiffle{
		source:   source,
		mode:     cfg.mode,
		script:   ctx.Script,
		warnings: diagnostics.Warnings(ctx.Errors),
	}, nil
}

func (j *Jiffle) Mode() Mode                 { return j.mode }
func (j *Jiffle) Source() string             { return j.source }
func (j *Jiffle) Warnings() []*Diagnostic    { return j.warnings }
func (j *Jiffle) SourceNames() []string      { return names(j.script.Sources()) }
func (j *Jiffle) DestinationNames() []string { return names(j.script.Destinations()) }

func names(decls []ir.ImageDecl) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.Symbol.Name
	}
	return out
}

func (j *Jiffle) newRuntime(want Mode) (*runtime.Runtime, error) {
	if j.mode != want {
		return nil, &ModeError{Compiled: j.mode, Requested: want}
	}
	program, errs := backend.Compile(j.script, j.mode)
	if diagnostics.HasErrors(errs) {
		return nil, &CompileError{Diagnostics: errs}
	}
	return runtime.New(program), nil
}

// ModeError is returned when an evaluator of the other mode is requested.
type ModeError struct {
	Compiled, Requested Mode
}

func (e *ModeError) Error() string {
	return "jiffle: script was compiled for " + e.Compiled.String() + " evaluation, not " + e.Requested.String()
}

// NewDirect creates a fresh Direct evaluator.
func (j *Jiffle) NewDirect() (*DirectEvaluator, error) {
	rt, err := j.newRuntime(Direct)
	if err != nil {
		return nil, err
	}
	return &DirectEvaluator{evaluator{rt: rt}}, nil
}

// NewIndirect creates a fresh Indirect evaluator.
func (j *Jiffle) NewIndirect() (*IndirectEvaluator, error) {
	rt, err := j.newRuntime(Indirect)
	if err != nil {
		return nil, err
	}
	return &IndirectEvaluator{evaluator{rt: rt}}, nil
}
