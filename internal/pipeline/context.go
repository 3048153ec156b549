package pipeline

import (
	"github.com/funvibe/jiffle/internal/ast"
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/ir"
	"github.com/funvibe/jiffle/internal/symbols"
	"github.com/funvibe/jiffle/internal/token"
)

// PipelineContext carries the state of one compilation through every stage.
type PipelineContext struct {
	SourceCode string
	FilePath   string

	// Inputs supplied by the caller.
	Mode       ir.Mode
	ImageRoles map[string]ir.ImageRole

	// Stage outputs.
	TokenStream []token.Token
	AstRoot     *ast.Program
	Scopes      *symbols.ScopeTree
	Script      *ir.Script

	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{
		SourceCode: source,
		ImageRoles: make(map[string]ir.ImageRole),
	}
}

// AddError records a diagnostic, stamping the file path when missing.
func (ctx *PipelineContext) AddError(err *diagnostics.DiagnosticError) {
	if err.File == "" {
		err.File = ctx.FilePath
	}
	ctx.Errors = append(ctx.Errors, err)
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (ctx *PipelineContext) HasErrors() bool {
	return diagnostics.HasErrors(ctx.Errors)
}
