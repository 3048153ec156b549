package parser

import (
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/pipeline"
	"github.com/funvibe/jiffle/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.TokenStream == nil {
		ctx.AddError(diagnostics.NewError(diagnostics.ErrP006, token.Token{}, "parser: token stream is nil"))
		return ctx
	}
	ctx.AstRoot = New(ctx.TokenStream, ctx).ParseProgram()
	return ctx
}
