package lexer

import (
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/pipeline"
	"github.com/funvibe/jiffle/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	tokens := New(ctx.SourceCode).Tokenize()
	for _, tok := range tokens {
		if tok.Type == token.ILLEGAL {
			ctx.AddError(diagnostics.NewError(diagnostics.ErrL001, tok, tok.Lexeme))
		}
	}
	ctx.TokenStream = tokens
	return ctx
}
