package analyzer

import (
	"github.com/funvibe/jiffle/internal/pipeline"
)

// ScopeProcessor runs the scoping pass.
type ScopeProcessor struct{}

func (sp *ScopeProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil || ctx.HasErrors() {
		return ctx
	}
	tree, errs := NewScoper().Analyze(ctx.AstRoot, ctx.ImageRoles)
	ctx.Scopes = tree
	for _, err := range errs {
		ctx.AddError(err)
	}
	return ctx
}

// TypeCheckProcessor builds the IR. It does nothing when an earlier stage
// recorded errors, so type errors are never reported against a tree with
// unresolved names.
type TypeCheckProcessor struct{}

func (tp *TypeCheckProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Scopes == nil || ctx.HasErrors() {
		return ctx
	}
	script, errs := NewChecker(ctx.Scopes, ctx.Mode).Check(ctx.AstRoot)
	for _, err := range errs {
		ctx.AddError(err)
	}
	if !ctx.HasErrors() {
		ctx.Script = script
	}
	return ctx
}
