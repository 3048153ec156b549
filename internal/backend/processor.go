package backend

import (
	"github.com/funvibe/jiffle/internal/pipeline"
)

// LowerProcessor is the last pipeline stage. The lowered program is kept on
// the processor because the pipeline context cannot refer to this package.
type LowerProcessor struct {
	Program *Program
}

func (lp *LowerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Script == nil || ctx.HasErrors() {
		return ctx
	}
	program, errs := Compile(ctx.Script, ctx.Mode)
	for _, err := range errs {
		ctx.AddError(err)
	}
	lp.Program = program
	return ctx
}
