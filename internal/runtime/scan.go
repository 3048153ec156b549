package runtime

import (
	"context"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/ir"
)

// EvaluateAll scans the world in row-major order and evaluates the script
// at every position. See EvaluateAllContext.
func (rt *Runtime) EvaluateAll(listener ProgressListener) error {
	return rt.EvaluateAllContext(context.Background(), listener)
}

// EvaluateAllContext applies default bounds when no world is set, then
// visits y in [MinY, MaxY) and x in [MinX, MaxX) stepping by the
// resolution. Init variables are initialised once per scan. The first
// runtime error stops the scan; ctx is checked between rows.
func (rt *Runtime) EvaluateAllContext(ctx context.Context, listener ProgressListener) error {
	if rt.program.Mode() != ir.Direct {
		return ErrNotDirect
	}
	if listener == nil {
		listener = NullProgressListener{}
	}
	if !rt.world.set {
		if err := rt.SetDefaultBounds(); err != nil {
			return err
		}
	}
	for _, name := range rt.names(roleSource) {
		if _, ok := rt.images[name]; !ok {
			return errors.Wrapf(ErrImageNotBound, "source %s", name)
		}
	}
	for _, name := range rt.names(roleDest) {
		if _, ok := rt.images[name]; !ok {
			return errors.Wrapf(ErrImageNotBound, "destination %s", name)
		}
	}

	w := rt.world
	nx := steps(w.bounds.Width, w.xres)
	ny := steps(w.bounds.Height, w.yres)
	interval := listener.UpdateInterval()

	rt.program.ResetGlobals()
	if err := rt.program.InitGlobals(); err != nil {
		return err
	}

	listener.SetTaskSize(nx * ny)
	listener.Start()
	var count, sinceUpdate int64
	for j := int64(0); j < ny; j++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		y := w.bounds.MinY + float64(j)*w.yres
		for i := int64(0); i < nx; i++ {
			x := w.bounds.MinX + float64(i)*w.xres
			if _, err := rt.program.Run(x, y); err != nil {
				return err
			}
			count++
			sinceUpdate++
			if sinceUpdate >= interval {
				listener.Update(count)
				sinceUpdate = 0
			}
		}
	}
	listener.Finish()
	return nil
}
