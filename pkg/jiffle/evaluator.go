package jiffle

import (
	"context"

	"github.com/funvibe/jiffle/internal/runtime"
)

// evaluator holds the setup shared by both evaluator flavours.
type evaluator struct {
	rt *runtime.Runtime
}

// SetSourceImage binds a source image. A nil transform uses the default
// transform; other non-identity transforms need the world set first.
func (e *evaluator) SetSourceImage(name string, img Image, tr CoordinateTransform) error {
	return e.rt.SetSourceImage(name, img, tr)
}

func (e *evaluator) SetDestinationImage(name string, img Image, tr CoordinateTransform) error {
	return e.rt.SetDestinationImage(name, img, tr)
}

func (e *evaluator) SetDefaultTransform(tr CoordinateTransform) error {
	return e.rt.SetDefaultTransform(tr)
}

func (e *evaluator) SetWorldByResolution(bounds Rect, xres, yres float64) error {
	return e.rt.SetWorldByResolution(bounds, xres, yres)
}

func (e *evaluator) SetWorldByNumPixels(bounds Rect, nx, ny int) error {
	return e.rt.SetWorldByNumPixels(bounds, nx, ny)
}

func (e *evaluator) IsWorldSet() bool { return e.rt.IsWorldSet() }

// GetImages returns a copy of the bound images by name.
func (e *evaluator) GetImages() map[string]Image { return e.rt.GetImages() }

// GetVar returns an init block variable; nil when unknown or without value.
func (e *evaluator) GetVar(name string) *float64 { return e.rt.GetVar(name) }

// SetVar overrides an init block variable. Passing nil drops the override
// and the default is evaluated again before the next pixel.
func (e *evaluator) SetVar(name string, value *float64) error { return e.rt.SetVar(name, value) }

func (e *evaluator) VarNames() []string { return e.rt.VarNames() }

// DirectEvaluator writes destination images as it runs.
type DirectEvaluator struct {
	evaluator
}

// Evaluate runs the script for one world position.
func (d *DirectEvaluator) Evaluate(x, y float64) error {
	_, err := d.rt.Evaluate(x, y)
	return err
}

// EvaluateAll scans the whole world. A nil listener is allowed.
func (d *DirectEvaluator) EvaluateAll(listener ProgressListener) error {
	return d.rt.EvaluateAll(listener)
}

// EvaluateAllContext is EvaluateAll with cancellation between rows.
func (d *DirectEvaluator) EvaluateAllContext(ctx context.Context, listener ProgressListener) error {
	return d.rt.EvaluateAllContext(ctx, listener)
}

// IndirectEvaluator returns one value per position and never writes
// images.
type IndirectEvaluator struct {
	evaluator
}

// Evaluate returns the destination value at a world position; NaN when
// the script did not assign it.
func (ie *IndirectEvaluator) Evaluate(x, y float64) (float64, error) {
	return ie.rt.Evaluate(x, y)
}
