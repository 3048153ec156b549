package runtime

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/config"
)

// Rect is an area in world units.
type Rect struct {
	MinX, MinY    float64
	Width, Height float64
}

func (r Rect) MaxX() float64 { return r.MinX + r.Width }
func (r Rect) MaxY() float64 { return r.MinY + r.Height }

// RectFromImage converts pixel bounds to a world rectangle.
func RectFromImage(b image.Rectangle) Rect {
	return Rect{
		MinX:   float64(b.Min.X),
		MinY:   float64(b.Min.Y),
		Width:  float64(b.Dx()),
		Height: float64(b.Dy()),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (r Rect) validate() error {
	if !finite(r.MinX) || !finite(r.MinY) || !finite(r.Width) || !finite(r.Height) {
		return errors.Wrapf(ErrInvalidWorld, "bounds %+v are not finite", r)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Wrapf(ErrInvalidWorld, "bounds %+v are empty", r)
	}
	return nil
}

func checkRes(name string, res, extent float64) error {
	switch {
	case !finite(res):
		return errors.Wrapf(ErrInvalidWorld, "%s %v is not finite", name, res)
	case res < config.ResolutionEpsilon:
		return errors.Wrapf(ErrInvalidWorld, "%s %v must be positive", name, res)
	case res > extent:
		return errors.Wrapf(ErrInvalidWorld, "%s %v is larger than the processing area", name, res)
	}
	return nil
}

// world is the processing area and its pixel size.
type world struct {
	bounds     Rect
	xres, yres float64
	set        bool
}

// steps counts the scan positions from 0 to extent with a half-open end.
func steps(extent, res float64) int64 {
	return int64(math.Ceil(extent/res - config.ScanEpsilon))
}

func (w world) numPixels() int64 {
	if !w.set {
		return 0
	}
	return steps(w.bounds.Width, w.xres) * steps(w.bounds.Height, w.yres)
}

// SetWorldByResolution defines the processing area and pixel size.
func (rt *Runtime) SetWorldByResolution(bounds Rect, xres, yres float64) error {
	if err := bounds.validate(); err != nil {
		return err
	}
	if err := checkRes("xres", xres, bounds.Width); err != nil {
		return err
	}
	if err := checkRes("yres", yres, bounds.Height); err != nil {
		return err
	}
	rt.world = world{bounds: bounds, xres: xres, yres: yres, set: true}
	return nil
}

// SetWorldByNumPixels divides bounds into nx by ny pixels.
func (rt *Runtime) SetWorldByNumPixels(bounds Rect, nx, ny int) error {
	if err := bounds.validate(); err != nil {
		return err
	}
	if nx < 1 || ny < 1 {
		return errors.Wrapf(ErrInvalidWorld, "pixel counts %d x %d must be positive", nx, ny)
	}
	return rt.SetWorldByResolution(bounds, bounds.Width/float64(nx), bounds.Height/float64(ny))
}

func (rt *Runtime) IsWorldSet() bool { return rt.world.set }

// Bounds returns the processing area; ok is false when no world is set.
func (rt *Runtime) Bounds() (r Rect, xres, yres float64, ok bool) {
	return rt.world.bounds, rt.world.xres, rt.world.yres, rt.world.set
}

// NumPixels is the number of positions a scan visits.
func (rt *Runtime) NumPixels() int64 { return rt.world.numPixels() }

// SetDefaultBounds uses the bounds of the first bound destination image,
// or of the first source image when no destination is bound, with a
// resolution of one world unit per pixel.
func (rt *Runtime) SetDefaultBounds() error {
	ref := rt.firstImage(roleDest)
	if ref == nil {
		ref = rt.firstImage(roleSource)
	}
	if ref == nil {
		return ErrWorldNotSet
	}
	return rt.SetWorldByResolution(RectFromImage(ref.img.Bounds()), 1, 1)
}
