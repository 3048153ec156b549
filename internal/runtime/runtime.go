// Package runtime binds a lowered program to images and a processing area.
// It implements backend.Env: image reads go through per-image coordinate
// transforms with bounds checks and the outside option, writes are always
// bounds checked.
package runtime

import (
	"image"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/backend"
	"github.com/funvibe/jiffle/internal/config"
	"github.com/funvibe/jiffle/internal/ir"
)

// Image is a multi-band raster addressed by integer pixel position.
// *raster.Raster implements it.
type Image interface {
	Bounds() image.Rectangle
	NumBands() int
	Sample(x, y, band int) float64
	SetSample(x, y, band int, v float64)
}

type role int

const (
	roleSource role = iota
	roleDest
)

type boundImage struct {
	name string
	role role
	img  Image
	tr   CoordinateTransform // nil means the default transform
	seq  int
}

// Runtime is not safe for concurrent use; it owns its program's state.
type Runtime struct {
	program *backend.Program
	roles   map[string]role

	images    map[string]*boundImage
	seq       int
	defaultTr CoordinateTransform

	world world

	outside    float64
	hasOutside bool
}

// New binds program to a fresh runtime.
func New(program *backend.Program) *Runtime {
	script := program.Script()
	rt := &Runtime{
		program:   program,
		roles:     make(map[string]role),
		images:    make(map[string]*boundImage),
		defaultTr: IdentityTransform{},
	}
	for _, img := range script.Images {
		if img.Role == ir.RoleDest {
			rt.roles[img.Symbol.Name] = roleDest
		} else {
			rt.roles[img.Symbol.Name] = roleSource
		}
	}
	if v, ok := script.Options[config.OutsideOptionName]; ok {
		rt.outside, rt.hasOutside = v, true
	}
	program.Bind(rt)
	return rt
}

func (rt *Runtime) Mode() ir.Mode { return rt.program.Mode() }

// SetSourceImage binds a source image. A nil transform uses the default
// transform; any other non-identity transform requires the world to be set.
func (rt *Runtime) SetSourceImage(name string, img Image, tr CoordinateTransform) error {
	return rt.setImage(name, roleSource, img, tr)
}

// SetDestinationImage binds a destination image, with the same transform
// rules as SetSourceImage.
func (rt *Runtime) SetDestinationImage(name string, img Image, tr CoordinateTransform) error {
	return rt.setImage(name, roleDest, img, tr)
}

func (rt *Runtime) setImage(name string, want role, img Image, tr CoordinateTransform) error {
	declared, ok := rt.roles[name]
	if !ok || declared != want {
		return errors.Wrapf(ErrUnknownImage, "%s", name)
	}
	if img == nil {
		return errors.Wrapf(ErrImageNotBound, "%s: nil image", name)
	}
	if !isIdentity(tr) && !rt.world.set {
		return errors.Wrapf(ErrWorldNotSet, "transform for %s", name)
	}
	rt.seq++
	rt.images[name] = &boundImage{name: name, role: want, img: img, tr: tr, seq: rt.seq}
	return nil
}

// SetDefaultTransform replaces the transform of every image bound without
// its own. A nil transform restores the identity.
func (rt *Runtime) SetDefaultTransform(tr CoordinateTransform) error {
	if tr == nil {
		rt.defaultTr = IdentityTransform{}
		return nil
	}
	if !isIdentity(tr) && !rt.world.set {
		return errors.Wrap(ErrWorldNotSet, "default transform")
	}
	rt.defaultTr = tr
	return nil
}

func (rt *Runtime) transform(b *boundImage) CoordinateTransform {
	if b.tr != nil {
		return b.tr
	}
	return rt.defaultTr
}

// firstImage returns the earliest bound image with role r.
func (rt *Runtime) firstImage(r role) *boundImage {
	var first *boundImage
	for _, b := range rt.images {
		if b.role == r && (first == nil || b.seq < first.seq) {
			first = b
		}
	}
	return first
}

// GetImages returns a copy of the name to image map.
func (rt *Runtime) GetImages() map[string]Image {
	out := make(map[string]Image, len(rt.images))
	for name, b := range rt.images {
		out[name] = b.img
	}
	return out
}

func (rt *Runtime) names(r role) []string {
	var out []string
	for name, declared := range rt.roles {
		if declared == r {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// SourceNames lists the source images declared by the script.
func (rt *Runtime) SourceNames() []string { return rt.names(roleSource) }

// DestinationNames lists the destination images declared by the script.
func (rt *Runtime) DestinationNames() []string { return rt.names(roleDest) }

func (rt *Runtime) World() backend.WorldInfo {
	w := rt.world
	return backend.WorldInfo{
		MinX:   w.bounds.MinX,
		MinY:   w.bounds.MinY,
		Width:  w.bounds.Width,
		Height: w.bounds.Height,
		XRes:   w.xres,
		YRes:   w.yres,
	}
}

// locate maps a world position to a pixel of a bound image.
func (rt *Runtime) locate(name string, x, y float64, band int) (*boundImage, int, int, bool, error) {
	b, ok := rt.images[name]
	if !ok {
		return nil, 0, 0, false, errors.Wrapf(ErrImageNotBound, "%s", name)
	}
	if band < 0 || band >= b.img.NumBands() {
		return nil, 0, 0, false, errors.Wrapf(ErrInvalidBand, "band %d of %s", band, name)
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return b, 0, 0, false, nil
	}
	px, py := rt.transform(b).WorldToImage(x, y)
	return b, px, py, image.Pt(px, py).In(b.img.Bounds()), nil
}

// ReadFromImage samples a source image at world position (x, y). Positions
// outside the image give the outside option value when the script sets
// one and ErrOutsideBounds otherwise.
func (rt *Runtime) ReadFromImage(name string, x, y float64, band int) (float64, error) {
	b, px, py, inside, err := rt.locate(name, x, y, band)
	if err != nil {
		return 0, err
	}
	if !inside {
		if rt.hasOutside {
			return rt.outside, nil
		}
		return 0, errors.Wrapf(ErrOutsideBounds, "position %.4f %.4f in image %s", x, y, name)
	}
	return b.img.Sample(px, py, band), nil
}

// WriteToImage stores value into a destination image. Out of range
// positions are always an error.
func (rt *Runtime) WriteToImage(name string, x, y float64, band int, value float64) error {
	b, px, py, inside, err := rt.locate(name, x, y, band)
	if err != nil {
		return err
	}
	if !inside {
		return errors.Wrapf(ErrOutsideBounds, "writing position %.4f %.4f in image %s", x, y, name)
	}
	b.img.SetSample(px, py, band, value)
	return nil
}

// Evaluate runs the script once at world position (x, y). Default bounds
// are applied when the world is unset and an image is bound. In Indirect
// mode the destination value is returned; Direct mode returns NaN.
func (rt *Runtime) Evaluate(x, y float64) (float64, error) {
	if !rt.world.set && len(rt.images) > 0 {
		if err := rt.SetDefaultBounds(); err != nil {
			return math.NaN(), err
		}
	}
	return rt.program.Run(x, y)
}

// GetVar returns an init block variable, nil when unknown or unset.
func (rt *Runtime) GetVar(name string) *float64 { return rt.program.GetVar(name) }

// SetVar overrides an init block variable; nil restores its default on
// the next evaluation.
func (rt *Runtime) SetVar(name string, value *float64) error {
	return rt.program.SetVar(name, value)
}

func (rt *Runtime) VarNames() []string { return rt.program.VarNames() }
