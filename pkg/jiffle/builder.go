package jiffle

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/raster"
)

// Builder runs a script in one go:
//
//	images, err := jiffle.NewBuilder().
//		Script("dest = src * 2;").
//		Source("src", src).
//		NewDest("dest", src.Bounds()).
//		Run()
//
// The first error is remembered and returned by Run.
type Builder struct {
	script  string
	roles   map[string]ImageRole
	images  map[string]Image
	order   []string
	world   *Rect
	xres    float64
	yres    float64
	vars    map[string]float64
	err     error
	options []Option
}

func NewBuilder() *Builder {
	return &Builder{
		roles:  make(map[string]ImageRole),
		images: make(map[string]Image),
		vars:   make(map[string]float64),
	}
}

func (b *Builder) Script(source string) *Builder {
	b.script = source
	return b
}

// Options are passed to Compile. WithMode is ignored: builders always run
// Direct evaluators.
func (b *Builder) Options(opts ...Option) *Builder {
	b.options = append(b.options, opts...)
	return b
}

func (b *Builder) bind(name string, role ImageRole, img Image) *Builder {
	if _, dup := b.roles[name]; dup && b.err == nil {
		b.err = errors.Errorf("jiffle: image %s bound twice", name)
	}
	b.roles[name] = role
	b.images[name] = img
	b.order = append(b.order, name)
	return b
}

func (b *Builder) Source(name string, img Image) *Builder {
	return b.bind(name, Source, img)
}

func (b *Builder) Dest(name string, img Image) *Builder {
	return b.bind(name, Dest, img)
}

// NewDest binds a new single-band destination covering bounds, filled
// with NaN so unwritten pixels read as null.
func (b *Builder) NewDest(name string, bounds image.Rectangle) *Builder {
	return b.Dest(name, raster.NewFilled(bounds, 1, math.NaN()))
}

// World sets the processing area instead of the default image bounds.
func (b *Builder) World(bounds Rect, xres, yres float64) *Builder {
	b.world = &bounds
	b.xres, b.yres = xres, yres
	return b
}

func (b *Builder) Var(name string, value float64) *Builder {
	b.vars[name] = value
	return b
}

// Image returns an image bound to the builder.
func (b *Builder) Image(name string) Image {
	return b.images[name]
}

// Run compiles the script, binds everything and scans the world. It
// returns all bound images by name.
func (b *Builder) Run() (map[string]Image, error) {
	if b.err != nil {
		return nil, b.err
	}
	opts := append(append([]Option(nil), b.options...), WithMode(Direct))
	j, err := Compile(b.script, b.roles, opts...)
	if err != nil {
		return nil, err
	}
	ev, err := j.NewDirect()
	if err != nil {
		return nil, err
	}
	if b.world != nil {
		if err := ev.SetWorldByResolution(*b.world, b.xres, b.yres); err != nil {
			return nil, err
		}
	}
	for _, name := range b.order {
		var err error
		if b.roles[name] == Source {
			err = ev.SetSourceImage(name, b.images[name], nil)
		} else {
			err = ev.SetDestinationImage(name, b.images[name], nil)
		}
		if err != nil {
			return nil, err
		}
	}
	for name, v := range b.vars {
		v := v
		if err := ev.SetVar(name, &v); err != nil {
			return nil, err
		}
	}
	if err := ev.EvaluateAll(nil); err != nil {
		return nil, err
	}
	return ev.GetImages(), nil
}
