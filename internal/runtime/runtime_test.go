package runtime_test

import (
	"context"
	"image"
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/analyzer"
	"github.com/funvibe/jiffle/internal/backend"
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/ir"
	"github.com/funvibe/jiffle/internal/lexer"
	"github.com/funvibe/jiffle/internal/parser"
	"github.com/funvibe/jiffle/internal/pipeline"
	"github.com/funvibe/jiffle/internal/raster"
	"github.com/funvibe/jiffle/internal/runtime"
)

func newRuntime(t *testing.T, input string, mode ir.Mode, sources ...string) *runtime.Runtime {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)
	ctx.Mode = mode
	ctx.ImageRoles["dest"] = ir.RoleDest
	for _, name := range sources {
		ctx.ImageRoles[name] = ir.RoleSource
	}
	lower := &backend.LowerProcessor{}
	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&analyzer.ScopeProcessor{},
		&analyzer.TypeCheckProcessor{},
		lower,
	).Run(ctx)
	if ctx.HasErrors() {
		t.Fatalf("compile %q:\n%s", input, diagnostics.Format(ctx.Errors))
	}
	return runtime.New(lower.Program)
}

func grid(w, h int, fn func(x, y int) float64) *raster.Raster {
	r := raster.New(image.Rect(0, 0, w, h), 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.SetSample(x, y, 0, fn(x, y))
		}
	}
	return r
}

func mustRun(t *testing.T, rt *runtime.Runtime) {
	t.Helper()
	if err := rt.EvaluateAll(nil); err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
}

func TestConstantFillsDestination(t *testing.T) {
	rt := newRuntime(t, "dest = 42;", ir.Direct)
	dest := raster.NewFilled(image.Rect(0, 0, 5, 3), 1, math.NaN())
	if err := rt.SetDestinationImage("dest", dest, nil); err != nil {
		t.Fatal(err)
	}
	mustRun(t, rt)
	if lo, hi := dest.Range(0); lo != 42 || hi != 42 {
		t.Errorf("dest range = %v..%v", lo, hi)
	}
	if rt.NumPixels() != 15 {
		t.Errorf("NumPixels = %d", rt.NumPixels())
	}
}

func TestNullPropagatesInBothModes(t *testing.T) {
	script := "dest = src1 - src2;"
	src1 := grid(4, 4, func(x, y int) float64 {
		if x%2 == 0 {
			return math.NaN()
		}
		return float64(x)
	})
	src2 := grid(4, 4, func(x, y int) float64 {
		if y%2 == 0 {
			return math.NaN()
		}
		return float64(y)
	})

	direct := newRuntime(t, script, ir.Direct, "src1", "src2")
	indirect := newRuntime(t, script, ir.Indirect, "src1", "src2")
	dest := raster.New(src1.Bounds(), 1)
	for _, rt := range []*runtime.Runtime{direct, indirect} {
		if err := rt.SetSourceImage("src1", src1, nil); err != nil {
			t.Fatal(err)
		}
		if err := rt.SetSourceImage("src2", src2, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := direct.SetDestinationImage("dest", dest, nil); err != nil {
		t.Fatal(err)
	}
	mustRun(t, direct)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			wantNaN := x%2 == 0 || y%2 == 0
			got := dest.Sample(x, y, 0)
			if math.IsNaN(got) != wantNaN {
				t.Errorf("direct (%d,%d) = %v", x, y, got)
			}
			v, err := indirect.Evaluate(float64(x), float64(y))
			if err != nil {
				t.Fatal(err)
			}
			if math.IsNaN(v) != wantNaN || (!wantNaN && v != got) {
				t.Errorf("indirect (%d,%d) = %v, direct %v", x, y, v, got)
			}
		}
	}
}

func TestWhileLoopCountsToX(t *testing.T) {
	rt := newRuntime(t, "n = 0; while (n < x()) n++; dest = n;", ir.Direct)
	dest := raster.New(image.Rect(0, 0, 6, 2), 1)
	if err := rt.SetDestinationImage("dest", dest, nil); err != nil {
		t.Fatal(err)
	}
	mustRun(t, rt)
	for y := 0; y < 2; y++ {
		for x := 0; x < 6; x++ {
			if got := dest.Sample(x, y, 0); got != float64(x) {
				t.Errorf("dest[%d,%d] = %v", x, y, got)
			}
		}
	}
}

func TestOutsideOption(t *testing.T) {
	src := grid(3, 1, func(x, y int) float64 { return float64(x + 1) })

	rt := newRuntime(t, "options { outside = -1; } dest = src[-1, 0];", ir.Direct, "src")
	dest := raster.New(src.Bounds(), 1)
	rt.SetSourceImage("src", src, nil)
	rt.SetDestinationImage("dest", dest, nil)
	mustRun(t, rt)
	for x, want := range []float64{-1, 1, 2} {
		if got := dest.Sample(x, 0, 0); got != want {
			t.Errorf("dest[%d] = %v, want %v", x, got, want)
		}
	}

	rt = newRuntime(t, "dest = src[-1, 0];", ir.Direct, "src")
	rt.SetSourceImage("src", src, nil)
	rt.SetDestinationImage("dest", raster.New(src.Bounds(), 1), nil)
	if err := rt.EvaluateAll(nil); !errors.Is(err, runtime.ErrOutsideBounds) {
		t.Errorf("expected ErrOutsideBounds, got %v", err)
	}
}

func TestWriteOutsideDestination(t *testing.T) {
	rt := newRuntime(t, "options { outside = 0; } dest = 1;", ir.Direct)
	rt.SetDestinationImage("dest", raster.New(image.Rect(0, 0, 4, 3), 1), nil)
	if err := rt.SetWorldByResolution(runtime.Rect{Width: 5, Height: 3}, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := rt.EvaluateAll(nil); !errors.Is(err, runtime.ErrOutsideBounds) {
		t.Errorf("writes must ignore the outside option, got %v", err)
	}
}

func TestWorldValidation(t *testing.T) {
	rt := newRuntime(t, "dest = 1;", ir.Direct)
	bounds := runtime.Rect{MinX: 0, MinY: 0, Width: 10, Height: 5}
	tests := []struct {
		name       string
		bounds     runtime.Rect
		xres, yres float64
	}{
		{"empty width", runtime.Rect{Width: 0, Height: 5}, 1, 1},
		{"negative height", runtime.Rect{Width: 5, Height: -1}, 1, 1},
		{"nan bounds", runtime.Rect{MinX: math.NaN(), Width: 5, Height: 5}, 1, 1},
		{"nan resolution", bounds, math.NaN(), 1},
		{"infinite resolution", bounds, 1, math.Inf(1)},
		{"zero resolution", bounds, 0, 1},
		{"negative resolution", bounds, 1, -2},
		{"resolution wider than area", bounds, 11, 1},
		{"resolution taller than area", bounds, 1, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rt.SetWorldByResolution(tt.bounds, tt.xres, tt.yres)
			if !errors.Is(err, runtime.ErrInvalidWorld) {
				t.Errorf("expected ErrInvalidWorld, got %v", err)
			}
		})
	}
	if err := rt.SetWorldByNumPixels(bounds, 0, 5); !errors.Is(err, runtime.ErrInvalidWorld) {
		t.Errorf("expected ErrInvalidWorld for zero pixels, got %v", err)
	}
	if rt.IsWorldSet() {
		t.Error("failed calls must not set the world")
	}
	if err := rt.SetWorldByNumPixels(bounds, 4, 5); err != nil {
		t.Fatal(err)
	}
	if _, xres, yres, ok := rt.Bounds(); !ok || xres != 2.5 || yres != 1 {
		t.Errorf("resolution = %v x %v", xres, yres)
	}
	if rt.NumPixels() != 20 {
		t.Errorf("NumPixels = %d", rt.NumPixels())
	}
}

func TestTransforms(t *testing.T) {
	src := grid(4, 4, func(x, y int) float64 { return float64(10*x + y) })
	rt := newRuntime(t, "dest = src;", ir.Indirect, "src")
	unit := runtime.Rect{Width: 1, Height: 1}

	err := rt.SetSourceImage("src", src, runtime.WorldToGrid(unit, src.Bounds()))
	if !errors.Is(err, runtime.ErrWorldNotSet) {
		t.Fatalf("expected ErrWorldNotSet, got %v", err)
	}
	if err := rt.SetDefaultTransform(&runtime.AffineTransform{M00: 1, M11: 1}); !errors.Is(err, runtime.ErrWorldNotSet) {
		t.Fatalf("expected ErrWorldNotSet, got %v", err)
	}
	if err := rt.SetSourceImage("src", src, runtime.IdentityTransform{}); err != nil {
		t.Fatalf("identity transform needs no world: %v", err)
	}

	if err := rt.SetWorldByNumPixels(unit, 4, 4); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetSourceImage("src", src, runtime.WorldToGrid(unit, src.Bounds())); err != nil {
		t.Fatal(err)
	}
	v, err := rt.Evaluate(0.5, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if v != 21 {
		t.Errorf("got %v, want 21", v)
	}

	// The default transform applies to images bound without their own.
	if err := rt.SetSourceImage("src", src, nil); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetDefaultTransform(runtime.WorldToGrid(unit, src.Bounds())); err != nil {
		t.Fatal(err)
	}
	if v, _ := rt.Evaluate(0.75, 0); v != 30 {
		t.Errorf("got %v, want 30", v)
	}
}

func TestWorldProxies(t *testing.T) {
	rt := newRuntime(t, "dest = xres() * 100 + x() + ymax();", ir.Direct)
	world := runtime.Rect{MinX: 10, MinY: 20, Width: 4, Height: 2}
	dest := raster.New(image.Rect(0, 0, 2, 2), 1)
	if err := rt.SetWorldByNumPixels(world, 2, 2); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetDestinationImage("dest", dest, runtime.WorldToGrid(world, dest.Bounds())); err != nil {
		t.Fatal(err)
	}
	mustRun(t, rt)
	if got := dest.Sample(0, 0, 0); got != 232 {
		t.Errorf("dest[0,0] = %v, want 232", got)
	}
	if got := dest.Sample(1, 1, 0); got != 234 {
		t.Errorf("dest[1,1] = %v, want 234", got)
	}
}

type recorder struct {
	size    int64
	updates []int64
	started bool
	done    bool
}

func (r *recorder) SetTaskSize(n int64)   { r.size = n }
func (r *recorder) Start()                { r.started = true }
func (r *recorder) Update(done int64)     { r.updates = append(r.updates, done) }
func (r *recorder) Finish()               { r.done = true }
func (r *recorder) UpdateInterval() int64 { return 5 }

func TestProgressListener(t *testing.T) {
	rt := newRuntime(t, "dest = 1;", ir.Direct)
	rt.SetDestinationImage("dest", raster.New(image.Rect(0, 0, 4, 3), 1), nil)
	rec := &recorder{}
	if err := rt.EvaluateAll(rec); err != nil {
		t.Fatal(err)
	}
	if rec.size != 12 || !rec.started || !rec.done {
		t.Errorf("listener = %+v", rec)
	}
	if len(rec.updates) != 2 || rec.updates[0] != 5 || rec.updates[1] != 10 {
		t.Errorf("updates = %v", rec.updates)
	}
}

func TestProgressFunc(t *testing.T) {
	rt := newRuntime(t, "dest = 1;", ir.Direct)
	rt.SetDestinationImage("dest", raster.New(image.Rect(0, 0, 4, 3), 1), nil)

	var calls []int64
	p := &runtime.ProgressFunc{Interval: 6, Fn: func(done, total int64) {
		if total != 12 {
			t.Errorf("total = %d, want 12", total)
		}
		calls = append(calls, done)
	}}
	if err := rt.EvaluateAll(p); err != nil {
		t.Fatal(err)
	}
	if len(calls) < 2 || calls[0] != 0 || calls[len(calls)-1] != 12 {
		t.Errorf("calls = %v", calls)
	}

	// Without a function the listener only drives the scan.
	if err := rt.EvaluateAll(&runtime.ProgressFunc{Interval: 1}); err != nil {
		t.Fatal(err)
	}
}

func TestEvaluateAllContextCancelled(t *testing.T) {
	rt := newRuntime(t, "dest = 1;", ir.Direct)
	rt.SetDestinationImage("dest", raster.New(image.Rect(0, 0, 4, 3), 1), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rt.EvaluateAllContext(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSetupErrors(t *testing.T) {
	rt := newRuntime(t, "dest = src;", ir.Direct, "src")
	if err := rt.EvaluateAll(nil); !errors.Is(err, runtime.ErrWorldNotSet) {
		t.Errorf("expected ErrWorldNotSet, got %v", err)
	}
	img := raster.New(image.Rect(0, 0, 2, 2), 1)
	if err := rt.SetSourceImage("other", img, nil); !errors.Is(err, runtime.ErrUnknownImage) {
		t.Errorf("expected ErrUnknownImage, got %v", err)
	}
	if err := rt.SetDestinationImage("src", img, nil); !errors.Is(err, runtime.ErrUnknownImage) {
		t.Errorf("expected ErrUnknownImage for role mismatch, got %v", err)
	}
	rt.SetDestinationImage("dest", img, nil)
	if err := rt.EvaluateAll(nil); !errors.Is(err, runtime.ErrImageNotBound) {
		t.Errorf("expected ErrImageNotBound, got %v", err)
	}

	indirect := newRuntime(t, "dest = 1;", ir.Indirect)
	if err := indirect.EvaluateAll(nil); !errors.Is(err, runtime.ErrNotDirect) {
		t.Errorf("expected ErrNotDirect, got %v", err)
	}
}

func TestGlobalsInitialisedPerScan(t *testing.T) {
	rt := newRuntime(t, "init { n = 0; } n++; dest = n;", ir.Direct)
	dest := raster.New(image.Rect(0, 0, 2, 2), 1)
	rt.SetDestinationImage("dest", dest, nil)
	for run := 0; run < 2; run++ {
		mustRun(t, rt)
		if got := dest.Sample(1, 1, 0); got != 4 {
			t.Errorf("run %d: last pixel = %v, want 4", run, got)
		}
	}
	if v := rt.GetVar("n"); v == nil || *v != 4 {
		t.Errorf("GetVar(n) = %v", v)
	}
	start := 10.0
	if err := rt.SetVar("n", &start); err != nil {
		t.Fatal(err)
	}
	mustRun(t, rt)
	if got := dest.Sample(0, 0, 0); got != 11 {
		t.Errorf("first pixel = %v, want 11", got)
	}
}

func TestImagesAndNames(t *testing.T) {
	rt := newRuntime(t, "dest = b + a;", ir.Direct, "b", "a")
	img := raster.New(image.Rect(0, 0, 1, 1), 1)
	rt.SetSourceImage("a", img, nil)
	images := rt.GetImages()
	delete(images, "a")
	if len(rt.GetImages()) != 1 {
		t.Error("GetImages must return a copy")
	}
	if names := rt.SourceNames(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("SourceNames = %v", names)
	}
	if names := rt.DestinationNames(); len(names) != 1 || names[0] != "dest" {
		t.Errorf("DestinationNames = %v", names)
	}
}
