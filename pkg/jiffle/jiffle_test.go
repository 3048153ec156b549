package jiffle_test

import (
	"image"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/executor"
	"github.com/funvibe/jiffle/internal/raster"
	"github.com/funvibe/jiffle/pkg/jiffle"
)

var srcDest = map[string]jiffle.ImageRole{"src": jiffle.Source, "dest": jiffle.Dest}

func mustCompile(t *testing.T, source string, roles map[string]jiffle.ImageRole, opts ...jiffle.Option) *jiffle.Jiffle {
	t.Helper()
	j, err := jiffle.Compile(source, roles, opts...)
	if err != nil {
		t.Fatalf("compile %q: %v", source, err)
	}
	return j
}

func testImage(w, h int, seed uint64, nullChance float64) *raster.Raster {
	rng := rand.New(rand.NewPCG(seed, 7))
	r := raster.New(image.Rect(0, 0, w, h), 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(rng.IntN(10))
			if rng.Float64() < nullChance {
				v = math.NaN()
			}
			r.SetSample(x, y, 0, v)
		}
	}
	return r
}

func TestConstantScript(t *testing.T) {
	images, err := jiffle.NewBuilder().
		Script("dest = 42;").
		NewDest("dest", image.Rect(0, 0, 7, 5)).
		Run()
	if err != nil {
		t.Fatal(err)
	}
	dest := images["dest"].(*raster.Raster)
	if lo, hi := dest.Range(0); lo != 42 || hi != 42 {
		t.Errorf("dest range = %v..%v", lo, hi)
	}

	j := mustCompile(t, "dest = 42;", map[string]jiffle.ImageRole{"dest": jiffle.Dest}, jiffle.WithMode(jiffle.Indirect))
	ev, err := j.NewIndirect()
	if err != nil {
		t.Fatal(err)
	}
	if v, err := ev.Evaluate(3, 4); err != nil || v != 42 {
		t.Errorf("Evaluate = %v, %v", v, err)
	}
}

func TestNullSubtraction(t *testing.T) {
	roles := map[string]jiffle.ImageRole{"src1": jiffle.Source, "src2": jiffle.Source, "dest": jiffle.Dest}
	script := "dest = src1 - src2;"
	src1 := testImage(16, 16, 1, 0.5)
	src2 := testImage(16, 16, 2, 0.5)
	dest := raster.New(src1.Bounds(), 1)

	direct, err := mustCompile(t, script, roles).NewDirect()
	if err != nil {
		t.Fatal(err)
	}
	direct.SetSourceImage("src1", src1, nil)
	direct.SetSourceImage("src2", src2, nil)
	direct.SetDestinationImage("dest", dest, nil)
	if err := direct.EvaluateAll(nil); err != nil {
		t.Fatal(err)
	}

	indirect, err := mustCompile(t, script, roles, jiffle.WithMode(jiffle.Indirect)).NewIndirect()
	if err != nil {
		t.Fatal(err)
	}
	indirect.SetSourceImage("src1", src1, nil)
	indirect.SetSourceImage("src2", src2, nil)

	combos := make(map[[2]bool]int)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			n1, n2 := math.IsNaN(src1.Sample(x, y, 0)), math.IsNaN(src2.Sample(x, y, 0))
			combos[[2]bool{n1, n2}]++
			wantNaN := n1 || n2
			if got := dest.Sample(x, y, 0); math.IsNaN(got) != wantNaN {
				t.Errorf("direct (%d,%d) = %v", x, y, got)
			}
			v, err := indirect.Evaluate(float64(x), float64(y))
			if err != nil {
				t.Fatal(err)
			}
			if math.IsNaN(v) != wantNaN {
				t.Errorf("indirect (%d,%d) = %v", x, y, v)
			}
		}
	}
	if len(combos) != 4 {
		t.Errorf("test image should cover all null combinations, got %v", combos)
	}
}

func TestWhileLoopOverWidth(t *testing.T) {
	images, err := jiffle.NewBuilder().
		Script("n = 0; while (n < x()) n++; dest = n;").
		NewDest("dest", image.Rect(0, 0, 9, 3)).
		Run()
	if err != nil {
		t.Fatal(err)
	}
	dest := images["dest"]
	for y := 0; y < 3; y++ {
		for x := 0; x < 9; x++ {
			if got := dest.Sample(x, y, 0); got != float64(x) {
				t.Errorf("dest[%d,%d] = %v", x, y, got)
			}
		}
	}
}

func TestBreakIfOutsideLoop(t *testing.T) {
	scripts := []string{
		"i = 0; breakif(i == 42); dest = src;",
		"i = 0; if (src > 1) { breakif(i == 42); } dest = src;",
		"i = 0; if (src > 1) dest = 1; else { breakif(i == 42); dest = 2; }",
		"foreach (k in 1:3) { dest = k; } breakif(src == 42);",
	}
	for _, script := range scripts {
		_, err := jiffle.Compile(script, srcDest)
		var cerr *jiffle.CompileError
		if !errors.As(err, &cerr) {
			t.Errorf("%q: expected CompileError, got %v", script, err)
			continue
		}
		found := false
		for _, d := range cerr.Errors() {
			found = found || d.Code == diagnostics.ErrC001
		}
		if !found {
			t.Errorf("%q: expected C001, got %v", script, cerr)
		}
	}
	mustCompile(t, "i = 0; while (true) { i++; breakif(i == 42); } dest = i + src;", srcDest)
}

func TestDirectAndIndirectAgree(t *testing.T) {
	scripts := []string{
		"dest = src * 2 + 1;",
		"dest = src > 4 ? src : -src;",
		"options { outside = 0; } dest = (src[-1, 0] + src + src[1, 0]) / 3;",
		"options { outside = null; } xs = []; foreach (dy in -1:1) xs << src[0, dy]; dest = con(isnull(median(xs)), -1, median(xs));",
		"init { k = 3; } n = 0; foreach (i in 1:k) { n += src ^ i; breakif(n > 100); } dest = n;",
		"dest = con(src - 5, 1, 0, -1) + sqrt(abs(src)) * 0.5;",
		"n = con(isnull(src), 1, src); until (n <= 1) n = n % 2 == 0 ? n / 2 : 3 * n + 1; dest = n + src;",
	}
	src := testImage(12, 10, 3, 0.2)
	for _, script := range scripts {
		t.Run(script, func(t *testing.T) {
			dest := raster.New(src.Bounds(), 1)
			direct, err := mustCompile(t, script, srcDest).NewDirect()
			if err != nil {
				t.Fatal(err)
			}
			direct.SetSourceImage("src", src, nil)
			direct.SetDestinationImage("dest", dest, nil)
			if err := direct.EvaluateAll(nil); err != nil {
				t.Fatal(err)
			}

			indirect, err := mustCompile(t, script, srcDest, jiffle.WithMode(jiffle.Indirect)).NewIndirect()
			if err != nil {
				t.Fatal(err)
			}
			indirect.SetSourceImage("src", src, nil)
			for y := 0; y < 10; y++ {
				for x := 0; x < 12; x++ {
					want := dest.Sample(x, y, 0)
					got, err := indirect.Evaluate(float64(x), float64(y))
					if err != nil {
						t.Fatal(err)
					}
					same := math.IsNaN(got) && math.IsNaN(want) || math.Abs(got-want) < 1e-9
					if !same {
						t.Fatalf("(%d,%d): direct %v, indirect %v", x, y, want, got)
					}
				}
			}
		})
	}
}

func TestSampleStandardDeviation(t *testing.T) {
	j := mustCompile(t, "dest = sdev([2, 4, 4, 4, 5, 5, 7, 9, null]);", map[string]jiffle.ImageRole{"dest": jiffle.Dest},
		jiffle.WithMode(jiffle.Indirect))
	ev, _ := j.NewIndirect()
	v, err := ev.Evaluate(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	// range of the same list would be 7
	if math.Abs(v-math.Sqrt(32.0/7)) > 1e-12 {
		t.Errorf("sdev = %v", v)
	}
}

func TestCompileErrorCollectsEverything(t *testing.T) {
	_, err := jiffle.Compile("dest = a + b; dest = sqrtt(src);", srcDest, jiffle.WithFileName("bad.jfl"))
	var cerr *jiffle.CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	if n := len(cerr.Errors()); n != 2 {
		t.Errorf("expected 2 scoping errors, got %d:\n%v", n, cerr)
	}
	if !strings.Contains(err.Error(), "bad.jfl:1:") {
		t.Errorf("file name missing from %q", err.Error())
	}
}

func TestWarningsDoNotBlock(t *testing.T) {
	j := mustCompile(t, "dest = 1;", srcDest)
	if len(j.Warnings()) != 1 || j.Warnings()[0].Code != diagnostics.WarnS101 {
		t.Errorf("warnings = %v", j.Warnings())
	}
	if names := j.SourceNames(); len(names) != 1 || names[0] != "src" {
		t.Errorf("SourceNames = %v", names)
	}
}

func TestModeMismatch(t *testing.T) {
	j := mustCompile(t, "dest = src;", srcDest)
	_, err := j.NewIndirect()
	var merr *jiffle.ModeError
	if !errors.As(err, &merr) || merr.Compiled != jiffle.Direct {
		t.Errorf("expected ModeError, got %v", err)
	}
}

func TestImagesBlockAndVars(t *testing.T) {
	j := mustCompile(t, `
images { a = read; out = write; }
init { scale = 2; offset; }
out = a * scale + offset;
`, nil)
	ev, err := j.NewDirect()
	if err != nil {
		t.Fatal(err)
	}
	a := testImage(3, 3, 4, 0)
	out := raster.New(a.Bounds(), 1)
	ev.SetSourceImage("a", a, nil)
	ev.SetDestinationImage("out", out, nil)

	if err := ev.EvaluateAll(nil); !errors.Is(err, jiffle.ErrUndefinedVar) {
		t.Fatalf("expected ErrUndefinedVar, got %v", err)
	}
	offset := 0.5
	ev.SetVar("offset", &offset)
	if err := ev.EvaluateAll(nil); err != nil {
		t.Fatal(err)
	}
	if got, want := out.Sample(1, 2, 0), a.Sample(1, 2, 0)*2+0.5; got != want {
		t.Errorf("out = %v, want %v", got, want)
	}
	if names := ev.VarNames(); len(names) != 2 || names[0] != "scale" {
		t.Errorf("VarNames = %v", names)
	}

	if err := ev.SetVar("offset", nil); err != nil {
		t.Fatal(err)
	}
	if v := ev.GetVar("offset"); v != nil {
		t.Errorf("GetVar(offset) after clearing = %v, want nil", *v)
	}
	if err := ev.EvaluateAll(nil); !errors.Is(err, jiffle.ErrUndefinedVar) {
		t.Errorf("expected ErrUndefinedVar after clearing offset, got %v", err)
	}
}

func TestEvaluatorsRunOnExecutor(t *testing.T) {
	j := mustCompile(t, "dest = src + x();", srcDest)
	src := testImage(8, 8, 5, 0)
	e := executor.New(executor.WithWorkers(4))
	waiter := executor.NewWaitingListener(20)
	e.AddEventListener(waiter)
	for i := 0; i < 20; i++ {
		ev, err := j.NewDirect()
		if err != nil {
			t.Fatal(err)
		}
		ev.SetSourceImage("src", src, nil)
		ev.SetDestinationImage("dest", raster.New(src.Bounds(), 1), nil)
		if _, err := e.Submit(executor.Job{Runner: ev}); err != nil {
			t.Fatal(err)
		}
	}
	if !waiter.Await(10 * time.Second) {
		t.Fatal("jobs did not finish")
	}
	e.Shutdown()
	for _, res := range waiter.Results() {
		if !res.Completed {
			t.Fatalf("job %d failed: %v", res.JobID, res.Err)
		}
		dest := res.Images()["dest"]
		if got, want := dest.Sample(5, 1, 0), src.Sample(5, 1, 0)+5; got != want {
			t.Errorf("job %d: dest = %v, want %v", res.JobID, got, want)
		}
	}
}

func TestBuilderErrors(t *testing.T) {
	img := raster.New(image.Rect(0, 0, 2, 2), 1)
	_, err := jiffle.NewBuilder().Script("dest = src;").Source("src", img).Source("src", img).Dest("dest", img).Run()
	if err == nil || !strings.Contains(err.Error(), "bound twice") {
		t.Errorf("expected duplicate binding error, got %v", err)
	}
	_, err = jiffle.NewBuilder().Script("dest = src[5, 0];").Source("src", img).NewDest("dest", img.Bounds()).Run()
	if !errors.Is(err, jiffle.ErrOutsideBounds) {
		t.Errorf("expected ErrOutsideBounds, got %v", err)
	}
	images, err := jiffle.NewBuilder().
		Script("dest = x() + y();").
		NewDest("dest", image.Rect(0, 0, 4, 4)).
		World(jiffle.Rect{Width: 2, Height: 2}, 1, 1).
		Run()
	if err != nil {
		t.Fatal(err)
	}
	if v := images["dest"].Sample(3, 3, 0); !math.IsNaN(v) {
		t.Errorf("pixels outside the world must stay untouched, got %v", v)
	}
	if v := images["dest"].Sample(1, 1, 0); v != 2 {
		t.Errorf("dest[1,1] = %v", v)
	}
}
