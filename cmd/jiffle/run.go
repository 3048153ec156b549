package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/config"
	"github.com/funvibe/jiffle/internal/executor"
	"github.com/funvibe/jiffle/internal/journal"
	"github.com/funvibe/jiffle/internal/raster"
	"github.com/funvibe/jiffle/internal/runtime"
	"github.com/funvibe/jiffle/pkg/jiffle"
)

func runCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "log executor activity")
	workers := fs.Int("workers", 1, "executor workers")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	r := &runner{
		stdout:   stdout,
		stderr:   stderr,
		logger:   newLogger(stderr, *verbose),
		workers:  *workers,
		progress: isTerminal(stderr),
	}
	if err := r.run(fs.Arg(0)); err != nil {
		var cerr *jiffle.CompileError
		if errors.As(err, &cerr) {
			printDiagnostics(stderr, cerr.Diagnostics)
			return 1
		}
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

type runner struct {
	stdout, stderr io.Writer
	logger         *slog.Logger
	workers        int
	progress       bool
}

// run executes one run file: it loads the rasters, runs the script as a
// single executor job and saves the destinations.
func (r *runner) run(path string) error {
	rf, err := config.LoadRunFile(path)
	if err != nil {
		return err
	}
	text, err := rf.ScriptText()
	if err != nil {
		return err
	}
	mode, err := parseMode(rf.Mode)
	if err != nil {
		return err
	}

	roles := make(map[string]jiffle.ImageRole)
	for _, s := range rf.Sources {
		roles[s.Name] = jiffle.Source
	}
	for _, d := range rf.Destinations {
		roles[d.Name] = jiffle.Dest
	}
	fileName := rf.Script
	if fileName == "" {
		fileName = path
	}
	j, err := jiffle.Compile(text, roles, jiffle.WithMode(mode), jiffle.WithFileName(fileName))
	if err != nil {
		return err
	}
	printDiagnostics(r.stderr, j.Warnings())

	sources, err := loadSources(rf)
	if err != nil {
		return err
	}
	dests, err := createDestinations(rf, sources)
	if err != nil {
		return err
	}

	var job executor.Runner
	if mode == jiffle.Direct {
		job, err = directJob(j, rf, sources, dests)
	} else {
		job, err = indirectJob(j, rf, sources, dests)
	}
	if err != nil {
		return err
	}

	start := time.Now()
	if err := r.submit(rf, job, pixelCount(dests)); err != nil {
		return err
	}
	elapsed := time.Since(start)

	for _, d := range rf.Destinations {
		out := rf.Resolve(d.Path)
		if err := raster.Save(out, dests[d.Name]); err != nil {
			return errors.Wrapf(err, "saving %s", d.Name)
		}
		size := "?"
		if fi, err := os.Stat(out); err == nil {
			size = humanize.Bytes(uint64(fi.Size()))
		}
		b := dests[d.Name].Bounds()
		fmt.Fprintf(r.stdout, "%s: %s pixels -> %s (%s)\n",
			d.Name, humanize.Comma(int64(b.Dx()*b.Dy())), out, size)
	}
	fmt.Fprintf(r.stdout, "done in %s\n", elapsed.Round(time.Millisecond))
	return nil
}

// submit runs job on an executor and waits for its event. Events are
// journaled when the run file names a journal.
func (r *runner) submit(rf *config.RunFile, job executor.Runner, total int64) error {
	exec := executor.New(executor.WithWorkers(r.workers), executor.WithLogger(r.logger))
	waiting := executor.NewWaitingListener(1)
	exec.AddEventListener(waiting)

	if rf.Journal != "" {
		jr, err := journal.Open(rf.Resolve(rf.Journal))
		if err != nil {
			exec.Shutdown()
			return err
		}
		defer jr.Close()
		exec.AddEventListener(jr.Listener(exec.ID().String(), r.logger))
	}

	var progress runtime.ProgressListener
	if r.progress {
		progress = r.progressBar(total)
	}
	if _, err := exec.Submit(executor.Job{Runner: job, Progress: progress}); err != nil {
		exec.Shutdown()
		return err
	}

	// An interrupt stops the scan between rows.
	interrupted, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt)
	finished := make(chan struct{})
	go func() {
		select {
		case <-interrupted.Done():
			exec.Stop()
		case <-finished:
		}
	}()
	exec.Shutdown()
	close(finished)
	stopSignals()

	results := waiting.Results()
	if len(results) != 1 {
		return errors.New("job produced no result")
	}
	return results[0].Err
}

func (r *runner) progressBar(total int64) runtime.ProgressListener {
	interval := total / 50
	if interval < 1 {
		interval = 1
	}
	return &runtime.ProgressFunc{
		Interval: interval,
		Fn: func(done, total int64) {
			pct := 0.0
			if total > 0 {
				pct = 100 * float64(done) / float64(total)
			}
			fmt.Fprintf(r.stderr, "\r%s / %s pixels (%.0f%%)",
				humanize.Comma(done), humanize.Comma(total), pct)
			if done == total {
				fmt.Fprintln(r.stderr)
			}
		},
	}
}

func loadSources(rf *config.RunFile) (map[string]*raster.Raster, error) {
	out := make(map[string]*raster.Raster, len(rf.Sources))
	for _, s := range rf.Sources {
		img, err := raster.Load(rf.Resolve(s.Path))
		if err != nil {
			return nil, errors.Wrapf(err, "loading source %s", s.Name)
		}
		out[s.Name] = img
	}
	return out, nil
}

// createDestinations loads existing destination files; others are new
// NaN-filled rasters of the given size or the size of the first source.
func createDestinations(rf *config.RunFile, sources map[string]*raster.Raster) (map[string]*raster.Raster, error) {
	out := make(map[string]*raster.Raster, len(rf.Destinations))
	for _, d := range rf.Destinations {
		var rect image.Rectangle
		switch {
		case d.Width > 0 && d.Height > 0:
			rect = image.Rect(0, 0, d.Width, d.Height)
		case fileExists(rf.Resolve(d.Path)):
			img, err := raster.Load(rf.Resolve(d.Path))
			if err != nil {
				return nil, errors.Wrapf(err, "loading destination %s", d.Name)
			}
			out[d.Name] = img
			continue
		case len(rf.Sources) > 0:
			rect = sources[rf.Sources[0].Name].Bounds()
		default:
			return nil, errors.Errorf("destination %s has no size", d.Name)
		}
		out[d.Name] = raster.NewFilled(rect, 1, math.NaN())
	}
	return out, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func pixelCount(dests map[string]*raster.Raster) int64 {
	var n int64
	for _, d := range dests {
		b := d.Bounds()
		if c := int64(b.Dx() * b.Dy()); c > n {
			n = c
		}
	}
	return n
}

// evaluatorSetup is implemented by both evaluator flavours.
type evaluatorSetup interface {
	SetSourceImage(name string, img jiffle.Image, tr jiffle.CoordinateTransform) error
	SetWorldByResolution(bounds jiffle.Rect, xres, yres float64) error
	SetWorldByNumPixels(bounds jiffle.Rect, nx, ny int) error
	SetVar(name string, value *float64) error
}

// configure sets the world, the variables and the sources of ev.
func configure(ev evaluatorSetup, rf *config.RunFile, sources map[string]*raster.Raster) error {
	if w := rf.World; w != nil {
		bounds := jiffle.Rect{MinX: w.MinX, MinY: w.MinY, Width: w.Width, Height: w.Height}
		var err error
		if w.NX > 0 || w.NY > 0 {
			err = ev.SetWorldByNumPixels(bounds, w.NX, w.NY)
		} else {
			xres, yres := w.XRes, w.YRes
			if xres == 0 {
				xres = 1
			}
			if yres == 0 {
				yres = 1
			}
			err = ev.SetWorldByResolution(bounds, xres, yres)
		}
		if err != nil {
			return err
		}
	}
	for name, v := range rf.Vars {
		v := v
		if err := ev.SetVar(name, &v); err != nil {
			return err
		}
	}
	for _, s := range rf.Sources {
		if err := ev.SetSourceImage(s.Name, sources[s.Name], transformFor(rf, sources[s.Name])); err != nil {
			return err
		}
	}
	return nil
}

// transformFor stretches the world onto img when the run file sets one.
func transformFor(rf *config.RunFile, img jiffle.Image) jiffle.CoordinateTransform {
	if rf.World == nil {
		return nil
	}
	w := rf.World
	return jiffle.WorldToGrid(jiffle.Rect{MinX: w.MinX, MinY: w.MinY, Width: w.Width, Height: w.Height}, img.Bounds())
}

func directJob(j *jiffle.Jiffle, rf *config.RunFile, sources, dests map[string]*raster.Raster) (executor.Runner, error) {
	ev, err := j.NewDirect()
	if err != nil {
		return nil, err
	}
	if err := configure(ev, rf, sources); err != nil {
		return nil, err
	}
	for _, d := range rf.Destinations {
		if err := ev.SetDestinationImage(d.Name, dests[d.Name], transformFor(rf, dests[d.Name])); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

func indirectJob(j *jiffle.Jiffle, rf *config.RunFile, sources, dests map[string]*raster.Raster) (executor.Runner, error) {
	if len(rf.Destinations) != 1 {
		return nil, errors.Errorf("indirect mode needs exactly one destination, got %d", len(rf.Destinations))
	}
	ev, err := j.NewIndirect()
	if err != nil {
		return nil, err
	}
	if err := configure(ev, rf, sources); err != nil {
		return nil, err
	}
	name := rf.Destinations[0].Name
	return &indirectRunner{ev: ev, name: name, dest: dests[name], world: rf.World}, nil
}

// indirectRunner fills one destination raster from an indirect evaluator,
// one value per destination pixel.
type indirectRunner struct {
	ev    *jiffle.IndirectEvaluator
	name  string
	dest  *raster.Raster
	world *config.WorldSpec
}

// position maps a destination pixel to the world point evaluated for it.
func (r *indirectRunner) position(px, py int) (float64, float64) {
	b := r.dest.Bounds()
	if r.world == nil {
		return float64(px), float64(py)
	}
	xres := r.world.Width / float64(b.Dx())
	yres := r.world.Height / float64(b.Dy())
	return r.world.MinX + float64(px-b.Min.X)*xres, r.world.MinY + float64(py-b.Min.Y)*yres
}

func (r *indirectRunner) EvaluateAllContext(ctx context.Context, listener runtime.ProgressListener) error {
	if listener == nil {
		listener = runtime.NullProgressListener{}
	}
	b := r.dest.Bounds()
	listener.SetTaskSize(int64(b.Dx() * b.Dy()))
	listener.Start()
	interval := listener.UpdateInterval()

	var done, since int64
	for py := b.Min.Y; py < b.Max.Y; py++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for px := b.Min.X; px < b.Max.X; px++ {
			x, y := r.position(px, py)
			v, err := r.ev.Evaluate(x, y)
			if err != nil {
				return errors.Wrapf(err, "pixel %d,%d", px, py)
			}
			r.dest.SetSample(px, py, 0, v)
			done++
			if since++; since >= interval {
				listener.Update(done)
				since = 0
			}
		}
	}
	listener.Finish()
	return nil
}

func (r *indirectRunner) GetImages() map[string]runtime.Image {
	images := r.ev.GetImages()
	images[r.name] = r.dest
	return images
}
