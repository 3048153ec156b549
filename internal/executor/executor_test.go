package executor_test

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/analyzer"
	"github.com/funvibe/jiffle/internal/backend"
	"github.com/funvibe/jiffle/internal/executor"
	"github.com/funvibe/jiffle/internal/ir"
	"github.com/funvibe/jiffle/internal/lexer"
	"github.com/funvibe/jiffle/internal/parser"
	"github.com/funvibe/jiffle/internal/pipeline"
	"github.com/funvibe/jiffle/internal/raster"
	"github.com/funvibe/jiffle/internal/runtime"
)

type fakeRunner struct {
	err     error
	panics  bool
	started chan struct{}
	release chan struct{}

	// untilCancelled makes the job run until its context is cancelled.
	untilCancelled bool
}

func (f *fakeRunner) EvaluateAllContext(ctx context.Context, l runtime.ProgressListener) error {
	if f.started != nil {
		close(f.started)
	}
	if f.untilCancelled {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.release != nil {
		<-f.release
	}
	if f.panics {
		panic("boom")
	}
	return f.err
}

func (f *fakeRunner) GetImages() map[string]runtime.Image { return nil }

// countingListener records how often each job id was delivered.
type countingListener struct {
	mu        sync.Mutex
	completed map[int]int
	failed    map[int]int
}

func newCountingListener() *countingListener {
	return &countingListener{completed: make(map[int]int), failed: make(map[int]int)}
}

func (c *countingListener) OnCompletionEvent(r executor.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed[r.JobID]++
}

func (c *countingListener) OnFailureEvent(r executor.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[r.JobID]++
}

func TestExactlyOnceDelivery(t *testing.T) {
	const jobs = 200
	e := executor.New(executor.WithWorkers(8), executor.WithQueueCapacity(4))
	counter := newCountingListener()
	waiter := executor.NewWaitingListener(jobs)
	e.AddEventListener(counter)
	e.AddEventListener(waiter)

	ids := make(chan int, jobs)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < jobs/10; i++ {
				runner := &fakeRunner{}
				if i%7 == 0 {
					runner.err = errors.New("bad pixel")
				}
				id, err := e.Submit(executor.Job{Runner: runner})
				if err != nil {
					t.Error(err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	if !waiter.Await(10 * time.Second) {
		t.Fatalf("only %d of %d results arrived", len(waiter.Results()), jobs)
	}
	e.Shutdown()

	seen := make(map[int]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("id %d assigned twice", id)
		}
		seen[id] = true
		if n := counter.completed[id] + counter.failed[id]; n != 1 {
			t.Errorf("job %d delivered %d times", id, n)
		}
	}
	if len(seen) != jobs || len(waiter.Results()) != jobs {
		t.Errorf("expected %d jobs, saw %d ids and %d results", jobs, len(seen), len(waiter.Results()))
	}
	if len(counter.failed) == 0 {
		t.Error("expected some failure events")
	}
}

func TestCancelOnlyWhilePending(t *testing.T) {
	e := executor.New(executor.WithWorkers(1))
	defer e.Shutdown()
	waiter := executor.NewWaitingListener(1)
	e.AddEventListener(waiter)

	first := &fakeRunner{started: make(chan struct{}), release: make(chan struct{})}
	id1, err := e.Submit(executor.Job{Runner: first})
	if err != nil {
		t.Fatal(err)
	}
	<-first.started
	id2, err := e.Submit(executor.Job{Runner: &fakeRunner{}})
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id1+1 {
		t.Errorf("ids should increase: %d then %d", id1, id2)
	}
	if e.Cancel(id1) {
		t.Error("a running job must not be cancellable")
	}
	if !e.Cancel(id2) {
		t.Error("a pending job should be cancellable")
	}
	if e.Cancel(id2) {
		t.Error("a job can be cancelled only once")
	}
	close(first.release)

	if !waiter.Await(5 * time.Second) {
		t.Fatal("first job never finished")
	}
	time.Sleep(50 * time.Millisecond)
	results := waiter.Results()
	if len(results) != 1 || results[0].JobID != id1 || !results[0].Completed {
		t.Errorf("results = %+v", results)
	}
}

func TestRunnerOwnedByOneJob(t *testing.T) {
	e := executor.New(executor.WithWorkers(1))
	defer e.Shutdown()
	waiter := executor.NewWaitingListener(2)
	e.AddEventListener(waiter)

	runner := &fakeRunner{started: make(chan struct{}), release: make(chan struct{})}
	if _, err := e.Submit(executor.Job{Runner: runner}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Submit(executor.Job{Runner: runner}); !errors.Is(err, executor.ErrRunnerBusy) {
		t.Errorf("expected ErrRunnerBusy, got %v", err)
	}
	<-runner.started
	close(runner.release)

	other := &fakeRunner{}
	if _, err := e.Submit(executor.Job{Runner: other}); err != nil {
		t.Fatal(err)
	}
	if !waiter.Await(5 * time.Second) {
		t.Fatal("jobs did not finish")
	}
	runner.started, runner.release = nil, nil
	if _, err := e.Submit(executor.Job{Runner: runner}); err != nil {
		t.Errorf("a finished runner can be resubmitted: %v", err)
	}
}

func TestFailureEvents(t *testing.T) {
	e := executor.New(executor.WithWorkers(2))
	waiter := executor.NewWaitingListener(2)
	e.AddEventListener(waiter)

	cause := errors.New("outside")
	e.Submit(executor.Job{Runner: &fakeRunner{err: cause}})
	e.Submit(executor.Job{Runner: &fakeRunner{panics: true}})
	if !waiter.Await(5 * time.Second) {
		t.Fatal("jobs did not finish")
	}
	e.Shutdown()

	var sawCause, sawPanic bool
	for _, r := range waiter.Results() {
		if r.Completed {
			t.Errorf("job %d reported as completed", r.JobID)
		}
		sawCause = sawCause || errors.Is(r.Err, cause)
		sawPanic = sawPanic || errors.Is(r.Err, executor.ErrPanic)
	}
	if !sawCause || !sawPanic {
		t.Errorf("results = %+v", waiter.Results())
	}
}

func TestShutdown(t *testing.T) {
	e := executor.New()
	e.Shutdown()
	e.Shutdown()
	if _, err := e.Submit(executor.Job{Runner: &fakeRunner{}}); !errors.Is(err, executor.ErrShutdown) {
		t.Errorf("expected ErrShutdown, got %v", err)
	}
}

func TestStopCancelsRunningJobs(t *testing.T) {
	e := executor.New(executor.WithWorkers(1))
	counter := newCountingListener()
	waiter := executor.NewWaitingListener(1)
	e.AddEventListener(counter)
	e.AddEventListener(waiter)

	running := &fakeRunner{started: make(chan struct{}), untilCancelled: true}
	id1, err := e.Submit(executor.Job{Runner: running})
	if err != nil {
		t.Fatal(err)
	}
	<-running.started
	id2, err := e.Submit(executor.Job{Runner: &fakeRunner{}})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not cancel the running job")
	}

	results := waiter.Results()
	if len(results) != 1 || results[0].JobID != id1 || !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("results = %+v", results)
	}
	if counter.completed[id2]+counter.failed[id2] != 0 {
		t.Error("a dropped job must produce no events")
	}
	if _, err := e.Submit(executor.Job{Runner: &fakeRunner{}}); !errors.Is(err, executor.ErrShutdown) {
		t.Errorf("expected ErrShutdown after Stop, got %v", err)
	}
}

func TestRemoveEventListener(t *testing.T) {
	e := executor.New(executor.WithWorkers(1))
	removed := newCountingListener()
	waiter := executor.NewWaitingListener(1)
	e.AddEventListener(removed)
	e.AddEventListener(waiter)
	e.RemoveEventListener(removed)
	e.Submit(executor.Job{Runner: &fakeRunner{}})
	waiter.Await(5 * time.Second)
	e.Shutdown()
	if len(removed.completed) != 0 {
		t.Error("removed listener received events")
	}
}

func TestRunsRealScan(t *testing.T) {
	ctx := pipeline.NewPipelineContext("dest = x() + y() * 10;")
	ctx.ImageRoles["dest"] = ir.RoleDest
	lower := &backend.LowerProcessor{}
	pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&analyzer.ScopeProcessor{},
		&analyzer.TypeCheckProcessor{},
		lower,
	).Run(ctx)
	if lower.Program == nil {
		t.Fatal("compile failed")
	}
	rt := runtime.New(lower.Program)
	dest := raster.New(image.Rect(0, 0, 3, 3), 1)
	rt.SetDestinationImage("dest", dest, nil)

	e := executor.New(executor.WithWorkers(2))
	waiter := executor.NewWaitingListener(1)
	e.AddEventListener(waiter)
	if _, err := e.Submit(executor.Job{Runner: rt}); err != nil {
		t.Fatal(err)
	}
	if !waiter.Await(5 * time.Second) {
		t.Fatal("job did not finish")
	}
	e.Shutdown()

	res := waiter.Results()[0]
	if !res.Completed {
		t.Fatalf("job failed: %v", res.Err)
	}
	out := res.Images()["dest"]
	if got := out.Sample(2, 1, 0); got != 12 {
		t.Errorf("dest[2,1] = %v, want 12", got)
	}
}
