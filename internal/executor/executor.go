// Package executor runs scan jobs on a fixed pool of workers and reports
// each finished job exactly once to every registered listener.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/jiffle/internal/runtime"
)

var (
	// ErrRunnerBusy is returned when a runner already belongs to a pending
	// or running job.
	ErrRunnerBusy = errors.New("runner is owned by another job")
	// ErrShutdown is returned by Submit after Shutdown.
	ErrShutdown = errors.New("executor is shut down")
	// ErrPanic wraps a panic raised while a job was running.
	ErrPanic = errors.New("job panicked")
)

// Runner is a bound evaluator that can scan its world.
// *runtime.Runtime implements it.
type Runner interface {
	EvaluateAllContext(ctx context.Context, listener runtime.ProgressListener) error
	GetImages() map[string]runtime.Image
}

// Job is one scan. Progress may be nil.
type Job struct {
	Runner   Runner
	Progress runtime.ProgressListener
}

// Result describes a finished job.
type Result struct {
	JobID     int
	Runner    Runner
	Completed bool
	Err       error
}

// Images returns the images bound to the job's runner.
func (r Result) Images() map[string]runtime.Image {
	return r.Runner.GetImages()
}

// Listener receives job results. Methods may be called concurrently from
// several workers.
type Listener interface {
	OnCompletionEvent(Result)
	OnFailureEvent(Result)
}

type task struct {
	id        int
	job       Job
	cancelled bool
}

type Executor struct {
	id     uuid.UUID
	logger *slog.Logger

	queue  chan *task
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	// sendMu is held for reading while a task is queued and for writing
	// when the queue is closed.
	sendMu sync.RWMutex

	mu        sync.Mutex
	nextID    int
	pending   map[int]*task
	busy      map[Runner]int
	listeners []Listener
	closed    bool
}

// New starts the workers.
func New(opts ...Option) *Executor {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	group := new(errgroup.Group)
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		id:      uuid.New(),
		queue:   make(chan *task, cfg.queueCapacity),
		group:   group,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[int]*task),
		busy:    make(map[Runner]int),
	}
	e.logger = cfg.logger.With("executor", e.id.String())
	for i := 0; i < cfg.workers; i++ {
		worker := i
		group.Go(func() error {
			e.work(worker)
			return nil
		})
	}
	e.logger.Debug("executor started", "workers", cfg.workers, "queue", cfg.queueCapacity)
	return e
}

// ID identifies the executor in logs and journals.
func (e *Executor) ID() uuid.UUID { return e.id }

// AddEventListener registers l for all jobs finishing from now on.
func (e *Executor) AddEventListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// RemoveEventListener unregisters l.
func (e *Executor) RemoveEventListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, cur := range e.listeners {
		if cur == l {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Submit queues job and returns its id. Ids increase from 1. Submit
// blocks while the queue is full.
func (e *Executor) Submit(job Job) (int, error) {
	if job.Runner == nil {
		return 0, errors.New("job has no runner")
	}
	e.sendMu.RLock()
	defer e.sendMu.RUnlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0, ErrShutdown
	}
	if owner, ok := e.busy[job.Runner]; ok {
		e.mu.Unlock()
		return 0, errors.Wrapf(ErrRunnerBusy, "job %d", owner)
	}
	e.nextID++
	t := &task{id: e.nextID, job: job}
	e.pending[t.id] = t
	e.busy[job.Runner] = t.id
	e.mu.Unlock()

	e.queue <- t
	e.logger.Debug("job submitted", "job", t.id)
	return t.id, nil
}

// Cancel removes a job that has not started. It reports false when the
// job is unknown, running or finished. Cancelled jobs produce no events.
func (e *Executor) Cancel(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.pending[id]
	if !ok {
		return false
	}
	t.cancelled = true
	delete(e.pending, id)
	delete(e.busy, t.job.Runner)
	e.logger.Debug("job cancelled", "job", id)
	return true
}

// Pending returns the number of queued jobs that have not started.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Shutdown stops accepting jobs, lets queued jobs run and waits for the
// workers to exit.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	already := e.closed
	e.closed = true
	e.mu.Unlock()
	if already {
		return
	}
	e.sendMu.Lock()
	close(e.queue)
	e.sendMu.Unlock()
	_ = e.group.Wait()
	e.cancel()
	e.logger.Debug("executor stopped")
}

// Stop drops pending jobs, cancels the context of running jobs and waits
// for the workers like Shutdown. Running jobs end with the context error
// and report a failure; dropped jobs produce no events.
func (e *Executor) Stop() {
	e.mu.Lock()
	for id, t := range e.pending {
		t.cancelled = true
		delete(e.pending, id)
		delete(e.busy, t.job.Runner)
	}
	e.mu.Unlock()
	e.cancel()
	e.Shutdown()
}

func (e *Executor) work(worker int) {
	for t := range e.queue {
		e.mu.Lock()
		if t.cancelled {
			e.mu.Unlock()
			continue
		}
		delete(e.pending, t.id)
		e.mu.Unlock()

		err := e.run(t)

		e.mu.Lock()
		delete(e.busy, t.job.Runner)
		listeners := append([]Listener(nil), e.listeners...)
		e.mu.Unlock()

		res := Result{JobID: t.id, Runner: t.job.Runner, Completed: err == nil, Err: err}
		if err != nil {
			e.logger.Warn("job failed", "job", t.id, "worker", worker, "error", err)
			for _, l := range listeners {
				l.OnFailureEvent(res)
			}
			continue
		}
		e.logger.Info("job completed", "job", t.id, "worker", worker)
		for _, l := range listeners {
			l.OnCompletionEvent(res)
		}
	}
}

func (e *Executor) run(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(ErrPanic, fmt.Sprint(r))
		}
	}()
	return t.job.Runner.EvaluateAllContext(e.ctx, t.job.Progress)
}
