package executor

import (
	"sync"
	"time"
)

// WaitingListener collects results until an expected number of jobs has
// finished.
type WaitingListener struct {
	mu       sync.Mutex
	expected int
	results  []Result
	done     chan struct{}
}

func NewWaitingListener(expected int) *WaitingListener {
	w := &WaitingListener{expected: expected, done: make(chan struct{})}
	if expected <= 0 {
		close(w.done)
	}
	return w
}

func (w *WaitingListener) OnCompletionEvent(r Result) { w.record(r) }
func (w *WaitingListener) OnFailureEvent(r Result)    { w.record(r) }

func (w *WaitingListener) record(r Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = append(w.results, r)
	if len(w.results) == w.expected {
		close(w.done)
	}
}

// Await blocks until the expected results arrived or timeout passed. It
// reports whether all results arrived.
func (w *WaitingListener) Await(timeout time.Duration) bool {
	select {
	case <-w.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Results returns the results received so far in arrival order.
func (w *WaitingListener) Results() []Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Result(nil), w.results...)
}
