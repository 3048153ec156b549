package journal_test

import (
	"context"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/executor"
	"github.com/funvibe/jiffle/internal/journal"
	"github.com/funvibe/jiffle/internal/raster"
	"github.com/funvibe/jiffle/internal/runtime"
)

type stubRunner struct {
	err    error
	images map[string]runtime.Image
}

func (s *stubRunner) EvaluateAllContext(context.Context, runtime.ProgressListener) error {
	return s.err
}

func (s *stubRunner) GetImages() map[string]runtime.Image { return s.images }

func open(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndList(t *testing.T) {
	j := open(t)
	ctx := context.Background()
	img := raster.New(image.Rect(0, 0, 1, 1), 1)
	runner := &stubRunner{images: map[string]runtime.Image{"dest": img, "src": img}}

	if err := j.Record(ctx, "e1", executor.Result{JobID: 2, Runner: runner, Completed: true}); err != nil {
		t.Fatal(err)
	}
	if err := j.Record(ctx, "e1", executor.Result{JobID: 1, Runner: runner, Err: errors.New("outside")}); err != nil {
		t.Fatal(err)
	}
	if err := j.Record(ctx, "e2", executor.Result{JobID: 1, Completed: true}); err != nil {
		t.Fatal(err)
	}

	events, err := j.Events(ctx, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if ev := events[0]; ev.JobID != 1 || ev.Completed || ev.Error != "outside" {
		t.Errorf("first event = %+v", ev)
	}
	if ev := events[1]; ev.JobID != 2 || !ev.Completed || len(ev.Images) != 2 || ev.Images[0] != "dest" {
		t.Errorf("second event = %+v", ev)
	}
	if time.Since(events[0].RecordedAt) > time.Minute {
		t.Errorf("timestamp %v", events[0].RecordedAt)
	}

	all, err := j.Events(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 events, got %d", len(all))
	}
}

func TestListenerRecordsExecutorEvents(t *testing.T) {
	j := open(t)
	e := executor.New(executor.WithWorkers(3))
	waiter := executor.NewWaitingListener(10)
	// Registered first so the journal row exists before the waiter fires.
	e.AddEventListener(j.Listener(e.ID().String(), nil))
	e.AddEventListener(waiter)
	for i := 0; i < 10; i++ {
		runner := &stubRunner{}
		if i%2 == 0 {
			runner.err = errors.New("failed")
		}
		if _, err := e.Submit(executor.Job{Runner: runner}); err != nil {
			t.Fatal(err)
		}
	}
	if !waiter.Await(5 * time.Second) {
		t.Fatal("jobs did not finish")
	}
	e.Shutdown()

	events, err := j.Events(context.Background(), e.ID().String())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 10 {
		t.Fatalf("expected 10 events, got %d", len(events))
	}
	failed := 0
	for _, ev := range events {
		if !ev.Completed {
			failed++
		}
	}
	if failed != 5 {
		t.Errorf("expected 5 failures, got %d", failed)
	}
}

func TestReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Record(context.Background(), "e", executor.Result{JobID: 7, Completed: true}); err != nil {
		t.Fatal(err)
	}
	j.Close()

	j, err = journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	events, err := j.Events(context.Background(), "e")
	if err != nil || len(events) != 1 || events[0].JobID != 7 {
		t.Errorf("events = %+v, %v", events, err)
	}
}
