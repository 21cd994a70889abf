package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/pipeline"
	"github.com/cdaprod/captioner/internal/types"
)

type runnerFunc func(ctx context.Context, req pipeline.Request) (types.CaptionPaths, error)

func (f runnerFunc) Generate(ctx context.Context, req pipeline.Request) (types.CaptionPaths, error) {
	return f(ctx, req)
}

func waitForStatus(t *testing.T, wp *WorkerPool, id string, status string) types.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := wp.Get(id)
		if ok && snap.Status == status {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := wp.Get(id)
	t.Fatalf("job %s never reached %s (last: %+v)", id, status, snap)
	return types.JobSnapshot{}
}

func TestWorkerPoolCompletesJob(t *testing.T) {
	wp := NewWorkerPool(2, runnerFunc(func(_ context.Context, req pipeline.Request) (types.CaptionPaths, error) {
		return types.CaptionPaths{VideoRelPath: req.VideoRelPath, SRTRelPath: "captions/demo__0123456789.srt"}, nil
	}), nil)
	wp.Start()
	defer wp.Stop()

	snap, err := wp.Enqueue(context.Background(), pipeline.Request{Project: "Demo", VideoRelPath: "ingest/demo.mp4"})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if snap.Status != types.StatusQueued || snap.ID == "" {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}

	done := waitForStatus(t, wp, snap.ID, types.StatusCompleted)
	if done.Result == nil || done.Result.SRTRelPath != "captions/demo__0123456789.srt" {
		t.Fatalf("unexpected result %+v", done.Result)
	}
	if done.FinishedAt == nil || done.Error != "" {
		t.Fatalf("unexpected completion fields %+v", done)
	}
}

func TestWorkerPoolRecordsFailures(t *testing.T) {
	wp := NewWorkerPool(1, runnerFunc(func(context.Context, pipeline.Request) (types.CaptionPaths, error) {
		return types.CaptionPaths{}, apperr.Validation("no words produced")
	}), nil)
	wp.Start()
	defer wp.Stop()

	snap, err := wp.Enqueue(context.Background(), pipeline.Request{Project: "Demo", VideoRelPath: "ingest/silent.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	failed := waitForStatus(t, wp, snap.ID, types.StatusFailed)
	if failed.Error != "no words produced" {
		t.Fatalf("unexpected error text %q", failed.Error)
	}
	if failed.Result != nil {
		t.Fatal("failed job must not carry a result")
	}
}

func TestWorkerPoolRecoversFromPanic(t *testing.T) {
	var calls atomic.Int32
	wp := NewWorkerPool(1, runnerFunc(func(context.Context, pipeline.Request) (types.CaptionPaths, error) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return types.CaptionPaths{SRTRelPath: "captions/ok.srt"}, nil
	}), nil)
	wp.Start()
	defer wp.Stop()

	first, _ := wp.Enqueue(context.Background(), pipeline.Request{Project: "Demo"})
	second, _ := wp.Enqueue(context.Background(), pipeline.Request{Project: "Demo"})

	failed := waitForStatus(t, wp, first.ID, types.StatusFailed)
	if failed.Error != "worker panic: boom" {
		t.Fatalf("unexpected panic message %q", failed.Error)
	}
	waitForStatus(t, wp, second.ID, types.StatusCompleted)
}

func TestWorkerPoolRetainsBoundedHistory(t *testing.T) {
	wp := NewWorkerPool(4, runnerFunc(func(context.Context, pipeline.Request) (types.CaptionPaths, error) {
		return types.CaptionPaths{}, nil
	}), nil)
	wp.Start()

	ids := make([]string, 0, MaxRetainedJobs+10)
	for i := 0; i < MaxRetainedJobs+10; i++ {
		snap, err := wp.Enqueue(context.Background(), pipeline.Request{Project: "Demo"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, snap.ID)
	}
	wp.Stop()

	wp.mu.Lock()
	retained := len(wp.jobs)
	wp.mu.Unlock()
	if retained != MaxRetainedJobs {
		t.Fatalf("expected %d retained jobs, got %d", MaxRetainedJobs, retained)
	}
	if _, ok := wp.Get(ids[len(ids)-1]); !ok {
		t.Fatal("most recent job should still be queryable")
	}
}

func TestEnqueueFullQueueHonoursContext(t *testing.T) {
	wp := NewWorkerPool(1, runnerFunc(func(context.Context, pipeline.Request) (types.CaptionPaths, error) {
		return types.CaptionPaths{}, nil
	}), nil)
	// workers are not started, so the buffer fills up
	for i := 0; i < queueCapacity; i++ {
		if _, err := wp.Enqueue(context.Background(), pipeline.Request{}); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := wp.Enqueue(ctx, pipeline.Request{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	wp.Stop()
	if _, err := wp.Enqueue(context.Background(), pipeline.Request{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestGetUnknownJob(t *testing.T) {
	wp := NewWorkerPool(1, nil, nil)
	if _, ok := wp.Get("missing"); ok {
		t.Fatal("expected unknown job lookup to fail")
	}
}
