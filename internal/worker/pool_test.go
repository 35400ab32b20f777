package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubResult struct {
	err error
}

func (r *stubResult) GetError() error { return r.err }

// stubJob counts executions and optionally fails or blocks.
type stubJob struct {
	fail     bool
	block    time.Duration
	executed *int32
	started  chan struct{}
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.started != nil {
		close(j.started)
	}
	if j.block > 0 {
		select {
		case <-time.After(j.block):
		case <-ctx.Done():
			return &stubResult{err: ctx.Err()}
		}
	}
	if j.fail {
		return &stubResult{err: errors.New("job error")}
	}
	return &stubResult{}
}

func TestNewPool_WorkerFloor(t *testing.T) {
	for _, workers := range []int{0, -3} {
		if p := NewPool(workers); p.workers != 1 {
			t.Errorf("NewPool(%d).workers = %d, want 1", workers, p.workers)
		}
	}
	if p := NewPool(4); p.workers != 4 {
		t.Errorf("NewPool(4).workers = %d", p.workers)
	}
}

func TestPool_RunsEveryJob(t *testing.T) {
	pool := NewPool(3)
	pool.Start()

	var executed int32
	const count = 12
	for i := 0; i < count; i++ {
		pool.Submit(&stubJob{executed: &executed})
	}

	results := pool.Wait()
	if len(results) != count {
		t.Errorf("results = %d, want %d", len(results), count)
	}
	if got := atomic.LoadInt32(&executed); got != count {
		t.Errorf("executed = %d, want %d", got, count)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 4
	pool := NewPool(workers)
	pool.Start()

	var current, peak int32
	for i := 0; i < 20; i++ {
		pool.Submit(&trackedJob{current: &current, peak: &peak})
	}
	pool.Wait()

	if got := atomic.LoadInt32(&peak); got > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", got, workers)
	}
}

// trackedJob records the peak number of jobs running at once.
type trackedJob struct {
	current *int32
	peak    *int32
}

func (j *trackedJob) Execute(context.Context) Result {
	n := atomic.AddInt32(j.current, 1)
	for {
		old := atomic.LoadInt32(j.peak)
		if n <= old || atomic.CompareAndSwapInt32(j.peak, old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(j.current, -1)
	return &stubResult{}
}

func TestPool_CollectsFailures(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&stubJob{fail: true})
	pool.Submit(&stubJob{})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	failures := 0
	for _, r := range results {
		if r.GetError() != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
}

func TestPool_SubmitAfterShutdownDoesNotBlock(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		pool.Submit(&stubJob{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit after Shutdown blocked")
	}
}

func TestPool_ShutdownCancelsInFlightJobs(t *testing.T) {
	pool := NewPool(1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&stubJob{block: 5 * time.Second, started: started})
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not cancel the running job")
	}
}
