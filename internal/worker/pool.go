package worker

import (
	"context"
	"sync"
)

// Job is one unit of work, typically a single question.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job produces.
type Result interface {
	GetError() error
}

// Pool executes jobs with a fixed number of workers. Usage is
// Start, Submit repeatedly, then Wait once. Shutdown aborts early.
type Pool struct {
	workers int
	jobs    chan Job

	mu      sync.Mutex
	results []Result

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a pool with the given worker count, at least one.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			p.mu.Lock()
			p.results = append(p.results, result)
			p.mu.Unlock()
		}
	}
}

// Submit queues a job. A no-op after Shutdown, so late submitters never
// block on a dead pool.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobs <- job:
	}
}

// Wait closes the queue, lets the workers drain it, and returns every
// collected result. Call exactly once, after all Submits.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}

// Shutdown cancels in-flight jobs and stops the workers. Results
// collected so far remain available via the pool.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
