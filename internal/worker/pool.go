package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type queuedJob struct {
	seq int
	job Job
}

type jobResult struct {
	seq    int
	result Result
}

// Pool runs jobs on a fixed number of workers. Wait returns results in
// submission order regardless of which worker finished first.
type Pool struct {
	workers    int
	jobQueue   chan queuedJob
	results    chan jobResult
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	collected  chan struct{}
	started    bool

	mu        sync.Mutex
	submitted int
	done      map[int]Result
}

// NewPool creates a pool whose jobs are cancelled with ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan queuedJob, workers*2),
		results:    make(chan jobResult, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
		collected:  make(chan struct{}),
		done:       make(map[int]Result),
	}
}

// Start starts the worker goroutines and the result collector
func (p *Pool) Start() {
	p.started = true
	go p.collect()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// collect drains results as they arrive so workers never wait on Wait
func (p *Pool) collect() {
	defer close(p.collected)
	for r := range p.results {
		p.mu.Lock()
		p.done[r.seq] = r.result
		p.mu.Unlock()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.jobQueue:
			if !ok {
				return
			}
			res := q.job.Execute(p.ctx)
			select {
			case p.results <- jobResult{seq: q.seq, result: res}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job; it returns false if the pool was cancelled first
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	seq := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- queuedJob{seq: seq, job: job}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns the results in
// submission order. Jobs dropped by cancellation leave a nil slot.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	if p.started {
		<-p.collected
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ordered := make([]Result, p.submitted)
	for seq, r := range p.done {
		if seq < len(ordered) {
			ordered[seq] = r
		}
	}
	return ordered
}

// Shutdown cancels outstanding jobs and stops the workers
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
