package service

import (
	"runtime"
	"sync"
)

// refreshPool runs background cache reconciliation jobs with bounded
// concurrency, so a burst of settlements cannot stampede the remote API.
type refreshPool struct {
	workers  int
	jobQueue chan func()
	once     sync.Once

	mu     sync.Mutex
	closed bool
}

// newRefreshPool creates a pool with the specified number of workers
func newRefreshPool(workers int) *refreshPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &refreshPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start launches the workers
func (p *refreshPool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			go p.worker()
		}
	})
}

func (p *refreshPool) worker() {
	for job := range p.jobQueue {
		job()
	}
}

// Submit queues a job. Jobs submitted after Close are dropped; a refresh
// lost at shutdown is harmless because the cache dies with the process.
func (p *refreshPool) Submit(job func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.jobQueue <- job
}

// Close shuts down the pool; queued jobs still drain
func (p *refreshPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.jobQueue)
}
