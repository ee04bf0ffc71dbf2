package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Job is one unit of background work. While a job with a given Key is queued
// or running, further submissions with the same Key are dropped.
type Job struct {
	Key string
	Run func(ctx context.Context)
}

// Pool runs jobs on a fixed number of goroutines fed by a bounded queue.
// Submissions never block: a full queue drops the job.
type Pool struct {
	jobs chan Job
	wg   sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewPool(queueSize int) *Pool {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		jobs:     make(chan Job, queueSize),
		inflight: make(map[string]struct{}),
	}
}

// Start launches numWorkers goroutines consuming the queue until ctx ends.
// Each goroutine blocks on the channel, zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// Submit enqueues job and reports whether it was accepted.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	if _, busy := p.inflight[job.Key]; busy {
		p.mu.Unlock()
		return false
	}
	p.inflight[job.Key] = struct{}{}
	p.mu.Unlock()

	select {
	case p.jobs <- job:
		return true
	default:
		p.done(job.Key)
		log.Warn().Str("key", job.Key).Msg("worker: cola llena, se descarta el trabajo")
		return false
	}
}

// Pending reports how many jobs are queued or running.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

// Wait blocks until every worker has exited after its context ended.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		case job := <-p.jobs:
			p.process(ctx, job)
		}
	}
}

func (p *Pool) process(ctx context.Context, job Job) {
	defer p.done(job.Key)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("key", job.Key).Interface("panic", r).Msg("worker: panic en trabajo")
		}
	}()
	job.Run(ctx)
}

func (p *Pool) done(key string) {
	p.mu.Lock()
	delete(p.inflight, key)
	p.mu.Unlock()
}
