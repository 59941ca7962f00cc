package sqlfailover

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// workerPool fans a slice of targets out across a fixed number of worker
// goroutines, adapted from the teacher's channel-plus-worker-goroutines
// job queue: a job channel feeds N workers, a WaitGroup signals
// completion. Unlike the teacher's RequestQueue, this pool is
// fire-and-forget per sweep (initiate or poll) — each sweep is its own
// short-lived pool rather than a long-running service, since spec §5
// requires no cross-target coupling beyond belonging to the same sweep.
type workerPool struct {
	jobs    chan *Target
	fn      func(*Target)
	limiter *rate.Limiter
	wg      sync.WaitGroup
}

// runConcurrent applies fn to every target in items, at most concurrency
// at a time, each call paced by limiter (if non-nil) so a wide pool does
// not burst the management plane within one sweep. concurrency <= 1 runs
// items serially in order, satisfying spec §5's "specification-minimum"
// serial execution model; concurrency > 1 is the optional parallel mode,
// still satisfying invariant (i) since each job channel entry is a
// distinct target touched by exactly one worker.
func runConcurrent(items []*Target, concurrency int, limiter *rate.Limiter, fn func(*Target)) {
	if concurrency <= 1 || len(items) <= 1 {
		for _, t := range items {
			waitLimiter(limiter)
			fn(t)
		}
		return
	}

	if concurrency > len(items) {
		concurrency = len(items)
	}

	p := &workerPool{jobs: make(chan *Target, len(items)), fn: fn, limiter: limiter}
	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	for _, t := range items {
		p.jobs <- t
	}
	close(p.jobs)
	p.wg.Wait()
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for t := range p.jobs {
		waitLimiter(p.limiter)
		p.fn(t)
	}
}

func waitLimiter(limiter *rate.Limiter) {
	if limiter == nil {
		return
	}
	_ = limiter.Wait(context.Background())
}
