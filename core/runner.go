package core

import (
	"context"
	"sync"

	"videorag/logging"
)

// Runner accepts units of background work. The orchestrator submits plain
// functions so the pipeline stays independent of any particular concurrency
// runtime; tests can substitute a runner that executes inline.
type Runner interface {
	Submit(job func(ctx context.Context)) bool
}

// PoolRunner executes submitted jobs on a fixed pool of worker goroutines
// fed by a buffered queue.
type PoolRunner struct {
	queue  chan func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *logging.Logger
}

func NewPoolRunner(slots int, log *logging.Logger) *PoolRunner {
	if slots < 1 {
		slots = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &PoolRunner{
		queue:  make(chan func(ctx context.Context), 100),
		ctx:    ctx,
		cancel: cancel,
		log:    log.With("component", "runner"),
	}
	for i := 0; i < slots; i++ {
		r.wg.Add(1)
		go r.workerLoop()
	}
	return r
}

func (r *PoolRunner) workerLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case job := <-r.queue:
			job(r.ctx)
		}
	}
}

// Submit enqueues a job. Returns false when the runner is shut down or the
// queue is full.
func (r *PoolRunner) Submit(job func(ctx context.Context)) bool {
	select {
	case <-r.ctx.Done():
		return false
	default:
	}
	select {
	case r.queue <- job:
		return true
	default:
		r.log.Warn("runner queue full, rejecting job")
		return false
	}
}

// Shutdown stops the workers and waits for in-flight jobs to observe
// cancellation.
func (r *PoolRunner) Shutdown() {
	r.cancel()
	r.wg.Wait()
}

// InlineRunner executes jobs synchronously on the calling goroutine. Used by
// tests and the single-video fast path.
type InlineRunner struct{}

func (InlineRunner) Submit(job func(ctx context.Context)) bool {
	job(context.Background())
	return true
}
