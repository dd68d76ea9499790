package worker

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/instaflow/pkg/utils/errutil"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
)

// Job is one cycle of a periodic worker
type Job func(ctx context.Context) error

// Worker runs a job on a fixed interval in the background.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - A failed cycle is logged and retried at the next tick
type Worker struct {
	name     string
	interval time.Duration
	job      Job
	runFirst bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type Option func(*Worker)

// WithImmediateRun runs the job once at start instead of waiting for the first tick
func WithImmediateRun() Option {
	return func(w *Worker) {
		w.runFirst = true
	}
}

func New(name string, interval time.Duration, job Job, opts ...Option) *Worker {
	w := &Worker{
		name:     name,
		interval: interval,
		job:      job,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the loop without blocking
func (w *Worker) Start(ctx context.Context) {
	logging.From(ctx).Info("worker starting", "worker", w.name, "interval", w.interval.String())
	go w.run(ctx)
}

// Stop signals the worker and waits for the running cycle to finish
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
	logging.Default().Info("worker stopped", "worker", w.name)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	if w.runFirst {
		w.cycle(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.cycle(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			logging.From(ctx).Info("worker context cancelled", "worker", w.name)
			return
		}
	}
}

func (w *Worker) cycle(ctx context.Context) {
	start := time.Now()
	if err := w.job(ctx); err != nil {
		_ = errutil.Handle(ctx, err, "worker cycle failed (will retry next interval)")
		return
	}
	logging.From(ctx).Debug("worker cycle completed", "worker", w.name, "duration", time.Since(start).String())
}
