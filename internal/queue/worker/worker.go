// Package worker consumes the job queue with a fixed pool of goroutines.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/tourhub/internal/jobs"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/queue"
	"golang.org/x/sync/errgroup"
)

type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (jobs.Job, error)
	Retry(ctx context.Context, j jobs.Job, at time.Time) error
	DeadLetter(ctx context.Context, j jobs.Job) error
	PromoteDue(ctx context.Context, now time.Time, batch int) (int, error)
	Ping(ctx context.Context) error
}

type Handler interface {
	Handle(ctx context.Context, j jobs.Job) error
}

type Config struct {
	WorkerID        string
	Concurrency     int
	PopTimeout      time.Duration
	JobTimeout      time.Duration
	PromoteInterval time.Duration
}

type Worker struct {
	cfg     Config
	queue   Queue
	handler Handler
	log     *slog.Logger
	metrics *observability.JobMetrics
	prom    *observability.Prom
	now     func() time.Time
	backoff func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, q Queue, h Handler, log *slog.Logger, prom *observability.Prom) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.PromoteInterval <= 0 {
		cfg.PromoteInterval = time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:     cfg,
		queue:   q,
		handler: h,
		log:     log.With("worker_id", cfg.WorkerID),
		metrics: observability.NewJobMetrics(),
		prom:    prom,
		now:     time.Now,
		backoff: ExponentialBackoff,
	}
}

func (w *Worker) Metrics() *observability.JobMetrics { return w.metrics }

// Run processes jobs until ctx is cancelled. In-flight jobs finish with their
// own timeout.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				if _, err := w.ProcessOne(gctx); err != nil && gctx.Err() == nil {
					w.log.Error("worker.process_failed", "err", err)
					sleep(gctx, w.cfg.PopTimeout)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.cfg.PromoteInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := w.queue.PromoteDue(gctx, w.now(), 100)
				if err != nil {
					if gctx.Err() == nil {
						w.log.Error("worker.promote_failed", "err", err)
					}
					continue
				}
				w.metrics.AddPromoted(n)
			}
		}
	})

	return g.Wait()
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isEmpty(err error) bool {
	return errors.Is(err, queue.ErrEmpty)
}
