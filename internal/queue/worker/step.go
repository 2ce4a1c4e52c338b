package worker

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/tourhub/internal/jobs"
)

// ProcessOne pops and executes at most one job. It reports whether a job was
// taken off the queue.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	j, err := w.queue.Pop(ctx, w.cfg.PopTimeout)
	if err != nil {
		if isEmpty(err) || errors.Is(err, context.Canceled) {
			return false, nil
		}
		if jobs.Permanent(err) {
			w.log.Warn("worker.undecodable_job", "err", err)
			return true, nil
		}
		return false, err
	}
	w.metrics.IncPopped()

	start := w.now()
	err = w.execute(ctx, j)
	d := w.now().Sub(start)
	w.metrics.ObserveDuration(d)

	if err != nil {
		w.handleFailure(ctx, j, err, d)
		return true, nil
	}

	w.metrics.IncDone()
	w.prom.ObserveJob(string(j.Type), "done", d)
	w.log.Info("worker.job_done", "job_id", j.ID, "job_type", j.Type, "attempt", j.Attempts+1)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.JobTimeout)
	defer cancel()
	return w.handler.Handle(jobCtx, j)
}

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, cause error, d time.Duration) {
	j.Attempts++
	j.LastError = cause.Error()

	// Persist the outcome even when shutdown has begun.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if jobs.Permanent(cause) || j.Exhausted() {
		w.metrics.IncDeadLettered()
		w.prom.ObserveJob(string(j.Type), "dead", d)
		w.log.Error("worker.job_dead", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "err", cause)
		if err := w.queue.DeadLetter(ctx, j); err != nil {
			w.log.Error("worker.dead_letter_failed", "job_id", j.ID, "err", err)
		}
		return
	}

	at := w.now().Add(w.backoff(j.Attempts - 1))
	w.metrics.IncRetried()
	w.prom.ObserveJob(string(j.Type), "retry", d)
	w.log.Warn("worker.job_retry", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "run_at", at, "err", cause)
	if err := w.queue.Retry(ctx, j, at); err != nil {
		w.log.Error("worker.retry_failed", "job_id", j.ID, "err", err)
	}
}
