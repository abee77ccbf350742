// Package worker drains the retry queue back into the sync orchestrator on
// a fixed cadence.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/develoddy/fulfillment/pkg/observability/metrics"
	"github.com/develoddy/fulfillment/pkg/retryqueue"
	syncsvc "github.com/develoddy/fulfillment/pkg/sync"
)

// Queue is the slice of the retry queue the loop drives.
type Queue interface {
	ClaimDue(ctx context.Context, limit int) ([]*retryqueue.Job, error)
	RecordOutcome(ctx context.Context, jobID string, success bool, detail string) error
}

// Submitter re-runs the submission pipeline for a claimed job.
type Submitter interface {
	Submit(ctx context.Context, orderID string) (*syncsvc.Result, error)
}

type Loop struct {
	queue     Queue
	submitter Submitter
	interval  time.Duration
	batchSize int
}

func New(queue Queue, submitter Submitter, interval time.Duration, batchSize int) *Loop {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Loop{queue: queue, submitter: submitter, interval: interval, batchSize: batchSize}
}

// Run polls until the context is cancelled. One drain pass runs immediately
// so a restart does not wait a full interval before touching overdue jobs.
func (l *Loop) Run(ctx context.Context) {
	logger.WithFields(map[string]interface{}{
		"interval":   l.interval.String(),
		"batch_size": l.batchSize,
	}).Info("retry worker started")

	l.Drain(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("retry worker stopping")
			return
		case <-ticker.C:
			l.Drain(ctx)
		}
	}
}

// Drain claims one batch of due jobs and processes each to an outcome.
// Claiming is atomic at the store level, so concurrent loop instances
// never process the same job.
func (l *Loop) Drain(ctx context.Context) {
	jobs, err := l.queue.ClaimDue(ctx, l.batchSize)
	if err != nil {
		logger.WithError(err).Error("failed to claim due retry jobs")
		return
	}

	for _, job := range jobs {
		l.process(ctx, job)
	}
}

func (l *Loop) process(ctx context.Context, job *retryqueue.Job) {
	metrics.IncRetryAttempts()

	log := logger.WithOrder(job.OrderID).WithFields(map[string]interface{}{
		"job_id":  job.ID,
		"attempt": job.AttemptCount + 1,
	})

	success, detail := l.attempt(ctx, job)

	if err := l.queue.RecordOutcome(ctx, job.ID, success, detail); err != nil {
		log.WithError(err).Error("failed to record retry outcome")
		return
	}

	if success {
		log.Info("retry attempt succeeded")
	} else {
		log.WithField("detail", detail).Warn("retry attempt failed")
	}
}

// attempt runs one submission and reduces its result to an outcome. A
// panic inside the pipeline counts as a failed attempt, not a dead worker.
func (l *Loop) attempt(ctx context.Context, job *retryqueue.Job) (success bool, detail string) {
	defer func() {
		if r := recover(); r != nil {
			success = false
			detail = fmt.Sprintf("panic during retry attempt: %v", r)
			logger.WithOrder(job.OrderID).WithField("job_id", job.ID).Error(detail)
		}
	}()

	result, err := l.submitter.Submit(ctx, job.OrderID)
	if err != nil {
		return false, fmt.Sprintf("submission error: %v", err)
	}

	if result.Synced() {
		return true, fmt.Sprintf("order synced with code %s", result.Code)
	}
	detail = fmt.Sprintf("submission returned %s", result.Code)
	if result.Message != "" {
		detail = fmt.Sprintf("%s: %s", detail, result.Message)
	}
	return false, detail
}
