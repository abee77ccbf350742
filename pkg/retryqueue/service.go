package retryqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/develoddy/fulfillment/pkg/alerts"
	"github.com/develoddy/fulfillment/pkg/classify"
	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/develoddy/fulfillment/pkg/observability/metrics"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ErrInvalidTransition is returned when an operator action is not valid for
// the job's current status.
var ErrInvalidTransition = errors.New("invalid job state transition")

// DefaultBackoffSchedule is deliberately a small fixed table rather than
// unbounded exponential growth: the provider's transient-failure window is
// typically sub-hour.
var DefaultBackoffSchedule = []time.Duration{
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
}

// JobStore is the persistence surface the queue needs. Implemented by
// Repository; faked in tests.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	FindActiveByOrder(ctx context.Context, orderID string) (*Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]*Job, error)
	FinishAttempt(ctx context.Context, job *Job) (bool, error)
	AppendHistoryOnly(ctx context.Context, id string, history datatypes.JSON) error
	Save(ctx context.Context, job *Job) error
	List(ctx context.Context, status, errorType string, limit int) ([]*Job, error)
}

type AlertSink interface {
	Emit(ctx context.Context, a alerts.Alert)
}

type Service struct {
	store       JobStore
	classifier  *classify.Classifier
	alerts      AlertSink
	backoff     []time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewService(store JobStore, classifier *classify.Classifier, alertSink AlertSink, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Service{
		store:       store,
		classifier:  classifier,
		alerts:      alertSink,
		backoff:     DefaultBackoffSchedule,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Backoff returns the delay before the given attempt (1-based). Attempts
// beyond the schedule reuse the last interval.
func (s *Service) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(s.backoff) {
		return s.backoff[len(s.backoff)-1]
	}
	return s.backoff[attempt-1]
}

// Enqueue creates a retry job for a retryable failure. Non-retryable
// failures return (nil, nil): they are terminal from this subsystem's
// perspective and need an out-of-band fix. An already-active job for the
// order is returned unchanged.
func (s *Service) Enqueue(ctx context.Context, orderID string, f classify.Failure) (*Job, error) {
	cls := s.classifier.Classify(f)
	if !cls.Retryable {
		logger.WithOrder(orderID).WithFields(map[string]interface{}{
			"error_type": cls.ErrorType,
			"error_code": cls.ErrorCode,
		}).Info("failure not retryable, no job created")
		return nil, nil
	}

	existing, err := s.store.FindActiveByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("checking active jobs: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now().UTC()
	job := &Job{
		ID:               uuid.New().String(),
		OrderID:          orderID,
		AttemptCount:     0,
		MaxAttempts:      s.maxAttempts,
		NextRunAt:        now.Add(s.Backoff(1)),
		Status:           StatusPending,
		ErrorType:        cls.ErrorType,
		ErrorCode:        cls.ErrorCode,
		LastErrorMessage: f.Message,
		Priority:         priorityFor(cls.ErrorType),
	}
	if err := job.AppendHistory(HistoryEntry{
		Attempt:   0,
		Timestamp: now,
		Outcome:   "enqueued",
		Detail:    f.Message,
	}); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating retry job: %w", err)
	}

	metrics.IncRetriesEnqueued()
	logger.WithOrder(orderID).WithFields(map[string]interface{}{
		"job_id":      job.ID,
		"error_type":  job.ErrorType,
		"next_run_at": job.NextRunAt,
	}).Info("retry job enqueued")

	return job, nil
}

// ClaimDue atomically claims up to limit due jobs for processing.
func (s *Service) ClaimDue(ctx context.Context, limit int) ([]*Job, error) {
	return s.store.ClaimDue(ctx, limit, s.now().UTC())
}

// RecordOutcome finishes one attempt of a claimed job. Every transition is
// appended to the history; the history is never rewritten.
func (s *Service) RecordOutcome(ctx context.Context, jobID string, success bool, detail string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	entry := HistoryEntry{Attempt: job.AttemptCount + 1, Timestamp: now, Detail: detail}

	if success {
		job.Status = StatusResolved
		entry.Outcome = "resolved"
	} else {
		job.AttemptCount++
		job.LastErrorMessage = detail
		if job.AttemptCount >= job.MaxAttempts {
			job.Status = StatusFailed
			entry.Outcome = "exhausted"
		} else {
			job.Status = StatusPending
			job.NextRunAt = now.Add(s.Backoff(job.AttemptCount + 1))
			entry.Outcome = "rescheduled"
		}
	}

	if err := job.AppendHistory(entry); err != nil {
		return err
	}

	applied, err := s.store.FinishAttempt(ctx, job)
	if err != nil {
		return err
	}
	if !applied {
		// The job was cancelled while the attempt was in flight. The
		// cancellation wins the status; keep the attempt in the audit trail.
		logger.WithOrder(job.OrderID).WithField("job_id", job.ID).
			Warn("job no longer processing, recording attempt history only")
		return s.store.AppendHistoryOnly(ctx, job.ID, job.History)
	}

	if job.Status == StatusFailed {
		metrics.IncRetriesExhausted()
		if s.alerts != nil {
			s.alerts.Emit(ctx, alerts.Alert{
				OrderID:           job.OrderID,
				Severity:          alerts.SeverityCritical,
				ErrorType:         job.ErrorType,
				ErrorCode:         job.ErrorCode,
				Message:           fmt.Sprintf("retry attempts exhausted after %d tries: %s", job.AttemptCount, detail),
				RecommendedAction: "investigate and resubmit manually",
			})
		}
	}

	return nil
}

// Cancel is the operator override. Valid from pending, processing and
// failed only.
func (s *Service) Cancel(ctx context.Context, jobID, reason, actor string) (*Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusPending && job.Status != StatusProcessing && job.Status != StatusFailed {
		return nil, fmt.Errorf("%w: cannot cancel %s job", ErrInvalidTransition, job.Status)
	}

	job.Status = StatusCancelled
	job.CancelReason = reason
	job.CancelledBy = actor
	if err := job.AppendHistory(HistoryEntry{
		Attempt:   job.AttemptCount,
		Timestamp: s.now().UTC(),
		Outcome:   "cancelled",
		Detail:    fmt.Sprintf("%s (by %s)", reason, actor),
	}); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ResetForManualRetry clears the attempt counter and makes the job due
// immediately. Used after an operator fixed the underlying condition; the
// job re-enters the normal pipeline rather than bypassing it.
func (s *Service) ResetForManualRetry(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusPending && job.Status != StatusFailed {
		return nil, fmt.Errorf("%w: cannot reset %s job", ErrInvalidTransition, job.Status)
	}

	job.AttemptCount = 0
	job.Status = StatusPending
	job.NextRunAt = s.now().UTC()
	if err := job.AppendHistory(HistoryEntry{
		Attempt:   0,
		Timestamp: s.now().UTC(),
		Outcome:   "manual_reset",
	}); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) Get(ctx context.Context, jobID string) (*Job, error) {
	return s.store.Get(ctx, jobID)
}

func (s *Service) List(ctx context.Context, status, errorType string, limit int) ([]*Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.List(ctx, status, errorType, limit)
}

// Temporal failures resolve on their own and get claimed first; recoverable
// ones usually wait on an operator fix.
func priorityFor(errorType string) int {
	switch errorType {
	case classify.TypeTemporal:
		return 10
	case classify.TypeRecoverable:
		return 5
	default:
		return 0
	}
}
