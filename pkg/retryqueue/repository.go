package retryqueue

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("retry job not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Job{})
}

func (r *Repository) Create(ctx context.Context, job *Job) error {
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	return r.db.WithContext(ctx).Create(job).Error
}

// FindActiveByOrder returns the pending/processing job for the order, or
// nil when none exists.
func (r *Repository) FindActiveByOrder(ctx context.Context, orderID string) (*Job, error) {
	var job Job
	result := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, []string{StatusPending, StatusProcessing}).
		First(&job)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &job, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	result := r.db.WithContext(ctx).First(&job, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	return &job, result.Error
}

// ClaimDue atomically selects up to limit due pending jobs and marks them
// processing. Row locking with SKIP LOCKED keeps concurrent worker
// instances from claiming the same job.
func (r *Repository) ClaimDue(ctx context.Context, limit int, now time.Time) ([]*Job, error) {
	var claimed []*Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Raw(`
			SELECT id FROM retry_jobs
			WHERE status = ? AND next_run_at <= ?
			ORDER BY priority DESC, next_run_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		`, StatusPending, now, limit).Scan(&ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Model(&Job{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     StatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		return tx.Where("id IN ?", ids).
			Order("priority DESC, next_run_at ASC").
			Find(&claimed).Error
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// FinishAttempt writes the post-attempt state of a claimed job. The update
// is conditional on the row still being in processing, so a concurrent
// cancellation wins the status while the attempt's history is still kept
// via AppendHistoryOnly.
func (r *Repository) FinishAttempt(ctx context.Context, job *Job) (bool, error) {
	result := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", job.ID, StatusProcessing).
		Updates(map[string]interface{}{
			"status":             job.Status,
			"attempt_count":      job.AttemptCount,
			"next_run_at":        job.NextRunAt,
			"last_error_message": job.LastErrorMessage,
			"history":            job.History,
			"updated_at":         time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

// AppendHistoryOnly persists an updated audit trail without touching the
// job's scheduling fields.
func (r *Repository) AppendHistoryOnly(ctx context.Context, id string, history datatypes.JSON) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"history":    history,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) Save(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *Repository) List(ctx context.Context, status, errorType string, limit int) ([]*Job, error) {
	query := r.db.WithContext(ctx).Model(&Job{}).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if errorType != "" {
		query = query.Where("error_type = ?", errorType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []*Job
	err := query.Find(&jobs).Error
	return jobs, err
}
