package retryqueue

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Job statuses. resolved, failed and cancelled are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusResolved   = "resolved"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Job is one remediation attempt chain for one order. At most one active
// (pending/processing) job exists per order.
type Job struct {
	ID               string    `json:"id" gorm:"primaryKey;column:id"`
	OrderID          string    `json:"order_id" gorm:"column:order_id;index"`
	AttemptCount     int       `json:"attempt_count" gorm:"column:attempt_count"`
	MaxAttempts      int       `json:"max_attempts" gorm:"column:max_attempts"`
	NextRunAt        time.Time `json:"next_run_at" gorm:"column:next_run_at;index"`
	Status           string    `json:"status" gorm:"column:status;index"`
	ErrorType        string    `json:"error_type" gorm:"column:error_type;index"`
	ErrorCode        string    `json:"error_code" gorm:"column:error_code"`
	LastErrorMessage string    `json:"last_error_message" gorm:"column:last_error_message"`
	Priority         int       `json:"priority" gorm:"column:priority"`

	// Append-only audit trail. Never rewritten, only extended.
	History datatypes.JSON `json:"history" gorm:"column:history"`

	CancelReason string `json:"cancel_reason,omitempty" gorm:"column:cancel_reason"`
	CancelledBy  string `json:"cancelled_by,omitempty" gorm:"column:cancelled_by"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Job) TableName() string {
	return "retry_jobs"
}

// HistoryEntry is one line of a job's audit trail.
type HistoryEntry struct {
	Attempt   int       `json:"attempt"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// Active reports whether the job still participates in scheduling.
func (j *Job) Active() bool {
	return j.Status == StatusPending || j.Status == StatusProcessing
}

// Terminal reports whether no further automatic transition occurs.
func (j *Job) Terminal() bool {
	return j.Status == StatusResolved || j.Status == StatusFailed || j.Status == StatusCancelled
}

// HistoryEntries decodes the audit trail.
func (j *Job) HistoryEntries() ([]HistoryEntry, error) {
	if len(j.History) == 0 {
		return nil, nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(j.History, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AppendHistory extends the audit trail with one entry.
func (j *Job) AppendHistory(entry HistoryEntry) error {
	entries, err := j.HistoryEntries()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	j.History = datatypes.JSON(raw)
	return nil
}
