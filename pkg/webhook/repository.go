package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&EventRecord{})
}

// CreateRecord persists the durable receipt for an inbound event. Runs
// before any dispatch so the event survives handler failures.
func (r *Repository) CreateRecord(ctx context.Context, ev *Event) (*EventRecord, error) {
	rec := &EventRecord{
		ID:              uuid.New().String(),
		EventType:       ev.Type,
		ProviderOrderID: ev.ProviderOrderID,
		Payload:         datatypes.JSON(ev.Raw),
		CreatedAt:       time.Now().UTC(),
	}
	if rec.EventType == "" {
		rec.EventType = "unknown"
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkOrphan rewrites the record's type to the orphan marker and attaches
// diagnostics for later reconciliation.
func (r *Repository) MarkOrphan(ctx context.Context, recordID, eventType, reason, correlationID string) error {
	return r.db.WithContext(ctx).Model(&EventRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"event_type": OrphanType(eventType),
			"diagnostics": datatypes.JSONMap{
				"reason":         reason,
				"correlation_id": correlationID,
				"detected_at":    time.Now().UTC().Format(time.RFC3339),
			},
		}).Error
}

// MarkFailed records why handling the event did not complete. The record
// keeps its original type; the error makes it distinguishable from events
// that simply have not been handled yet.
func (r *Repository) MarkFailed(ctx context.Context, recordID, orderID, message string) error {
	return r.db.WithContext(ctx).Model(&EventRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"order_id":         orderID,
			"processing_error": message,
		}).Error
}

// MarkProcessed links the record to the matched order and stamps it.
func (r *Repository) MarkProcessed(ctx context.Context, recordID, orderID string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&EventRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"order_id":     orderID,
			"processed_at": &now,
		}).Error
}
