package webhook

import (
	"time"

	"gorm.io/datatypes"
)

// Provider event types we dispatch on. Anything else persists as-is and is
// only logged.
const (
	EventOrderCreated     = "order_created"
	EventOrderUpdated     = "order_updated"
	EventPackageShipped   = "package_shipped"
	EventPackageDelivered = "package_delivered"
	EventOrderFailed      = "order_failed"
	EventOrderCanceled    = "order_canceled"
)

// EventRecord is the durable receipt of one inbound provider event. Written
// before any business logic runs; orphan events keep their row with an
// orphan_<type> marker instead of being dropped.
type EventRecord struct {
	ID              string            `json:"id" gorm:"primaryKey;column:id"`
	EventType       string            `json:"event_type" gorm:"column:event_type;index"`
	ProviderOrderID string            `json:"provider_order_id,omitempty" gorm:"column:provider_order_id;index"`
	OrderID         string            `json:"order_id,omitempty" gorm:"column:order_id;index"`
	Payload         datatypes.JSON    `json:"payload" gorm:"column:payload;type:jsonb"`
	Diagnostics     datatypes.JSONMap `json:"diagnostics,omitempty" gorm:"column:diagnostics;type:jsonb"`
	ProcessingError string            `json:"processing_error,omitempty" gorm:"column:processing_error"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty" gorm:"column:processed_at"`
	CreatedAt       time.Time         `json:"created_at" gorm:"column:created_at"`
}

func (EventRecord) TableName() string {
	return "webhook_events"
}
