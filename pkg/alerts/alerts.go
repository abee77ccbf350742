package alerts

import (
	"context"
	"time"

	"github.com/develoddy/fulfillment/pkg/common/kafka"
	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/develoddy/fulfillment/pkg/observability/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Alert is an admin-facing record of a fulfillment failure that needs (or
// may need) operator attention.
type Alert struct {
	ID                string    `json:"id" gorm:"primaryKey;column:id"`
	OrderID           string    `json:"order_id" gorm:"column:order_id;index"`
	Severity          string    `json:"severity" gorm:"column:severity;index"`
	ErrorType         string    `json:"error_type" gorm:"column:error_type"`
	ErrorCode         string    `json:"error_code" gorm:"column:error_code"`
	Message           string    `json:"message" gorm:"column:message"`
	RecommendedAction string    `json:"recommended_action" gorm:"column:recommended_action"`
	CustomerName      string    `json:"customer_name,omitempty" gorm:"column:customer_name"`
	CustomerEmail     string    `json:"customer_email,omitempty" gorm:"column:customer_email"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Alert) TableName() string {
	return "fulfillment_alerts"
}

// Emitter persists alerts and mirrors them onto the alert topic.
// Emission is fire-and-forget: failures are logged, never propagated.
type Emitter struct {
	db       *gorm.DB
	producer *kafka.Producer
}

func NewEmitter(db *gorm.DB, producer *kafka.Producer) *Emitter {
	return &Emitter{db: db, producer: producer}
}

func (e *Emitter) AutoMigrate() error {
	return e.db.AutoMigrate(&Alert{})
}

func (e *Emitter) Emit(ctx context.Context, a Alert) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Severity == "" {
		a.Severity = SeverityWarning
	}

	if err := e.db.WithContext(ctx).Create(&a).Error; err != nil {
		logger.WithOrder(a.OrderID).WithError(err).Error("failed to persist alert")
	}

	if e.producer != nil {
		data := map[string]interface{}{
			"alert_id":           a.ID,
			"order_id":           a.OrderID,
			"severity":           a.Severity,
			"error_type":         a.ErrorType,
			"error_code":         a.ErrorCode,
			"message":            a.Message,
			"recommended_action": a.RecommendedAction,
			"customer_name":      a.CustomerName,
			"customer_email":     a.CustomerEmail,
		}
		if err := e.producer.PublishEvent(ctx, "fulfillment_alert", "fulfillment-engine", data); err != nil {
			logger.WithOrder(a.OrderID).WithError(err).Error("failed to publish alert event")
		}
	}

	metrics.IncAlertsEmitted()
}
