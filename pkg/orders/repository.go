package orders

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("order not found")

	// ErrProviderIDConflict is returned when a submission tries to set a
	// provider order id on an order that already has one. The id is
	// immutable once set.
	ErrProviderIDConflict = errors.New("provider order id already set")

	ErrPaymentNotFound = errors.New("payment record not found")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Order{}, &OrderItem{}, &Address{}, &Payment{}, &Shipment{})
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	result := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Address").
		First(&order, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &order, result.Error
}

func (r *Repository) GetOrderByProviderID(ctx context.Context, providerOrderID string) (*Order, error) {
	var order Order
	result := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Address").
		First(&order, "provider_order_id = ?", providerOrderID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &order, result.Error
}

// GetPayment returns the most recent payment record for the order.
func (r *Repository) GetPayment(ctx context.Context, orderID string) (*Payment, error) {
	var payment Payment
	result := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	return &payment, result.Error
}

// MarkSubmitted persists the result of a successful provider submission.
// The provider order id is only written if none is set yet; a concurrent
// submission that lost the race gets ErrProviderIDConflict.
func (r *Repository) MarkSubmitted(ctx context.Context, orderID string, sub SubmissionUpdate) error {
	result := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND provider_order_id IS NULL", orderID).
		Updates(map[string]interface{}{
			"provider_order_id":       sub.ProviderOrderID,
			"provider_status":         sub.ProviderStatus,
			"shipping_service":        sub.ShippingService,
			"shipping_cost":           sub.ShippingCost,
			"estimated_delivery_days": sub.EstimatedDeliveryDays,
			"sync_status":             SyncSubmitted,
			"last_error":              "",
			"updated_at":              time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProviderIDConflict
	}
	return nil
}

func (r *Repository) MarkSyncFailed(ctx context.Context, orderID, message string) error {
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"sync_status": SyncFailed,
			"last_error":  message,
			"updated_at":  time.Now().UTC(),
		}).Error
}

// UpdateProviderStatus records the provider's latest status string. Used by
// webhook handlers; optionally clears last_error on positive signals.
func (r *Repository) UpdateProviderStatus(ctx context.Context, orderID, status string, clearError bool) error {
	updates := map[string]interface{}{
		"provider_status": status,
		"updated_at":      time.Now().UTC(),
	}
	if clearError {
		updates["last_error"] = ""
	}
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// SetCompletedAt stamps the completion timestamp once; later calls no-op.
func (r *Repository) SetCompletedAt(ctx context.Context, orderID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND completed_at IS NULL", orderID).
		Updates(map[string]interface{}{
			"completed_at": at,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// MarkShipped advances the order to shipped. Terminal orders are left
// alone; a replayed shipped event must not pull a canceled or delivered
// order backwards.
func (r *Repository) MarkShipped(ctx context.Context, orderID string, sh *Shipment) error {
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND sync_status NOT IN ?", orderID, []string{SyncCanceled, SyncDelivered}).
		Updates(map[string]interface{}{
			"sync_status":     SyncShipped,
			"carrier":         sh.Carrier,
			"tracking_number": sh.TrackingNumber,
			"tracking_url":    sh.TrackingURL,
			"shipped_at":      sh.ShippedAt,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *Repository) MarkDelivered(ctx context.Context, orderID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND sync_status <> ?", orderID, SyncCanceled).
		Updates(map[string]interface{}{
			"sync_status":  SyncDelivered,
			"delivered_at": at,
			"completed_at": at,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *Repository) MarkCanceled(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND sync_status <> ?", orderID, SyncDelivered).
		Updates(map[string]interface{}{
			"sync_status": SyncCanceled,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *Repository) HasShipment(ctx context.Context, providerShipmentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Shipment{}).
		Where("provider_shipment_id = ?", providerShipmentID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateShipment(ctx context.Context, sh *Shipment) error {
	sh.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(sh).Error
}

// UpdateAddress replaces the order's shipping address. Admin edit-and-retry
// path only.
func (r *Repository) UpdateAddress(ctx context.Context, orderID string, addr *Address) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&Address{}).Error; err != nil {
			return err
		}
		addr.ID = 0
		addr.OrderID = orderID
		return tx.Create(addr).Error
	})
}

// ReplaceItems swaps the order's line items. Admin edit-and-retry path only.
func (r *Repository) ReplaceItems(ctx context.Context, orderID string, items []OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&OrderItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ID = 0
			items[i].OrderID = orderID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}
