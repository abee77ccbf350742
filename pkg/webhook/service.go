package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/develoddy/fulfillment/pkg/alerts"
	"github.com/develoddy/fulfillment/pkg/classify"
	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/develoddy/fulfillment/pkg/observability/metrics"
	"github.com/develoddy/fulfillment/pkg/orders"
)

// Provider statuses that count as terminal success for the completion
// timestamp.
var terminalSuccessStatuses = map[string]bool{
	"fulfilled": true,
	"delivered": true,
	"completed": true,
}

// EventStore persists event receipts.
type EventStore interface {
	CreateRecord(ctx context.Context, ev *Event) (*EventRecord, error)
	MarkOrphan(ctx context.Context, recordID, eventType, reason, correlationID string) error
	MarkFailed(ctx context.Context, recordID, orderID, message string) error
	MarkProcessed(ctx context.Context, recordID, orderID string) error
}

// OrderStore is the slice of the order store the ingestor transitions.
type OrderStore interface {
	GetOrderByProviderID(ctx context.Context, providerOrderID string) (*orders.Order, error)
	UpdateProviderStatus(ctx context.Context, orderID, status string, clearError bool) error
	SetCompletedAt(ctx context.Context, orderID string, at time.Time) error
	HasShipment(ctx context.Context, providerShipmentID string) (bool, error)
	CreateShipment(ctx context.Context, sh *orders.Shipment) error
	MarkShipped(ctx context.Context, orderID string, sh *orders.Shipment) error
	MarkDelivered(ctx context.Context, orderID string, at time.Time) error
	MarkSyncFailed(ctx context.Context, orderID, message string) error
	MarkCanceled(ctx context.Context, orderID string) error
}

type AlertSink interface {
	Emit(ctx context.Context, a alerts.Alert)
}

// Notifier emits fire-and-forget order update events.
type Notifier interface {
	Notify(ctx context.Context, orderID, summary string, data map[string]interface{})
}

// Service receives provider push events and reconciles them into local
// order state.
type Service struct {
	events     EventStore
	store      OrderStore
	classifier *classify.Classifier
	alerts     AlertSink
	notifier   Notifier
}

func NewService(events EventStore, store OrderStore, classifier *classify.Classifier, alertSink AlertSink, notifier Notifier) *Service {
	return &Service{
		events:     events,
		store:      store,
		classifier: classifier,
		alerts:     alertSink,
		notifier:   notifier,
	}
}

// Ingest processes one raw provider event. It never returns an error and
// never panics out; the provider retries non-2xx responses aggressively,
// so every internal failure is swallowed and logged.
func (s *Service) Ingest(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", fmt.Sprint(r)).Error("webhook handler panicked")
		}
	}()

	metrics.IncWebhooksReceived()
	ev := Parse(raw)

	rec, err := s.events.CreateRecord(ctx, ev)
	if err != nil {
		logger.WithField("event_type", ev.Type).WithError(err).Error("failed to persist webhook event")
		return
	}

	log := logger.WithFields(map[string]interface{}{
		"event_id":          rec.ID,
		"event_type":        ev.Type,
		"provider_order_id": ev.ProviderOrderID,
	})

	if ev.ProviderOrderID == "" {
		s.orphan(ctx, rec, ev, "event carries no provider order id")
		log.Warn("webhook event without correlation key")
		return
	}

	order, err := s.store.GetOrderByProviderID(ctx, ev.ProviderOrderID)
	if errors.Is(err, orders.ErrNotFound) {
		s.orphan(ctx, rec, ev, "no order matches provider order id")
		log.Info("orphan webhook event recorded")
		return
	}
	if err != nil {
		log.WithError(err).Error("order lookup failed")
		return
	}

	if err := s.dispatch(ctx, order, ev); err != nil {
		log.WithError(err).Error("webhook dispatch failed")
		if markErr := s.events.MarkFailed(ctx, rec.ID, order.ID, err.Error()); markErr != nil {
			log.WithError(markErr).Error("failed to record dispatch error on webhook record")
		}
		return
	}

	if err := s.events.MarkProcessed(ctx, rec.ID, order.ID); err != nil {
		log.WithError(err).Error("failed to stamp webhook record")
	}
}

func (s *Service) orphan(ctx context.Context, rec *EventRecord, ev *Event, reason string) {
	metrics.IncWebhooksOrphaned()
	if err := s.events.MarkOrphan(ctx, rec.ID, ev.Type, reason, ev.ProviderOrderID); err != nil {
		logger.WithField("event_id", rec.ID).WithError(err).Error("failed to mark orphan event")
	}
}

func (s *Service) dispatch(ctx context.Context, order *orders.Order, ev *Event) error {
	switch ev.Type {
	case EventOrderCreated:
		if err := s.store.UpdateProviderStatus(ctx, order.ID, ev.Status, true); err != nil {
			return err
		}
		s.notify(ctx, order.ID, "provider acknowledged order", map[string]interface{}{"provider_status": ev.Status})

	case EventOrderUpdated:
		if err := s.store.UpdateProviderStatus(ctx, order.ID, ev.Status, false); err != nil {
			return err
		}
		if terminalSuccessStatuses[ev.Status] {
			if err := s.store.SetCompletedAt(ctx, order.ID, time.Now().UTC()); err != nil {
				return err
			}
		}
		s.notify(ctx, order.ID, "provider order status changed", map[string]interface{}{"provider_status": ev.Status})

	case EventPackageShipped:
		return s.handleShipped(ctx, order, ev)

	case EventPackageDelivered:
		now := time.Now().UTC()
		if err := s.store.MarkDelivered(ctx, order.ID, now); err != nil {
			return err
		}
		s.notify(ctx, order.ID, "package delivered", nil)

	case EventOrderFailed:
		return s.handleFailed(ctx, order, ev)

	case EventOrderCanceled:
		if err := s.store.MarkCanceled(ctx, order.ID); err != nil {
			return err
		}
		s.notify(ctx, order.ID, "provider canceled order", map[string]interface{}{"reason": ev.Reason})

	default:
		logger.WithOrder(order.ID).WithField("event_type", ev.Type).Info("unhandled webhook event type")
	}
	return nil
}

func (s *Service) handleShipped(ctx context.Context, order *orders.Order, ev *Event) error {
	if ev.Shipment == nil || ev.Shipment.ID == "" {
		return fmt.Errorf("package_shipped event without shipment block")
	}

	// Provider redelivers shipped events; the shipment id is the dedup key.
	exists, err := s.store.HasShipment(ctx, ev.Shipment.ID)
	if err != nil {
		return err
	}
	if exists {
		logger.WithOrder(order.ID).WithField("shipment_id", ev.Shipment.ID).Debug("duplicate shipment event skipped")
		return nil
	}

	sh := &orders.Shipment{
		OrderID:            order.ID,
		ProviderShipmentID: ev.Shipment.ID,
		Carrier:            ev.Shipment.Carrier,
		Service:            ev.Shipment.Service,
		TrackingNumber:     ev.Shipment.TrackingNumber,
		TrackingURL:        ev.Shipment.TrackingURL,
		ShippedAt:          ev.Shipment.ShippedAt,
	}
	if err := s.store.CreateShipment(ctx, sh); err != nil {
		return err
	}
	if err := s.store.MarkShipped(ctx, order.ID, sh); err != nil {
		return err
	}
	metrics.IncShipmentsRecorded()
	s.notify(ctx, order.ID, "package shipped", map[string]interface{}{
		"carrier":         sh.Carrier,
		"tracking_number": sh.TrackingNumber,
	})
	return nil
}

// handleFailed records the failure and classifies it for alerting only.
// Webhook-driven failures never enqueue retry jobs; remediation for a root
// cause lives solely on the orchestrator path.
func (s *Service) handleFailed(ctx context.Context, order *orders.Order, ev *Event) error {
	reason := ev.Reason
	if reason == "" {
		reason = "provider reported failure without detail"
	}

	if err := s.store.MarkSyncFailed(ctx, order.ID, reason); err != nil {
		return err
	}

	cls := s.classifier.Classify(classify.Failure{Message: reason})
	if s.alerts != nil {
		s.alerts.Emit(ctx, alerts.Alert{
			OrderID:           order.ID,
			Severity:          alerts.SeverityCritical,
			ErrorType:         cls.ErrorType,
			ErrorCode:         cls.ErrorCode,
			Message:           reason,
			RecommendedAction: cls.RecommendedAction,
			CustomerName:      order.CustomerName,
			CustomerEmail:     order.CustomerEmail,
		})
	}
	s.notify(ctx, order.ID, "provider reported order failure", map[string]interface{}{
		"reason":     reason,
		"error_code": cls.ErrorCode,
	})
	return nil
}

func (s *Service) notify(ctx context.Context, orderID, summary string, data map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, orderID, summary, data)
}
