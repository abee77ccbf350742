package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/develoddy/fulfillment/pkg/alerts"
	"github.com/develoddy/fulfillment/pkg/classify"
	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/develoddy/fulfillment/pkg/observability/metrics"
	"github.com/develoddy/fulfillment/pkg/orders"
	"github.com/develoddy/fulfillment/pkg/provider"
	"github.com/develoddy/fulfillment/pkg/retryqueue"
)

// OrderStore is the slice of the order/payment store the orchestrator needs.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
	GetPayment(ctx context.Context, orderID string) (*orders.Payment, error)
	MarkSubmitted(ctx context.Context, orderID string, sub orders.SubmissionUpdate) error
	MarkSyncFailed(ctx context.Context, orderID, message string) error
}

// ProviderGateway submits orders to the fulfillment provider.
type ProviderGateway interface {
	SubmitOrder(ctx context.Context, req *provider.OrderRequest) (*provider.Order, error)
}

// VariantResolver validates that a line item maps to a live provider
// variant.
type VariantResolver interface {
	Resolve(ctx context.Context, item *orders.OrderItem) (int64, error)
}

// RetryEnqueuer hands retryable failures to the retry queue.
type RetryEnqueuer interface {
	Enqueue(ctx context.Context, orderID string, f classify.Failure) (*retryqueue.Job, error)
}

type AlertSink interface {
	Emit(ctx context.Context, a alerts.Alert)
}

// Notifier emits fire-and-forget order update events.
type Notifier interface {
	Notify(ctx context.Context, orderID, summary string, data map[string]interface{})
}

// Service drives a paid order to the fulfillment provider.
type Service struct {
	store      OrderStore
	gateway    ProviderGateway
	resolver   VariantResolver
	queue      RetryEnqueuer
	classifier *classify.Classifier
	alerts     AlertSink
	notifier   Notifier
}

func NewService(
	store OrderStore,
	gateway ProviderGateway,
	resolver VariantResolver,
	queue RetryEnqueuer,
	classifier *classify.Classifier,
	alertSink AlertSink,
	notifier Notifier,
) *Service {
	return &Service{
		store:      store,
		gateway:    gateway,
		resolver:   resolver,
		queue:      queue,
		classifier: classifier,
		alerts:     alertSink,
		notifier:   notifier,
	}
}

// Submit validates the order, maps it to the provider's shape and submits
// it. Preconditions are checked in a fixed order, each with its own result
// code. Expected failures come back in the Result; only store
// unavailability is returned as an error.
func (s *Service) Submit(ctx context.Context, orderID string) (*Result, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		return &Result{Code: CodeSaleNotFound, OrderID: orderID, Message: "order not found"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading order: %w", err)
	}

	payment, err := s.store.GetPayment(ctx, orderID)
	if errors.Is(err, orders.ErrPaymentNotFound) {
		return &Result{Code: CodeNoReceipt, OrderID: orderID, Message: "no payment record for order"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading payment: %w", err)
	}
	if !orders.PaidStatuses[payment.Status] {
		return &Result{
			Code:          CodePaymentNotConfirmed,
			OrderID:       orderID,
			PaymentStatus: payment.Status,
			Message:       fmt.Sprintf("payment status is %q, not confirmed", payment.Status),
		}, nil
	}

	// Idempotent short-circuit: a second submission must never create a
	// second provider order.
	if order.ProviderOrderID != nil {
		return &Result{
			Code:            CodeAlreadySynced,
			OrderID:         orderID,
			ProviderOrderID: *order.ProviderOrderID,
			ProviderStatus:  order.ProviderStatus,
		}, nil
	}

	if !order.Address.Complete() {
		return &Result{Code: CodeNoAddress, OrderID: orderID, Message: "shipping address missing or incomplete"}, nil
	}

	if len(order.Items) == 0 {
		return &Result{Code: CodeNoProducts, OrderID: orderID, Message: "order has no line items"}, nil
	}

	items := make([]provider.Item, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		variantID, err := s.resolver.Resolve(ctx, item)
		if err != nil {
			return &Result{
				Code:          CodeInvalidProducts,
				OrderID:       orderID,
				OffendingItem: item.SKU,
				Message:       fmt.Sprintf("item %q does not resolve to a provider variant: %v", item.SKU, err),
			}, nil
		}
		items = append(items, mapItem(item, variantID))
	}

	req := buildRequest(order, items)

	resp, err := s.gateway.SubmitOrder(ctx, req)
	if err != nil {
		return s.handleProviderFailure(ctx, order, err)
	}

	sub := orders.SubmissionUpdate{
		ProviderOrderID:       resp.ID,
		ProviderStatus:        resp.Status,
		ShippingService:       resp.ShippingService,
		ShippingCost:          resp.ShippingCost,
		EstimatedDeliveryDays: resp.EstimatedDeliveryDays,
	}
	if err := s.store.MarkSubmitted(ctx, orderID, sub); err != nil {
		if errors.Is(err, orders.ErrProviderIDConflict) {
			// Lost a submission race; the stored id wins.
			logger.WithOrder(orderID).WithField("provider_order_id", resp.ID).
				Warn("provider id already set while persisting submission")
			return &Result{Code: CodeAlreadySynced, OrderID: orderID, ProviderOrderID: resp.ID, ProviderStatus: resp.Status}, nil
		}
		return nil, fmt.Errorf("persisting submission: %w", err)
	}

	metrics.IncOrdersSubmitted()
	if s.notifier != nil {
		s.notifier.Notify(ctx, orderID, "order submitted to fulfillment provider", map[string]interface{}{
			"provider_order_id": resp.ID,
			"provider_status":   resp.Status,
		})
	}
	logger.WithOrder(orderID).WithFields(map[string]interface{}{
		"provider_order_id": resp.ID,
		"status":            resp.Status,
	}).Info("order synced")

	return &Result{
		Code:                  CodeOK,
		OrderID:               orderID,
		ProviderOrderID:       resp.ID,
		ProviderStatus:        resp.Status,
		EstimatedDeliveryDays: resp.EstimatedDeliveryDays,
	}, nil
}

func (s *Service) handleProviderFailure(ctx context.Context, order *orders.Order, cause error) (*Result, error) {
	metrics.IncSubmitFailures()

	failure := failureFrom(cause)
	cls := s.classifier.Classify(failure)

	if err := s.store.MarkSyncFailed(ctx, order.ID, failure.Message); err != nil {
		logger.WithOrder(order.ID).WithError(err).Error("failed to persist sync failure")
	}

	if cls.Retryable && s.queue != nil {
		if _, err := s.queue.Enqueue(ctx, order.ID, failure); err != nil {
			logger.WithOrder(order.ID).WithError(err).Error("failed to enqueue retry job")
		}
	}

	if s.alerts != nil {
		severity := alerts.SeverityWarning
		if !cls.Retryable {
			severity = alerts.SeverityCritical
		}
		s.alerts.Emit(ctx, alerts.Alert{
			OrderID:           order.ID,
			Severity:          severity,
			ErrorType:         cls.ErrorType,
			ErrorCode:         cls.ErrorCode,
			Message:           failure.Message,
			RecommendedAction: cls.RecommendedAction,
			CustomerName:      order.CustomerName,
			CustomerEmail:     order.CustomerEmail,
		})
	}

	logger.WithOrder(order.ID).WithFields(map[string]interface{}{
		"error_type": cls.ErrorType,
		"error_code": cls.ErrorCode,
		"retryable":  cls.Retryable,
	}).Error("provider submission failed")

	return &Result{
		Code:           CodeProviderError,
		OrderID:        order.ID,
		Message:        failure.Message,
		Classification: &cls,
	}, nil
}

func failureFrom(err error) classify.Failure {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return classify.Failure{HTTPStatus: apiErr.Status, Code: apiErr.Code, Message: apiErr.Message}
	}
	return classify.Failure{Message: err.Error()}
}
