package webhook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/develoddy/fulfillment/pkg/alerts"
	"github.com/develoddy/fulfillment/pkg/classify"
	"github.com/develoddy/fulfillment/pkg/orders"
)

type fakeEventStore struct {
	records   []*EventRecord
	orphans   map[string]string // record id -> orphan type
	processed map[string]string // record id -> order id
	failures  map[string]string // record id -> processing error
	createErr error
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		orphans:   map[string]string{},
		processed: map[string]string{},
		failures:  map[string]string{},
	}
}

func (f *fakeEventStore) CreateRecord(_ context.Context, ev *Event) (*EventRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	rec := &EventRecord{ID: fmt.Sprintf("rec-%d", len(f.records)+1), EventType: ev.Type}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeEventStore) MarkOrphan(_ context.Context, recordID, eventType, reason, correlationID string) error {
	f.orphans[recordID] = OrphanType(eventType)
	return nil
}

func (f *fakeEventStore) MarkFailed(_ context.Context, recordID, orderID, message string) error {
	f.failures[recordID] = message
	return nil
}

func (f *fakeEventStore) MarkProcessed(_ context.Context, recordID, orderID string) error {
	f.processed[recordID] = orderID
	return nil
}

type fakeOrderStore struct {
	orders    map[string]*orders.Order // keyed by provider order id
	shipments map[string]*orders.Shipment
}

func newFakeOrderStore(os ...*orders.Order) *fakeOrderStore {
	f := &fakeOrderStore{orders: map[string]*orders.Order{}, shipments: map[string]*orders.Shipment{}}
	for _, o := range os {
		f.orders[*o.ProviderOrderID] = o
	}
	return f
}

func (f *fakeOrderStore) byID(orderID string) *orders.Order {
	for _, o := range f.orders {
		if o.ID == orderID {
			return o
		}
	}
	return nil
}

func (f *fakeOrderStore) GetOrderByProviderID(_ context.Context, providerOrderID string) (*orders.Order, error) {
	o, ok := f.orders[providerOrderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) UpdateProviderStatus(_ context.Context, orderID, status string, clearError bool) error {
	o := f.byID(orderID)
	o.ProviderStatus = status
	if clearError {
		o.LastError = ""
	}
	return nil
}

func (f *fakeOrderStore) SetCompletedAt(_ context.Context, orderID string, at time.Time) error {
	o := f.byID(orderID)
	if o.CompletedAt == nil {
		o.CompletedAt = &at
	}
	return nil
}

func (f *fakeOrderStore) HasShipment(_ context.Context, providerShipmentID string) (bool, error) {
	_, ok := f.shipments[providerShipmentID]
	return ok, nil
}

func (f *fakeOrderStore) CreateShipment(_ context.Context, sh *orders.Shipment) error {
	f.shipments[sh.ProviderShipmentID] = sh
	return nil
}

func (f *fakeOrderStore) MarkShipped(_ context.Context, orderID string, sh *orders.Shipment) error {
	o := f.byID(orderID)
	if o.SyncStatus == orders.SyncCanceled || o.SyncStatus == orders.SyncDelivered {
		return nil
	}
	o.SyncStatus = orders.SyncShipped
	o.Carrier = sh.Carrier
	o.TrackingNumber = sh.TrackingNumber
	return nil
}

func (f *fakeOrderStore) MarkDelivered(_ context.Context, orderID string, at time.Time) error {
	o := f.byID(orderID)
	if o.SyncStatus == orders.SyncCanceled {
		return nil
	}
	o.SyncStatus = orders.SyncDelivered
	o.DeliveredAt = &at
	o.CompletedAt = &at
	return nil
}

func (f *fakeOrderStore) MarkSyncFailed(_ context.Context, orderID, message string) error {
	o := f.byID(orderID)
	o.SyncStatus = orders.SyncFailed
	o.LastError = message
	return nil
}

func (f *fakeOrderStore) MarkCanceled(_ context.Context, orderID string) error {
	o := f.byID(orderID)
	if o.SyncStatus == orders.SyncDelivered {
		return nil
	}
	o.SyncStatus = orders.SyncCanceled
	return nil
}

type fakeAlerts struct {
	emitted []alerts.Alert
}

func (f *fakeAlerts) Emit(_ context.Context, a alerts.Alert) {
	f.emitted = append(f.emitted, a)
}

type fakeNotifier struct {
	notes []string
}

func (f *fakeNotifier) Notify(_ context.Context, orderID, summary string, data map[string]interface{}) {
	f.notes = append(f.notes, summary)
}

func submittedOrder(providerOrderID string) *orders.Order {
	pid := providerOrderID
	return &orders.Order{
		ID:              "order-1",
		CustomerName:    "Jamie Lane",
		CustomerEmail:   "jamie@example.com",
		SyncStatus:      orders.SyncSubmitted,
		ProviderOrderID: &pid,
	}
}

func newTestService(events *fakeEventStore, store *fakeOrderStore, alertSink *fakeAlerts, notifier *fakeNotifier) *Service {
	return NewService(events, store, classify.New(classify.DefaultRules()), alertSink, notifier)
}

func TestIngestOrphanEvent(t *testing.T) {
	events := newFakeEventStore()
	store := newFakeOrderStore()
	svc := newTestService(events, store, &fakeAlerts{}, &fakeNotifier{})

	svc.Ingest(context.Background(), []byte(`{"type":"order_updated","data":{"order":{"id":"no-such-order","status":"inprocess"}}}`))

	if len(events.records) != 1 {
		t.Fatalf("expected one persisted record, got %d", len(events.records))
	}
	if got := events.orphans["rec-1"]; got != "orphan_order_updated" {
		t.Fatalf("orphan marker: got %q", got)
	}
}

func TestIngestMalformedPayloadNeverThrows(t *testing.T) {
	events := newFakeEventStore()
	svc := newTestService(events, newFakeOrderStore(), &fakeAlerts{}, &fakeNotifier{})

	svc.Ingest(context.Background(), []byte(`{{{`))

	if len(events.records) != 1 {
		t.Fatal("malformed payload must still be persisted")
	}
	if events.orphans["rec-1"] != "orphan_unknown" {
		t.Fatalf("expected orphan_unknown, got %q", events.orphans["rec-1"])
	}
}

func TestIngestShippedIsIdempotent(t *testing.T) {
	events := newFakeEventStore()
	store := newFakeOrderStore(submittedOrder("PF-9"))
	notifier := &fakeNotifier{}
	svc := newTestService(events, store, &fakeAlerts{}, notifier)

	payload := []byte(`{
		"type": "package_shipped",
		"data": {
			"order": {"id": "PF-9", "status": "fulfilled"},
			"shipment": {"id": 555, "carrier": "DHL", "tracking_number": "JD1", "ship_date": "2026-08-30"}
		}
	}`)

	svc.Ingest(context.Background(), payload)
	svc.Ingest(context.Background(), payload)

	if len(store.shipments) != 1 {
		t.Fatalf("replayed shipped event created %d shipments, want 1", len(store.shipments))
	}
	order := store.byID("order-1")
	if order.SyncStatus != orders.SyncShipped || order.TrackingNumber != "JD1" {
		t.Fatalf("order not shipped: %+v", order)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("duplicate delivery must not re-notify, got %d notifications", len(notifier.notes))
	}
}

func TestIngestDeliveredBeforeShippedIsAccepted(t *testing.T) {
	store := newFakeOrderStore(submittedOrder("PF-9"))
	svc := newTestService(newFakeEventStore(), store, &fakeAlerts{}, &fakeNotifier{})

	svc.Ingest(context.Background(), []byte(`{"type":"package_delivered","data":{"order":{"id":"PF-9"}}}`))

	order := store.byID("order-1")
	if order.SyncStatus != orders.SyncDelivered || order.DeliveredAt == nil || order.CompletedAt == nil {
		t.Fatalf("delivered out of order must still apply: %+v", order)
	}
}

func TestIngestOrderFailedNeverEnqueuesRetry(t *testing.T) {
	events := newFakeEventStore()
	store := newFakeOrderStore(submittedOrder("X"))
	alertSink := &fakeAlerts{}
	svc := newTestService(events, store, alertSink, &fakeNotifier{})

	svc.Ingest(context.Background(), []byte(`{"type":"order_failed","data":{"order":{"id":"X"},"reason":"Connection to print facility timed out"}}`))

	order := store.byID("order-1")
	if order.SyncStatus != orders.SyncFailed {
		t.Fatalf("expected failed status, got %s", order.SyncStatus)
	}
	if order.LastError != "Connection to print facility timed out" {
		t.Fatalf("last_error not set: %q", order.LastError)
	}
	if len(alertSink.emitted) != 1 {
		t.Fatalf("expected one alert, got %d", len(alertSink.emitted))
	}
	if alertSink.emitted[0].ErrorCode != "NETWORK_ERROR" {
		t.Fatalf("classification for alert context: got %q", alertSink.emitted[0].ErrorCode)
	}
	if events.processed["rec-1"] != "order-1" {
		t.Fatal("record not stamped processed")
	}
}

func TestIngestUpdatedSetsCompletionOnce(t *testing.T) {
	store := newFakeOrderStore(submittedOrder("PF-9"))
	svc := newTestService(newFakeEventStore(), store, &fakeAlerts{}, &fakeNotifier{})

	svc.Ingest(context.Background(), []byte(`{"type":"order_updated","data":{"order":{"id":"PF-9","status":"fulfilled"}}}`))
	order := store.byID("order-1")
	if order.CompletedAt == nil {
		t.Fatal("terminal success status must stamp completion")
	}
	first := *order.CompletedAt

	svc.Ingest(context.Background(), []byte(`{"type":"order_updated","data":{"order":{"id":"PF-9","status":"fulfilled"}}}`))
	if !order.CompletedAt.Equal(first) {
		t.Fatal("completion timestamp must be set once")
	}
}

func TestIngestDispatchFailureIsRecorded(t *testing.T) {
	events := newFakeEventStore()
	store := newFakeOrderStore(submittedOrder("PF-9"))
	svc := newTestService(events, store, &fakeAlerts{}, &fakeNotifier{})

	// package_shipped without a shipment block cannot be applied.
	svc.Ingest(context.Background(), []byte(`{"type":"package_shipped","data":{"order":{"id":"PF-9"}}}`))

	if events.failures["rec-1"] == "" {
		t.Fatal("dispatch failure must be stamped on the event record")
	}
	if _, ok := events.processed["rec-1"]; ok {
		t.Fatal("failed event must not be stamped processed")
	}
}

func TestIngestShippedAfterCanceledDoesNotRegress(t *testing.T) {
	order := submittedOrder("PF-9")
	order.SyncStatus = orders.SyncCanceled
	store := newFakeOrderStore(order)
	svc := newTestService(newFakeEventStore(), store, &fakeAlerts{}, &fakeNotifier{})

	svc.Ingest(context.Background(), []byte(`{
		"type": "package_shipped",
		"data": {
			"order": {"id": "PF-9"},
			"shipment": {"id": 777, "carrier": "DHL", "tracking_number": "JD2"}
		}
	}`))

	if got := store.byID("order-1").SyncStatus; got != orders.SyncCanceled {
		t.Fatalf("canceled is terminal, got %s", got)
	}
}

func TestIngestCanceledIsTerminal(t *testing.T) {
	store := newFakeOrderStore(submittedOrder("PF-9"))
	svc := newTestService(newFakeEventStore(), store, &fakeAlerts{}, &fakeNotifier{})

	svc.Ingest(context.Background(), []byte(`{"type":"order_canceled","data":{"order":{"id":"PF-9"},"reason":"customer request"}}`))

	if got := store.byID("order-1").SyncStatus; got != orders.SyncCanceled {
		t.Fatalf("expected canceled, got %s", got)
	}
}
