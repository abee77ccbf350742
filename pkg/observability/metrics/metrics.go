package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	ordersSubmitted   atomic.Int64
	submitFailures    atomic.Int64
	retriesEnqueued   atomic.Int64
	retryAttempts     atomic.Int64
	retriesExhausted  atomic.Int64
	webhooksReceived  atomic.Int64
	webhooksOrphaned  atomic.Int64
	shipmentsRecorded atomic.Int64
	alertsEmitted     atomic.Int64
)

func IncOrdersSubmitted()   { ordersSubmitted.Add(1) }
func IncSubmitFailures()    { submitFailures.Add(1) }
func IncRetriesEnqueued()   { retriesEnqueued.Add(1) }
func IncRetryAttempts()     { retryAttempts.Add(1) }
func IncRetriesExhausted()  { retriesExhausted.Add(1) }
func IncWebhooksReceived()  { webhooksReceived.Add(1) }
func IncWebhooksOrphaned()  { webhooksOrphaned.Add(1) }
func IncShipmentsRecorded() { shipmentsRecorded.Add(1) }
func IncAlertsEmitted()     { alertsEmitted.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeCounter(w, "fulfillment_orders_submitted_total", "Orders successfully submitted to the provider.", ordersSubmitted.Load())
	writeCounter(w, "fulfillment_submit_failures_total", "Provider submissions that failed.", submitFailures.Load())
	writeCounter(w, "fulfillment_retries_enqueued_total", "Retry jobs created for recoverable failures.", retriesEnqueued.Load())
	writeCounter(w, "fulfillment_retry_attempts_total", "Retry attempts executed by the worker loop.", retryAttempts.Load())
	writeCounter(w, "fulfillment_retries_exhausted_total", "Retry jobs that ran out of attempts.", retriesExhausted.Load())
	writeCounter(w, "fulfillment_webhooks_received_total", "Provider webhook events received.", webhooksReceived.Load())
	writeCounter(w, "fulfillment_webhooks_orphaned_total", "Webhook events with no matching local order.", webhooksOrphaned.Load())
	writeCounter(w, "fulfillment_shipments_recorded_total", "Shipment records created from webhook events.", shipmentsRecorded.Load())
	writeCounter(w, "fulfillment_alerts_emitted_total", "Admin alerts emitted.", alertsEmitted.Load())
}

func writeCounter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
