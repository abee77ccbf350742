package sync

import "github.com/develoddy/fulfillment/pkg/classify"

// Result codes. Callers branch on the code, never on a boolean.
const (
	CodeOK                  = "OK"
	CodeSaleNotFound        = "SALE_NOT_FOUND"
	CodeNoReceipt           = "NO_RECEIPT"
	CodePaymentNotConfirmed = "PAYMENT_NOT_CONFIRMED"
	CodeAlreadySynced       = "ALREADY_SYNCED"
	CodeNoAddress           = "NO_ADDRESS"
	CodeNoProducts          = "NO_PRODUCTS"
	CodeInvalidProducts     = "INVALID_PRODUCTS"
	CodeProviderError       = "PROVIDER_ERROR"
)

// Result is the fully-discriminated outcome of a submission attempt. The
// orchestrator never fails across this boundary for expected conditions;
// only store unavailability propagates as a Go error.
type Result struct {
	Code            string `json:"code"`
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id,omitempty"`
	ProviderStatus  string `json:"provider_status,omitempty"`

	// Diagnostics for precondition failures.
	PaymentStatus string `json:"payment_status,omitempty"`
	OffendingItem string `json:"offending_item,omitempty"`

	Message               string                   `json:"message,omitempty"`
	Classification        *classify.Classification `json:"classification,omitempty"`
	EstimatedDeliveryDays int                      `json:"estimated_delivery_days,omitempty"`
}

// Synced reports whether the order ended up submitted at the provider,
// whether by this call or an earlier one.
func (r *Result) Synced() bool {
	return r.Code == CodeOK || r.Code == CodeAlreadySynced
}
