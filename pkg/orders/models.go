package orders

import (
	"time"
)

// Sync statuses an order moves through. canceled and delivered are terminal.
const (
	SyncPending   = "pending"
	SyncSubmitted = "submitted"
	SyncShipped   = "shipped"
	SyncDelivered = "delivered"
	SyncFailed    = "failed"
	SyncCanceled  = "canceled"
)

// PaidStatuses are the payment states that make an order eligible for
// fulfillment.
var PaidStatuses = map[string]bool{
	"paid":      true,
	"completed": true,
	"succeeded": true,
}

// Order is the storefront order as seen by the fulfillment engine. Rows are
// never deleted, only transitioned.
type Order struct {
	ID            string `json:"id" gorm:"primaryKey;column:id"`
	CustomerName  string `json:"customer_name" gorm:"column:customer_name"`
	CustomerEmail string `json:"customer_email" gorm:"column:customer_email"`
	Currency      string `json:"currency" gorm:"column:currency"`

	SyncStatus string `json:"sync_status" gorm:"column:sync_status;index"`

	// Set exactly once, by the first successful submission. Correlation key
	// for every webhook that follows.
	ProviderOrderID *string `json:"provider_order_id,omitempty" gorm:"column:provider_order_id;uniqueIndex"`
	ProviderStatus  string  `json:"provider_status,omitempty" gorm:"column:provider_status"`

	ShippingService       string `json:"shipping_service,omitempty" gorm:"column:shipping_service"`
	ShippingCost          string `json:"shipping_cost,omitempty" gorm:"column:shipping_cost"`
	EstimatedDeliveryDays int    `json:"estimated_delivery_days,omitempty" gorm:"column:estimated_delivery_days"`

	Carrier        string     `json:"carrier,omitempty" gorm:"column:carrier"`
	TrackingNumber string     `json:"tracking_number,omitempty" gorm:"column:tracking_number"`
	TrackingURL    string     `json:"tracking_url,omitempty" gorm:"column:tracking_url"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty" gorm:"column:shipped_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty" gorm:"column:delivered_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`

	LastError string `json:"last_error,omitempty" gorm:"column:last_error"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	Items   []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Address *Address    `json:"address,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is one purchasable line of an order.
type OrderItem struct {
	ID                uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID           string  `json:"order_id" gorm:"column:order_id;index"`
	ProductName       string  `json:"product_name" gorm:"column:product_name"`
	SKU               string  `json:"sku" gorm:"column:sku"`
	ProviderVariantID int64   `json:"provider_variant_id" gorm:"column:provider_variant_id"`
	Quantity          int     `json:"quantity" gorm:"column:quantity"`
	RetailPrice       float64 `json:"retail_price" gorm:"column:retail_price"`
	PrintFileURL      string  `json:"print_file_url" gorm:"column:print_file_url"`
	PreviewURL        string  `json:"preview_url,omitempty" gorm:"column:preview_url"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Address is the order's shipping destination.
type Address struct {
	ID          uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID     string `json:"order_id" gorm:"column:order_id;uniqueIndex"`
	Name        string `json:"name" gorm:"column:name"`
	Street1     string `json:"street1" gorm:"column:street1"`
	Street2     string `json:"street2,omitempty" gorm:"column:street2"`
	City        string `json:"city" gorm:"column:city"`
	State       string `json:"state,omitempty" gorm:"column:state"`
	Zip         string `json:"zip" gorm:"column:zip"`
	CountryCode string `json:"country_code" gorm:"column:country_code"`
	Phone       string `json:"phone,omitempty" gorm:"column:phone"`
	Email       string `json:"email,omitempty" gorm:"column:email"`
}

func (Address) TableName() string {
	return "order_addresses"
}

// Complete reports whether the address is usable for submission: name,
// street, city and at least one contact channel.
func (a *Address) Complete() bool {
	if a == nil {
		return false
	}
	if a.Name == "" || a.Street1 == "" || a.City == "" {
		return false
	}
	return a.Phone != "" || a.Email != ""
}

// Payment is the payment-capture record written by the checkout webhooks
// (outside this subsystem); read-only here.
type Payment struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	OrderID   string    `json:"order_id" gorm:"column:order_id;index"`
	Status    string    `json:"status" gorm:"column:status"`
	Method    string    `json:"method" gorm:"column:method"`
	Amount    float64   `json:"amount" gorm:"column:amount"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// Shipment is one provider shipment for an order. ProviderShipmentID is the
// natural dedup key for replayed package_shipped webhooks.
type Shipment struct {
	ID                 uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID            string    `json:"order_id" gorm:"column:order_id;index"`
	ProviderShipmentID string    `json:"provider_shipment_id" gorm:"column:provider_shipment_id;uniqueIndex"`
	Carrier            string    `json:"carrier" gorm:"column:carrier"`
	Service            string    `json:"service,omitempty" gorm:"column:service"`
	TrackingNumber     string    `json:"tracking_number" gorm:"column:tracking_number"`
	TrackingURL        string    `json:"tracking_url,omitempty" gorm:"column:tracking_url"`
	ShippedAt          time.Time `json:"shipped_at" gorm:"column:shipped_at"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Shipment) TableName() string {
	return "shipments"
}

// SubmissionUpdate carries the fields persisted after a successful provider
// submission.
type SubmissionUpdate struct {
	ProviderOrderID       string
	ProviderStatus        string
	ShippingService       string
	ShippingCost          string
	EstimatedDeliveryDays int
}
