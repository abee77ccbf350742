package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Recipient is the shipping destination block of an order submission.
type Recipient struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// File references a print asset attached to an item.
type File struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Item is one line of an order submission.
type Item struct {
	VariantID   int64  `json:"variant_id"`
	Quantity    int    `json:"quantity"`
	RetailPrice string `json:"retail_price"`
	Name        string `json:"name,omitempty"`
	Files       []File `json:"files,omitempty"`
}

// Costs is the aggregate retail cost block.
type Costs struct {
	Currency string `json:"currency"`
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// OrderRequest is the provider's order-submission shape.
type OrderRequest struct {
	ExternalID  string    `json:"external_id"`
	Shipping    string    `json:"shipping,omitempty"`
	Recipient   Recipient `json:"recipient"`
	Items       []Item    `json:"items"`
	RetailCosts Costs     `json:"retail_costs"`
}

// Order is the provider's view of a submitted order.
type Order struct {
	ID                    string `json:"id"`
	ExternalID            string `json:"external_id"`
	Status                string `json:"status"`
	ShippingService       string `json:"shipping_service_name"`
	ShippingCost          string `json:"shipping_cost"`
	EstimatedDeliveryDays int    `json:"estimated_delivery_days"`
}

// UnmarshalJSON tolerates numeric or string order ids; the provider emits
// both depending on the endpoint, matching its webhook payloads.
func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.ID = flexibleID(aux.ID)
	return nil
}

func flexibleID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}

// Variant describes one sellable provider variant.
type Variant struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Availability string `json:"availability"` // in_stock, discontinued, out_of_stock
}

// APIError is a non-2xx provider response. It is the classifier's input.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.Status, e.Message)
}
