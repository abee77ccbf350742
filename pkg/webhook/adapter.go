package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is the canonical, provider-shape-independent view of one inbound
// event. All tolerance for payload drift lives in Parse; handlers only see
// this struct.
type Event struct {
	Type            string
	ProviderOrderID string
	ExternalID      string
	Status          string
	Reason          string
	Shipment        *ShipmentInfo
	Raw             json.RawMessage
}

// ShipmentInfo is the shipment block of package_shipped events.
type ShipmentInfo struct {
	ID             string
	Carrier        string
	Service        string
	TrackingNumber string
	TrackingURL    string
	ShippedAt      time.Time
}

type rawEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			ID         json.RawMessage `json:"id"`
			ExternalID string          `json:"external_id"`
			Status     string          `json:"status"`
		} `json:"order"`
		Shipment *struct {
			ID             json.RawMessage `json:"id"`
			Carrier        string          `json:"carrier"`
			Service        string          `json:"service"`
			TrackingNumber string          `json:"tracking_number"`
			TrackingURL    string          `json:"tracking_url"`
			ShipDate       string          `json:"ship_date"`
		} `json:"shipment"`
		Reason string `json:"reason"`
		Error  string `json:"error"`
	} `json:"data"`
}

// Parse translates one raw provider payload into the canonical Event.
// The provider serializes ids sometimes as numbers and sometimes as
// strings; both are accepted. A payload that is not JSON, or has no type,
// still yields an Event so the caller can persist and orphan it.
func Parse(raw []byte) *Event {
	ev := &Event{Raw: append(json.RawMessage(nil), raw...)}

	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ev
	}

	ev.Type = env.Type
	ev.ProviderOrderID = flexibleID(env.Data.Order.ID)
	ev.ExternalID = env.Data.Order.ExternalID
	ev.Status = env.Data.Order.Status

	ev.Reason = env.Data.Reason
	if ev.Reason == "" {
		ev.Reason = env.Data.Error
	}

	if sh := env.Data.Shipment; sh != nil {
		info := &ShipmentInfo{
			ID:             flexibleID(sh.ID),
			Carrier:        sh.Carrier,
			Service:        sh.Service,
			TrackingNumber: sh.TrackingNumber,
			TrackingURL:    sh.TrackingURL,
			ShippedAt:      time.Now().UTC(),
		}
		if sh.ShipDate != "" {
			for _, layout := range []string{time.RFC3339, "2006-01-02"} {
				if t, err := time.Parse(layout, sh.ShipDate); err == nil {
					info.ShippedAt = t
					break
				}
			}
		}
		ev.Shipment = info
	}
	return ev
}

// flexibleID decodes a JSON value that may be a number, a string, or
// absent, into its string form.
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

// OrphanType marks an event whose correlation key matched no local order.
func OrphanType(eventType string) string {
	if eventType == "" {
		eventType = "unknown"
	}
	return fmt.Sprintf("orphan_%s", eventType)
}
