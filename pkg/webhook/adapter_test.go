package webhook

import (
	"testing"
	"time"
)

func TestParseNumericAndStringOrderIDs(t *testing.T) {
	numeric := Parse([]byte(`{"type":"order_updated","data":{"order":{"id":12345,"external_id":"order-1","status":"inprocess"}}}`))
	if numeric.ProviderOrderID != "12345" {
		t.Fatalf("numeric id: got %q", numeric.ProviderOrderID)
	}
	if numeric.Type != EventOrderUpdated || numeric.Status != "inprocess" {
		t.Fatalf("bad envelope: %+v", numeric)
	}

	str := Parse([]byte(`{"type":"order_updated","data":{"order":{"id":"PF-77","status":"fulfilled"}}}`))
	if str.ProviderOrderID != "PF-77" {
		t.Fatalf("string id: got %q", str.ProviderOrderID)
	}
}

func TestParseShipmentBlock(t *testing.T) {
	ev := Parse([]byte(`{
		"type": "package_shipped",
		"data": {
			"order": {"id": 9, "status": "fulfilled"},
			"shipment": {
				"id": 555,
				"carrier": "DHL",
				"service": "Standard",
				"tracking_number": "JD014600003",
				"tracking_url": "https://track.example.com/JD014600003",
				"ship_date": "2026-08-30"
			}
		}
	}`))
	if ev.Shipment == nil {
		t.Fatal("shipment block not parsed")
	}
	if ev.Shipment.ID != "555" || ev.Shipment.Carrier != "DHL" {
		t.Fatalf("bad shipment: %+v", ev.Shipment)
	}
	want := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	if !ev.Shipment.ShippedAt.Equal(want) {
		t.Fatalf("ship date: got %v", ev.Shipment.ShippedAt)
	}
}

func TestParseFailureReasonFallback(t *testing.T) {
	ev := Parse([]byte(`{"type":"order_failed","data":{"order":{"id":1},"error":"Printing failed: file unreadable"}}`))
	if ev.Reason != "Printing failed: file unreadable" {
		t.Fatalf("reason fallback: got %q", ev.Reason)
	}
}

func TestParseMalformedPayloadStillYieldsEvent(t *testing.T) {
	ev := Parse([]byte(`this is not json`))
	if ev == nil {
		t.Fatal("nil event for malformed payload")
	}
	if ev.Type != "" || ev.ProviderOrderID != "" {
		t.Fatalf("malformed payload must yield empty fields, got %+v", ev)
	}
	if string(ev.Raw) != "this is not json" {
		t.Fatal("raw payload must be preserved")
	}
}

func TestOrphanType(t *testing.T) {
	if got := OrphanType("order_updated"); got != "orphan_order_updated" {
		t.Fatalf("got %q", got)
	}
	if got := OrphanType(""); got != "orphan_unknown" {
		t.Fatalf("got %q", got)
	}
}
