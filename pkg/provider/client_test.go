package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSubmitOrderParsesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("missing bearer token, got %q", got)
		}

		var req OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.ExternalID != "order-1" {
			t.Fatalf("unexpected external id %q", req.ExternalID)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"id":                      "PF-100",
				"external_id":             "order-1",
				"status":                  "pending",
				"shipping_service_name":   "Flat Rate",
				"estimated_delivery_days": 7,
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	order, err := client.SubmitOrder(context.Background(), &OrderRequest{ExternalID: "order-1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if order.ID != "PF-100" || order.Status != "pending" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.EstimatedDeliveryDays != 7 {
		t.Fatalf("expected delivery estimate, got %d", order.EstimatedDeliveryDays)
	}
}

func TestSubmitOrderToleratesNumericID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"id":     98765,
				"status": "pending",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	order, err := client.SubmitOrder(context.Background(), &OrderRequest{ExternalID: "order-1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if order.ID != "98765" {
		t.Fatalf("numeric id not coerced, got %q", order.ID)
	}
}

func TestSubmitOrderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "ADDRESS_INVALID",
				"message": "recipient zip does not match country",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	_, err := client.SubmitOrder(context.Background(), &OrderRequest{ExternalID: "order-2"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "ADDRESS_INVALID" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestSubmitOrderToleratesNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	_, err := client.SubmitOrder(context.Background(), &OrderRequest{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream exploded" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}
