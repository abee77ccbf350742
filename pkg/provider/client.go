package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/develoddy/fulfillment/pkg/common/httpclient"
	"github.com/develoddy/fulfillment/pkg/common/logger"
	"golang.org/x/oauth2"
)

// Client talks to the fulfillment provider's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpclient.New(timeout))
	client := oauth2.NewClient(ctx, src)
	client.Timeout = timeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// SubmitOrder pushes an order to the provider. Not retried here: the retry
// queue owns the schedule for failed submissions.
func (c *Client) SubmitOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling order request: %w", err)
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", bytes.NewReader(body), &order); err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"external_id":       req.ExternalID,
		"provider_order_id": order.ID,
		"status":            order.Status,
	}).Info("Order submitted to provider")

	return &order, nil
}

// GetOrder fetches the provider's current view of an order. Safe to retry.
func (c *Client) GetOrder(ctx context.Context, providerOrderID string) (*Order, error) {
	var order Order
	err := httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		return c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(providerOrderID), nil, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetVariant fetches a catalog variant. Safe to retry.
func (c *Client) GetVariant(ctx context.Context, variantID int64) (*Variant, error) {
	var variant Variant
	err := httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		return c.do(ctx, http.MethodGet, fmt.Sprintf("/catalog/variants/%d", variantID), nil, &variant)
	})
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

type apiEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading provider response: %w", err)
	}

	var envelope apiEnvelope
	if len(raw) > 0 {
		// Tolerate non-JSON error bodies; the status code still classifies.
		_ = json.Unmarshal(raw, &envelope)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	payload := envelope.Result
	if len(payload) == 0 {
		payload = raw
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding provider response: %w", err)
	}
	return nil
}
