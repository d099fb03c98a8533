package upstream

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrMissingOrderID is returned when order creation succeeds without an id.
var ErrMissingOrderID = errors.New("upstream: order created without id")

// CreateOrder submits an order payload and returns the upstream order id.
// Upstream answers with either "id" or "order_id".
func (c *Client) CreateOrder(ctx context.Context, payload any) (string, error) {
	var out struct {
		ID      any `json:"id"`
		OrderID any `json:"order_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "orders", payload, &out); err != nil {
		return "", err
	}
	id := firstString(out.ID, out.OrderID)
	if id == "" {
		return "", ErrMissingOrderID
	}
	return id, nil
}

// CreatePaymentSession opens a hosted payment session for orderID and returns
// the URL the browser should be redirected to.
func (c *Client) CreatePaymentSession(ctx context.Context, orderID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	body := map[string]string{"order_id": orderID}
	if err := c.doJSON(ctx, http.MethodPost, "payments/session", body, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.URL), nil
}
