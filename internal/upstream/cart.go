package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/toko-storefront/internal/pricing"
)

// Cart is the caller's upstream cart with normalised lines.
type Cart struct {
	ID    string
	Lines []pricing.CartLine
}

// AddItemInput describes a line to add.
type AddItemInput struct {
	ProductRef   string `json:"product"`
	VariationRef string `json:"variation_id,omitempty"`
	Quantity     int    `json:"quantity"`
}

type cartPayload struct {
	ID    any              `json:"id"`
	Items []map[string]any `json:"items"`
}

// GetCart loads the cart. Loose numeric fields are reparsed through the
// pricing normaliser; a missing price stays missing.
func (c *Client) GetCart(ctx context.Context) (Cart, error) {
	var payload cartPayload
	if err := c.doJSON(ctx, http.MethodGet, "cart", nil, &payload); err != nil {
		return Cart{}, err
	}
	cart := Cart{ID: stringField(payload.ID), Lines: make([]pricing.CartLine, 0, len(payload.Items))}
	for _, item := range payload.Items {
		cart.Lines = append(cart.Lines, lineFromItem(item))
	}
	return cart, nil
}

// AddItem adds a product variation to the cart.
func (c *Client) AddItem(ctx context.Context, in AddItemInput) error {
	return c.doJSON(ctx, http.MethodPost, "cart/items", in, nil)
}

// UpdateItem replaces the quantity of a cart line.
func (c *Client) UpdateItem(ctx context.Context, lineID string, quantity int) error {
	body := map[string]int{"quantity": quantity}
	return c.doJSON(ctx, http.MethodPatch, "cart/items/"+url.PathEscape(lineID), body, nil)
}

// RemoveItem deletes a cart line.
func (c *Client) RemoveItem(ctx context.Context, lineID string) error {
	return c.doJSON(ctx, http.MethodDelete, "cart/items/"+url.PathEscape(lineID), nil, nil)
}

func lineFromItem(item map[string]any) pricing.CartLine {
	line := pricing.CartLine{
		LineID:       stringField(item["id"]),
		VariationRef: stringField(item["variation_id"]),
	}
	switch product := item["product"].(type) {
	case map[string]any:
		line.ProductRef = stringField(product["id"])
		line.Title = firstString(product["title"], product["name"])
		if _, ok := item["price"]; !ok {
			item["price"] = product["price"]
		}
	default:
		line.ProductRef = stringField(product)
		line.Title = stringField(item["title"])
	}

	// raw values are kept so pricing.Audit can flag them; PriceLine
	// normalises at pricing time
	line.StockLimit = stockLimit(item["stock"])
	line.Quantity = pricing.ParseQuantity(item["quantity"])
	line.UnitPrice = pricing.ParseAmount(item["price"])
	return line
}

// stockLimit returns the known stock or 0 when unknown.
func stockLimit(raw any) int {
	n := pricing.ParseQuantity(raw)
	if n < 1 {
		return 0
	}
	return n
}

func stringField(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func firstString(values ...any) string {
	for _, v := range values {
		if s := stringField(v); s != "" {
			return s
		}
	}
	return ""
}
