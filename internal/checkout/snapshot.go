package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/pricing"
)

// SnapshotInput gathers everything needed to place an order.
type SnapshotInput struct {
	CartID    string
	Lines     []pricing.CartLine
	Address   *Address
	Selection pricing.Selection
	Quote     *pricing.Quote
	Engine    pricing.Engine
	Currency  string
	Now       time.Time
}

// Snapshot is the immutable order payload handed to upstream. All fields are
// private; accessors return copies.
type Snapshot struct {
	cartID    string
	lines     []pricing.CartLine
	address   Address
	selection pricing.Selection
	postal    string
	shipping  pricing.Money
	totals    pricing.Totals
	currency  string
	createdAt time.Time
}

// BuildSnapshot validates the checkout preconditions and freezes the order.
// An empty cart is reported before an incomplete selection.
func BuildSnapshot(in SnapshotInput) (Snapshot, error) {
	if len(in.Lines) == 0 {
		return Snapshot{}, ErrEmptyCart
	}
	method := in.Selection.Chosen()
	if method == pricing.MethodNone || in.Quote == nil {
		return Snapshot{}, ErrIncompleteSelection
	}
	price, ok := in.Quote.Price(method)
	if !ok {
		return Snapshot{}, ErrIncompleteSelection
	}
	if in.Address == nil {
		return Snapshot{}, ErrNoAddress
	}

	lines := make([]pricing.CartLine, len(in.Lines))
	for i, line := range in.Lines {
		line.Quantity = pricing.NormalizeQuantity(line.Quantity, line.StockLimit)
		if line.UnitPrice.Valid {
			line.UnitPrice.Decimal = pricing.NormalizeMoney(line.UnitPrice.Decimal)
		}
		lines[i] = line
	}
	selection := pricing.Selection{Method: method, TailLift: in.Selection.TailLift}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	return Snapshot{
		cartID:    in.CartID,
		lines:     lines,
		address:   *in.Address,
		selection: selection,
		postal:    in.Quote.PostalCode,
		shipping:  pricing.NormalizeMoney(price),
		totals:    in.Engine.ComputeTotals(lines, selection, in.Quote),
		currency:  in.Currency,
		createdAt: now.UTC(),
	}, nil
}

func (s Snapshot) CartID() string               { return s.cartID }
func (s Snapshot) Address() Address             { return s.address }
func (s Snapshot) Selection() pricing.Selection { return s.selection }
func (s Snapshot) Totals() pricing.Totals       { return s.totals }
func (s Snapshot) CreatedAt() time.Time         { return s.createdAt }
func (s Snapshot) Currency() string             { return s.currency }
func (s Snapshot) Lines() []pricing.CartLine    { return append([]pricing.CartLine(nil), s.lines...) }
func (s Snapshot) ShippingPrice() pricing.Money { return s.shipping }

// Fingerprint identifies the order contents: cart, lines, destination and
// selection. Two snapshots of the same order share it.
func (s Snapshot) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%t", s.cartID, s.postal, s.selection.Method, s.selection.TailLift)
	for _, line := range s.lines {
		fmt.Fprintf(&b, "|%s:%s:%s:%d:%s", line.LineID, line.ProductRef, line.VariationRef, line.Quantity, pricing.NormalizeMoney(line.UnitPrice.Decimal).StringFixed(2))
	}
	return common.Sha256Hex(b.String())
}

// OrderPayload is the upstream order creation body.
type OrderPayload struct {
	CartID   string        `json:"cart_id,omitempty"`
	Currency string        `json:"currency"`
	Items    []OrderItem   `json:"items"`
	Shipping OrderShipping `json:"shipping"`
	Totals   OrderTotals   `json:"totals"`
	PlacedAt string        `json:"placed_at"`
}

type OrderItem struct {
	LineID      string `json:"line_id,omitempty"`
	ProductRef  string `json:"product"`
	VariationID string `json:"variation_id,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type OrderShipping struct {
	Method     pricing.Method `json:"method"`
	TailLift   bool           `json:"tail_lift"`
	Price      string         `json:"price"`
	PostalCode string         `json:"postal_code"`
	Address    Address        `json:"address"`
}

type OrderTotals struct {
	Subtotal  string `json:"subtotal"`
	Shipping  string `json:"shipping"`
	Surcharge string `json:"surcharge"`
	Total     string `json:"total"`
}

// Payload renders the snapshot in upstream's wire shape with money as
// two-place decimal strings.
func (s Snapshot) Payload() OrderPayload {
	items := make([]OrderItem, 0, len(s.lines))
	for _, line := range s.lines {
		unit := pricing.NormalizeMoney(line.UnitPrice)
		items = append(items, OrderItem{
			LineID:      line.LineID,
			ProductRef:  line.ProductRef,
			VariationID: line.VariationRef,
			Quantity:    line.Quantity,
			UnitPrice:   pricing.Format(unit),
			LineTotal:   pricing.Format(pricing.PriceLine(line)),
		})
	}
	return OrderPayload{
		CartID:   s.cartID,
		Currency: s.currency,
		Items:    items,
		Shipping: OrderShipping{
			Method:     s.selection.Method,
			TailLift:   s.selection.TailLift,
			Price:      pricing.Format(s.shipping),
			PostalCode: s.postal,
			Address:    s.address,
		},
		Totals: OrderTotals{
			Subtotal:  pricing.Format(s.totals.Subtotal),
			Shipping:  pricing.Format(s.totals.ShippingCost),
			Surcharge: pricing.Format(s.totals.Surcharge),
			Total:     pricing.Format(s.totals.Total),
		},
		PlacedAt: s.createdAt.Format(time.RFC3339),
	}
}
