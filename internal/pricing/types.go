package pricing

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money is a currency amount held in fixed-point decimal and kept at two places.
type Money = decimal.Decimal

// Format renders m with exactly two decimal places.
func Format(m Money) string {
	return m.StringFixed(2)
}

// Method identifies a delivery method offered by a quote.
type Method string

const (
	MethodNone    Method = "none"
	MethodEconomy Method = "economy"
	MethodPremium Method = "premium"
)

// ParseMethod maps user input onto a Method. Empty input selects MethodNone.
func ParseMethod(value string) (Method, bool) {
	switch Method(strings.ToLower(strings.TrimSpace(value))) {
	case MethodNone, "":
		return MethodNone, true
	case MethodEconomy:
		return MethodEconomy, true
	case MethodPremium:
		return MethodPremium, true
	default:
		return MethodNone, false
	}
}

// Selection is the user's delivery choice. The zero value selects nothing.
type Selection struct {
	Method   Method `json:"method"`
	TailLift bool   `json:"tailLift"`
}

// Chosen returns the selected method, treating the zero value as MethodNone.
func (s Selection) Chosen() Method {
	if s.Method == "" {
		return MethodNone
	}
	return s.Method
}

// Quote holds the delivery prices returned for one postal code. An invalid
// NullDecimal means the method is unavailable, not free.
type Quote struct {
	PostalCode string              `json:"postalCode"`
	Economy    decimal.NullDecimal `json:"economy"`
	Premium    decimal.NullDecimal `json:"premium"`
	FetchedAt  time.Time           `json:"fetchedAt"`
}

// Price returns the quoted price for m and whether m can be selected.
func (q Quote) Price(m Method) (Money, bool) {
	var price decimal.NullDecimal
	switch m {
	case MethodEconomy:
		price = q.Economy
	case MethodPremium:
		price = q.Premium
	default:
		return decimal.Zero, false
	}
	if !price.Valid {
		return decimal.Zero, false
	}
	return price.Decimal, true
}

// Available reports whether m is priced in the quote.
func (q Quote) Available(m Method) bool {
	_, ok := q.Price(m)
	return ok
}

// Methods lists the selectable methods in display order.
func (q Quote) Methods() []Method {
	out := make([]Method, 0, 2)
	for _, m := range []Method{MethodEconomy, MethodPremium} {
		if q.Available(m) {
			out = append(out, m)
		}
	}
	return out
}

// DefaultMethod auto-selects a method only when exactly one is priced.
func (q Quote) DefaultMethod() Method {
	methods := q.Methods()
	if len(methods) == 1 {
		return methods[0]
	}
	return MethodNone
}

// CartLine is one product+variation entry. StockLimit below 1 means the stock
// level is unknown.
type CartLine struct {
	LineID       string              `json:"lineId"`
	ProductRef   string              `json:"productRef"`
	VariationRef string              `json:"variationRef,omitempty"`
	Title        string              `json:"title,omitempty"`
	UnitPrice    decimal.NullDecimal `json:"unitPrice"`
	Quantity     int                 `json:"quantity"`
	StockLimit   int                 `json:"stockLimit"`
}

// Totals is derived from lines, selection and quote; it is never stored.
type Totals struct {
	Subtotal     Money
	ShippingCost Money
	Surcharge    Money
	Total        Money
}

// MarshalJSON renders every amount as a two-place decimal string.
func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"subtotal":     Format(t.Subtotal),
		"shippingCost": Format(t.ShippingCost),
		"surcharge":    Format(t.Surcharge),
		"total":        Format(t.Total),
	})
}
