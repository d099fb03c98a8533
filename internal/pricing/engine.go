package pricing

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultTailLiftFee applies when no fee is configured.
var DefaultTailLiftFee = decimal.RequireFromString("5.00")

// Engine computes order totals. TailLiftFee is fixed for the life of the process.
type Engine struct {
	TailLiftFee Money
}

// DataQualityWarning flags a line whose upstream data had to be patched up.
type DataQualityWarning struct {
	LineID     string `json:"lineId"`
	ProductRef string `json:"productRef"`
	Reason     string `json:"reason"`
}

// PriceLine returns unit price times the normalised quantity. A missing unit
// price prices the line at zero.
func PriceLine(line CartLine) Money {
	if !line.UnitPrice.Valid {
		return decimal.Zero
	}
	unit := NormalizeMoney(line.UnitPrice.Decimal)
	qty := NormalizeQuantity(line.Quantity, line.StockLimit)
	return unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// PriceCart sums PriceLine over lines. An empty cart prices to zero.
func PriceCart(lines []CartLine) Money {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(PriceLine(line))
	}
	return subtotal
}

// Audit reports lines that PriceLine had to correct.
func Audit(lines []CartLine) []DataQualityWarning {
	var out []DataQualityWarning
	for _, line := range lines {
		warn := func(reason string) {
			out = append(out, DataQualityWarning{LineID: line.LineID, ProductRef: line.ProductRef, Reason: reason})
		}
		switch {
		case !line.UnitPrice.Valid:
			warn("missing unit price")
		case line.UnitPrice.Decimal.IsNegative():
			warn("negative unit price")
		}
		if line.Quantity < 1 {
			warn("quantity below one")
		} else if line.StockLimit >= 1 && line.Quantity > line.StockLimit {
			warn("quantity exceeds stock")
		}
	}
	return out
}

// LogWarnings writes each warning at warn level.
func LogWarnings(logger *zerolog.Logger, warnings []DataQualityWarning) {
	if logger == nil {
		return
	}
	for _, w := range warnings {
		logger.Warn().
			Str("line_id", w.LineID).
			Str("product_ref", w.ProductRef).
			Str("reason", w.Reason).
			Msg("data_quality_warning")
	}
}

// ComputeTotals combines subtotal, the selected method's shipping price and the
// tail-lift surcharge. It is pure: equal inputs give equal totals.
func (e Engine) ComputeTotals(lines []CartLine, selection Selection, quote *Quote) Totals {
	subtotal := PriceCart(lines)
	shipping := decimal.Zero
	if quote != nil {
		if price, ok := quote.Price(selection.Chosen()); ok {
			shipping = NormalizeMoney(price)
		}
	}
	surcharge := decimal.Zero
	if selection.TailLift {
		surcharge = NormalizeMoney(e.TailLiftFee)
	}
	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Surcharge:    surcharge,
		Total:        subtotal.Add(shipping).Add(surcharge),
	}
}
