package pricing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// maxQuantity bounds quantities when the stock level is unknown.
const maxQuantity = math.MaxInt32

// NormalizeQuantity coerces raw into a whole quantity in [1, stockLimit], or
// [1, maxQuantity] when stockLimit < 1. Anything that is not a finite number
// yields 1.
func NormalizeQuantity(raw any, stockLimit int) int {
	v, ok := toFloat(raw)
	if !ok {
		return 1
	}
	v = math.Floor(v)
	if v < 1 {
		v = 1
	}
	if v > maxQuantity {
		v = maxQuantity
	}
	qty := int(v)
	if stockLimit >= 1 && qty > stockLimit {
		qty = stockLimit
	}
	return qty
}

// NormalizeMoney coerces raw into a non-negative amount rounded to two places.
// Missing, non-finite, unparsable or negative input yields zero.
func NormalizeMoney(raw any) Money {
	m, ok := ParseMoney(raw)
	if !ok {
		return decimal.Zero
	}
	return m
}

// ParseMoney is NormalizeMoney that also reports whether raw held a usable
// number. Negative values are usable but clamp to zero.
func ParseMoney(raw any) (Money, bool) {
	d, ok := parseDecimal(raw)
	if !ok {
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, true
	}
	return d.Round(2), true
}

// ParseAmount parses raw as given, negative values included, so that
// upstream defects survive until Audit can report them.
func ParseAmount(raw any) decimal.NullDecimal {
	d, ok := parseDecimal(raw)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.Round(2))
}

// ParseQuantity floors raw without clamping to stock. Non-numeric input
// yields 0.
func ParseQuantity(raw any) int {
	v, ok := toFloat(raw)
	if !ok {
		return 0
	}
	v = math.Max(math.Min(math.Floor(v), maxQuantity), -maxQuantity)
	return int(v)
}

func parseDecimal(raw any) (decimal.Decimal, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		d = v
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		d = *v
	case decimal.NullDecimal:
		if !v.Valid {
			return decimal.Zero, false
		}
		d = v.Decimal
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case bool:
		return decimal.Zero, false
	default:
		f, ok := toFloat(v)
		if !ok {
			return decimal.Zero, false
		}
		d = decimal.NewFromFloat(f)
	}
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func toFloat(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case nil, bool:
		return 0, false
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case decimal.Decimal:
		f = v.InexactFloat64()
	case decimal.NullDecimal:
		if !v.Valid {
			return 0, false
		}
		f = v.Decimal.InexactFloat64()
	default:
		parsed, err := cast.ToFloat64E(raw)
		if err != nil {
			return 0, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
