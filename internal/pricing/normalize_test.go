package pricing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuantity(t *testing.T) {
	cases := []struct {
		name  string
		raw   any
		limit int
		want  int
	}{
		{"plain int", 3, 10, 3},
		{"fraction floors", 2.9, 10, 2},
		{"numeric string", " 4 ", 10, 4},
		{"fractional string", "7.99", 10, 7},
		{"json number", json.Number("5"), 10, 5},
		{"decimal", decimal.RequireFromString("6.5"), 10, 6},
		{"clamped to stock", 25, 10, 10},
		{"zero becomes one", 0, 10, 1},
		{"negative becomes one", -4, 10, 1},
		{"below one fraction", 0.4, 10, 1},
		{"nan", math.NaN(), 10, 1},
		{"infinity", math.Inf(1), 10, 1},
		{"nan string", "NaN", 10, 1},
		{"garbage", "two", 10, 1},
		{"missing", nil, 10, 1},
		{"bool", true, 10, 1},
		{"unknown stock", 500, 0, 500},
		{"negative stock means unknown", 12, -1, 12},
		{"huge unknown stock", 1e12, 0, math.MaxInt32},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NormalizeQuantity(tc.raw, tc.limit))
		})
	}
}

func TestNormalizeQuantityAlwaysInRange(t *testing.T) {
	inputs := []any{-100, -1.5, 0, 0.999, 1, 1.5, 3, 9, 10, 11, 1e9, "abc", "", nil, math.NaN(), math.Inf(-1), "12.3"}
	for limit := 1; limit <= 12; limit++ {
		for _, raw := range inputs {
			got := NormalizeQuantity(raw, limit)
			require.GreaterOrEqual(t, got, 1, "raw=%v limit=%d", raw, limit)
			require.LessOrEqual(t, got, limit, "raw=%v limit=%d", raw, limit)
		}
	}
}

func TestNormalizeMoney(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want string
	}{
		{"string", "4.99", "4.99"},
		{"float", 10.0, "10.00"},
		{"int", 7, "7.00"},
		{"rounds to cents", "1.005", "1.01"},
		{"json number", json.Number("9.99"), "9.99"},
		{"negative", -3, "0.00"},
		{"negative string", "-0.01", "0.00"},
		{"nan", math.NaN(), "0.00"},
		{"inf", math.Inf(1), "0.00"},
		{"garbage", "free", "0.00"},
		{"missing", nil, "0.00"},
		{"null decimal", decimal.NullDecimal{}, "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Format(NormalizeMoney(tc.raw)))
		})
	}
}

func TestParseMoneyDistinguishesMissing(t *testing.T) {
	_, ok := ParseMoney("")
	require.False(t, ok)
	_, ok = ParseMoney("abc")
	require.False(t, ok)
	m, ok := ParseMoney("-2")
	require.True(t, ok)
	require.True(t, m.IsZero())
}

func TestParseAmountKeepsDefects(t *testing.T) {
	require.False(t, ParseAmount(nil).Valid)
	require.False(t, ParseAmount("abc").Valid)

	neg := ParseAmount("-3.456")
	require.True(t, neg.Valid)
	require.Equal(t, "-3.46", neg.Decimal.StringFixed(2))

	require.Equal(t, "12.75", ParseAmount(json.Number("12.75")).Decimal.StringFixed(2))
}

func TestParseQuantityFloorsWithoutClamping(t *testing.T) {
	require.Equal(t, 0, ParseQuantity("x"))
	require.Equal(t, 2, ParseQuantity("2.9"))
	require.Equal(t, -1, ParseQuantity(-0.5))
	require.Equal(t, math.MaxInt32, ParseQuantity(1e12))
	require.Equal(t, 0, ParseQuantity(math.Inf(1)))
}
