package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func price(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func scenarioLines() []CartLine {
	return []CartLine{
		{LineID: "l1", ProductRef: "p1", UnitPrice: price("10.00"), Quantity: 2, StockLimit: 5},
		{LineID: "l2", ProductRef: "p2", UnitPrice: price("5.50"), Quantity: 1},
	}
}

func scenarioQuote() *Quote {
	return &Quote{PostalCode: "SW1A 0AA", Economy: price("4.99"), Premium: price("9.99")}
}

func TestPriceCartEmptyIsZero(t *testing.T) {
	require.True(t, PriceCart(nil).IsZero())
	require.True(t, PriceCart([]CartLine{}).IsZero())
}

func TestPriceLineMissingUnitPrice(t *testing.T) {
	line := CartLine{LineID: "x", Quantity: 3}
	require.True(t, PriceLine(line).IsZero())
	warnings := Audit([]CartLine{line})
	require.Len(t, warnings, 1)
	require.Equal(t, "missing unit price", warnings[0].Reason)
}

func TestPriceLineClampsToStock(t *testing.T) {
	line := CartLine{UnitPrice: price("2.50"), Quantity: 9, StockLimit: 4}
	require.Equal(t, "10.00", Format(PriceLine(line)))
	require.Equal(t, "quantity exceeds stock", Audit([]CartLine{line})[0].Reason)
}

func TestPriceCartMonotonicInQuantity(t *testing.T) {
	lines := scenarioLines()
	lines[0].Quantity = 1
	prev := PriceCart(lines)
	for qty := 2; qty <= 12; qty++ {
		lines[0].Quantity = qty
		got := PriceCart(lines)
		require.True(t, got.GreaterThanOrEqual(prev), "qty=%d", qty)
		prev = got
	}
}

func TestComputeTotalsScenario(t *testing.T) {
	engine := Engine{TailLiftFee: decimal.RequireFromString("5.00")}
	lines := scenarioLines()
	require.Equal(t, "25.50", Format(PriceCart(lines)))

	totals := engine.ComputeTotals(lines, Selection{Method: MethodEconomy, TailLift: true}, scenarioQuote())
	require.Equal(t, "25.50", Format(totals.Subtotal))
	require.Equal(t, "4.99", Format(totals.ShippingCost))
	require.Equal(t, "5.00", Format(totals.Surcharge))
	require.Equal(t, "35.49", Format(totals.Total))
	require.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.ShippingCost).Add(totals.Surcharge)))
}

func TestComputeTotalsIsPure(t *testing.T) {
	engine := Engine{TailLiftFee: DefaultTailLiftFee}
	sel := Selection{Method: MethodPremium}
	a := engine.ComputeTotals(scenarioLines(), sel, scenarioQuote())
	b := engine.ComputeTotals(scenarioLines(), sel, scenarioQuote())
	require.True(t, a.Total.Equal(b.Total))
	require.True(t, a.ShippingCost.Equal(b.ShippingCost))
}

func TestSwitchingMethodOnlyChangesShipping(t *testing.T) {
	engine := Engine{TailLiftFee: DefaultTailLiftFee}
	economy := engine.ComputeTotals(scenarioLines(), Selection{Method: MethodEconomy}, scenarioQuote())
	premium := engine.ComputeTotals(scenarioLines(), Selection{Method: MethodPremium}, scenarioQuote())
	require.True(t, economy.Subtotal.Equal(premium.Subtotal))
	require.True(t, economy.Surcharge.Equal(premium.Surcharge))
	require.Equal(t, "9.99", Format(premium.ShippingCost))
	require.Equal(t, "5.00", Format(premium.Total.Sub(economy.Total)))
}

func TestComputeTotalsWithoutQuoteOrMethod(t *testing.T) {
	engine := Engine{TailLiftFee: DefaultTailLiftFee}
	noQuote := engine.ComputeTotals(scenarioLines(), Selection{Method: MethodEconomy}, nil)
	require.True(t, noQuote.ShippingCost.IsZero())

	noMethod := engine.ComputeTotals(scenarioLines(), Selection{}, scenarioQuote())
	require.True(t, noMethod.ShippingCost.IsZero())
	require.Equal(t, "25.50", Format(noMethod.Total))
}

func TestComputeTotalsNoFloatDrift(t *testing.T) {
	lines := make([]CartLine, 0, 100)
	for i := 0; i < 100; i++ {
		lines = append(lines, CartLine{UnitPrice: price("0.10"), Quantity: 3})
	}
	totals := Engine{}.ComputeTotals(lines, Selection{}, nil)
	require.Equal(t, "30.00", Format(totals.Total))
}

func TestQuoteDefaultMethod(t *testing.T) {
	economyOnly := Quote{Economy: price("4.99")}
	require.Equal(t, MethodEconomy, economyOnly.DefaultMethod())
	require.False(t, economyOnly.Available(MethodPremium))
	require.Equal(t, []Method{MethodEconomy}, economyOnly.Methods())

	both := *scenarioQuote()
	require.Equal(t, MethodNone, both.DefaultMethod())

	require.Equal(t, MethodNone, Quote{}.DefaultMethod())
}

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod(" Premium ")
	require.True(t, ok)
	require.Equal(t, MethodPremium, m)
	m, ok = ParseMethod("")
	require.True(t, ok)
	require.Equal(t, MethodNone, m)
	_, ok = ParseMethod("drone")
	require.False(t, ok)
}

func TestTotalsJSON(t *testing.T) {
	totals := Engine{TailLiftFee: DefaultTailLiftFee}.ComputeTotals(scenarioLines(), Selection{Method: MethodEconomy, TailLift: true}, scenarioQuote())
	data, err := totals.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"subtotal":"25.50","shippingCost":"4.99","surcharge":"5.00","total":"35.49"}`, string(data))
}
