package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymbol(t *testing.T) {
	cases := []struct {
		in   string
		base string
		quot string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHUSDC", "ETH", "USDC"},
		{"SOLUSD", "SOL", "USD"},
		{"ETHBTC", "ETH", "BTC"},
		{"LTCETH", "LTC", "ETH"},
	}
	for _, c := range cases {
		sym, err := ParseSymbol(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.base, sym.Base)
		assert.Equal(t, c.quot, sym.Quote)
		assert.Equal(t, c.in, sym.String())
	}
}

func TestParseSymbolUnrecognized(t *testing.T) {
	_, err := ParseSymbol("XYZ")
	assert.Error(t, err)
}

func TestPriceRoundTrip(t *testing.T) {
	for _, v := range []float64{100.0, 0.00000001, 50123.45678901, 1.0} {
		got := FromPrice(ToPrice(v))
		assert.True(t, math.Abs(got-v) <= 1e-8, "round trip of %v produced %v", v, got)
	}
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.False(t, OrderStatusNew.IsTerminal())
	assert.False(t, OrderStatusPartiallyFilled.IsTerminal())
	assert.True(t, OrderStatusFilled.IsTerminal())
	assert.True(t, OrderStatusCanceled.IsTerminal())
	assert.True(t, OrderStatusRejected.IsTerminal())
	assert.True(t, OrderStatusExpired.IsTerminal())
}

func TestOrderRemaining(t *testing.T) {
	o := Order{Quantity: 100, FilledQty: 30}
	assert.Equal(t, Quantity(70), o.Remaining())
	assert.True(t, o.IsActive())
}
