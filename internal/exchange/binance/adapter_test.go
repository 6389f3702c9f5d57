package binance

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

func TestOrderTypeString(t *testing.T) {
	assert.Equal(t, "MARKET", orderTypeString(core.OrderTypeMarket))
	assert.Equal(t, "LIMIT_MAKER", orderTypeString(core.OrderTypeLimitMaker))
	assert.Equal(t, "LIMIT", orderTypeString(core.OrderTypeLimit))
}

func TestTifString(t *testing.T) {
	assert.Equal(t, "IOC", tifString(core.IOC))
	assert.Equal(t, "FOK", tifString(core.FOK))
	assert.Equal(t, "GTX", tifString(core.PostOnly))
	assert.Equal(t, "GTC", tifString(core.GTC))
}

func TestOrderStatusFromString(t *testing.T) {
	status, ok := orderStatusFromString("PARTIALLY_FILLED")
	assert.True(t, ok)
	assert.Equal(t, core.OrderStatusPartiallyFilled, status)

	_, ok = orderStatusFromString("NONSENSE")
	assert.False(t, ok)
}

func TestSignatureIsDeterministic(t *testing.T) {
	a := NewAdapter(Config{APISecret: "secret"})
	params := url.Values{}
	params.Set("symbol", "BTCUSDT")
	params.Set("side", "BUY")

	sig1 := a.sign(params)
	sig2 := a.sign(params)
	assert.Equal(t, sig1, sig2)
	assert.NotEmpty(t, sig1)

	other := url.Values{}
	other.Set("symbol", "ETHUSDT")
	assert.NotEqual(t, sig1, a.sign(other))
}
