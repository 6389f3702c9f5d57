package bybit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

func TestSideString(t *testing.T) {
	assert.Equal(t, "Buy", sideString(core.Buy))
	assert.Equal(t, "Sell", sideString(core.Sell))
}

func TestTifStringMapping(t *testing.T) {
	assert.Equal(t, "IOC", tifString(core.IOC))
	assert.Equal(t, "FOK", tifString(core.FOK))
	assert.Equal(t, "PostOnly", tifString(core.PostOnly))
	assert.Equal(t, "GTC", tifString(core.GTC))
}

func TestSignatureIsDeterministic(t *testing.T) {
	a := NewAdapter(Config{APIKey: "key", APISecret: "secret"})
	sig1 := a.sign("1000", "5000", `{"symbol":"BTCUSDT"}`)
	sig2 := a.sign("1000", "5000", `{"symbol":"BTCUSDT"}`)
	assert.Equal(t, sig1, sig2)

	sig3 := a.sign("1001", "5000", `{"symbol":"BTCUSDT"}`)
	assert.NotEqual(t, sig1, sig3)
}
