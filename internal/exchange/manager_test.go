package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

func TestManagerRegisterAndConnectAll(t *testing.T) {
	m := NewManager()
	binance := newFakeAdapter(core.VenueBinance)
	kraken := newFakeAdapter(core.VenueKraken)
	m.Register(binance)
	m.Register(kraken)

	var connected []core.Venue
	m.SetCallbacks(ManagerCallbacks{
		OnConnected: func(v core.Venue) { connected = append(connected, v) },
	})

	errs := m.ConnectAll(context.Background())
	require.Empty(t, errs)
	assert.Len(t, connected, 2)

	h, ok := m.Health(core.VenueBinance)
	require.True(t, ok)
	assert.True(t, h.IsConnected)
	assert.Equal(t, int64(1_000_000), h.LatencyNS)
}

func TestManagerFastestVenue(t *testing.T) {
	m := NewManager()
	binance := newFakeAdapter(core.VenueBinance)
	kraken := newFakeAdapter(core.VenueKraken)
	m.Register(binance)
	m.Register(kraken)
	m.ConnectAll(context.Background())

	kraken.mu.Lock()
	kraken.latencyNS = 500_000
	kraken.mu.Unlock()
	m.onConnected(core.VenueKraken)

	fastest, ok := m.FastestVenue()
	require.True(t, ok)
	assert.Equal(t, core.VenueKraken, fastest)
}

func TestManagerUnhealthyAfterErrorThreshold(t *testing.T) {
	m := NewManager()
	binance := newFakeAdapter(core.VenueBinance)
	m.Register(binance)
	m.ConnectAll(context.Background())

	for i := 0; i < errorThreshold+1; i++ {
		binance.emitError("boom")
	}

	h, ok := m.Health(core.VenueBinance)
	require.True(t, ok)
	assert.False(t, h.IsHealthy)
	assert.Equal(t, int64(errorThreshold+1), h.ErrorCount)

	_, fastestOK := m.FastestVenue()
	assert.False(t, fastestOK)
}

func TestManagerTickCallbackIsVenueTagged(t *testing.T) {
	m := NewManager()
	binance := newFakeAdapter(core.VenueBinance)
	m.Register(binance)

	var gotVenue core.Venue
	var gotTick core.Tick
	m.SetCallbacks(ManagerCallbacks{
		OnTick: func(v core.Venue, t core.Tick) {
			gotVenue = v
			gotTick = t
		},
	})

	sym := core.Symbol{Base: "BTC", Quote: "USDT"}
	tick := core.Tick{Symbol: sym, BestBid: core.ToPrice(100), BestAsk: core.ToPrice(101)}
	binance.emitTick(tick)

	assert.Equal(t, core.VenueBinance, gotVenue)
	assert.Equal(t, tick.BestBid, gotTick.BestBid)
}

func TestManagerSendOrderRejectsWhenNotConnected(t *testing.T) {
	m := NewManager()
	binance := newFakeAdapter(core.VenueBinance)
	m.Register(binance)

	resp, err := m.SendOrder(context.Background(), core.VenueBinance, OrderRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "not-connected", resp.ErrorMessage)
}

func TestManagerCancelAllOrdersAllVenues(t *testing.T) {
	m := NewManager()
	binance := newFakeAdapter(core.VenueBinance)
	kraken := newFakeAdapter(core.VenueKraken)
	m.Register(binance)
	m.Register(kraken)
	m.ConnectAll(context.Background())

	sym := core.Symbol{Base: "BTC", Quote: "USDT"}
	results := m.CancelAllOrdersAllVenues(context.Background(), sym)
	assert.Len(t, results, 2)
}
