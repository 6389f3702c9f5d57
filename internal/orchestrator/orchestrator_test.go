package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/arbitrage"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/risk"
)

// stubAdapter is a minimal in-memory exchange.Adapter used only to drive
// the orchestrator's event loop without touching the network.
type stubAdapter struct {
	mu        sync.Mutex
	venue     core.Venue
	connected bool
	cb        exchange.Callbacks
	sendResp  exchange.OrderResponse
}

func newStubAdapter(venue core.Venue) *stubAdapter {
	return &stubAdapter{venue: venue, sendResp: exchange.OrderResponse{Success: true, VenueOrderID: "v-1"}}
}

func (s *stubAdapter) Venue() core.Venue  { return s.venue }
func (s *stubAdapter) IsConnected() bool  { s.mu.Lock(); defer s.mu.Unlock(); return s.connected }

func (s *stubAdapter) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.connected = true
	cb := s.cb.OnConnected
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (s *stubAdapter) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *stubAdapter) SubscribeTicker(ctx context.Context, symbol core.Symbol) error   { return nil }
func (s *stubAdapter) SubscribeOrderbook(ctx context.Context, symbol core.Symbol, depth int) error {
	return nil
}

func (s *stubAdapter) SendOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResponse, error) {
	return s.sendResp, nil
}

func (s *stubAdapter) CancelOrder(ctx context.Context, symbol core.Symbol, venueOrderID string) (bool, error) {
	return true, nil
}

func (s *stubAdapter) CancelAllOrders(ctx context.Context, symbol core.Symbol) (int, error) {
	return 0, nil
}

func (s *stubAdapter) OpenOrders(ctx context.Context, symbol core.Symbol) ([]core.Order, error) {
	return nil, nil
}

func (s *stubAdapter) SetCallbacks(cb exchange.Callbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = cb
}

func (s *stubAdapter) LatencyNS() int64 { return 1_000_000 }

func (s *stubAdapter) emitTick(t core.Tick) {
	s.mu.Lock()
	cb := s.cb.OnTick
	s.mu.Unlock()
	if cb != nil {
		cb(t)
	}
}

func testSymbol() core.Symbol { return core.Symbol{Base: "BTC", Quote: "USDT"} }

func newTestOrchestrator(t *testing.T) (*Orchestrator, *stubAdapter, *stubAdapter) {
	t.Helper()
	manager := exchange.NewManager()
	a1 := newStubAdapter(core.VenueBinance)
	a2 := newStubAdapter(core.VenueKraken)
	manager.Register(a1)
	manager.Register(a2)

	cfg := Config{
		Symbol:            testSymbol(),
		MinVenuesToTrade:  2,
		ArbitrageEnabled:  true,
		MarketMakerEnabled: false,
		ArbConfig:         arbitrage.DefaultConfig(),
		RiskLimits:        risk.DefaultLimits(),
	}
	o := New(cfg, manager, nil, nil)
	return o, a1, a2
}

func TestStartConnectsAllVenues(t *testing.T) {
	o, a1, a2 := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, o.Start(ctx))
	assert.True(t, a1.IsConnected())
	assert.True(t, a2.IsConnected())
}

func TestHealthReportsDegradedBelowMinVenues(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	o.cfg.MinVenuesToTrade = 5
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, o.Start(ctx))
	status := o.Health()
	assert.Equal(t, "degraded", status.Status)
}

func TestHealthReportsKillSwitchActive(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, o.Start(ctx))

	o.risk.ActivateKillSwitch("test")
	status := o.Health()
	assert.Equal(t, "kill_switch_active", status.Status)
	assert.True(t, status.KillSwitchActive)
}

func TestTickUpdatesConsolidatedBook(t *testing.T) {
	o, a1, _ := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, o.Start(ctx))

	a1.emitTick(core.Tick{
		Symbol:  testSymbol(),
		BestBid: core.ToPrice(100),
		BestAsk: core.ToPrice(100.1),
	})

	require.Eventually(t, func() bool {
		_, ok := o.book.MidPrice()
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestStopCancelsOrdersAndDisconnects(t *testing.T) {
	o, a1, a2 := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, o.Start(ctx))

	require.NoError(t, o.Stop(context.Background()))
	assert.False(t, a1.IsConnected())
	assert.False(t, a2.IsConnected())
}
