package exchange

import (
	"context"
	"sync"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// fakeAdapter is an in-memory Adapter used by tests across this package
// and by higher-level packages exercising the Manager contract.
type fakeAdapter struct {
	mu           sync.Mutex
	venue        core.Venue
	connected    bool
	latencyNS    int64
	cb           Callbacks
	sendErr      error
	sendDelay    func()
	sendResponse OrderResponse
	cancelCalls  []string
}

func newFakeAdapter(venue core.Venue) *fakeAdapter {
	return &fakeAdapter{venue: venue, sendResponse: OrderResponse{Success: true, VenueOrderID: "v-1"}}
}

func (f *fakeAdapter) Venue() core.Venue { return f.venue }

func (f *fakeAdapter) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeAdapter) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = true
	f.latencyNS = 1_000_000
	cb := f.cb.OnConnected
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *fakeAdapter) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = false
	cb := f.cb.OnDisconnected
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *fakeAdapter) SubscribeTicker(ctx context.Context, symbol core.Symbol) error { return nil }

func (f *fakeAdapter) SubscribeOrderbook(ctx context.Context, symbol core.Symbol, depth int) error {
	return nil
}

func (f *fakeAdapter) SendOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if f.sendDelay != nil {
		f.sendDelay()
	}
	if f.sendErr != nil {
		return OrderResponse{}, f.sendErr
	}
	return f.sendResponse, nil
}

func (f *fakeAdapter) CancelOrder(ctx context.Context, symbol core.Symbol, venueOrderID string) (bool, error) {
	f.mu.Lock()
	f.cancelCalls = append(f.cancelCalls, venueOrderID)
	f.mu.Unlock()
	return true, nil
}

func (f *fakeAdapter) CancelAllOrders(ctx context.Context, symbol core.Symbol) (int, error) {
	return 0, nil
}

func (f *fakeAdapter) OpenOrders(ctx context.Context, symbol core.Symbol) ([]core.Order, error) {
	return nil, nil
}

func (f *fakeAdapter) SetCallbacks(cb Callbacks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

func (f *fakeAdapter) LatencyNS() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latencyNS
}

func (f *fakeAdapter) emitError(msg string) {
	f.mu.Lock()
	cb := f.cb.OnError
	f.mu.Unlock()
	if cb != nil {
		cb(msg)
	}
}

func (f *fakeAdapter) emitTick(t core.Tick) {
	f.mu.Lock()
	cb := f.cb.OnTick
	f.mu.Unlock()
	if cb != nil {
		cb(t)
	}
}
