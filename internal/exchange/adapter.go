// Package exchange defines the venue adapter contract, a venue manager
// that owns adapters and routes events, and the concrete per-venue
// adapters under its subpackages.
package exchange

import (
	"context"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// OrderRequest is what the core asks an adapter to place.
type OrderRequest struct {
	Symbol        core.Symbol
	Side          core.Side
	OrderType     core.OrderType
	Price         core.Price
	Quantity      core.Quantity
	TimeInForce   core.TimeInForce
	ClientOrderID string
}

// OrderResponse is what an adapter returns for a send_order call. It
// never throws across the boundary: on any HTTP/protocol error, Success
// is false with a human-readable ErrorMessage.
type OrderResponse struct {
	Success       bool
	VenueOrderID  string
	ClientOrderID string
	ErrorMessage  string
}

// Callbacks is the set of normalized event callbacks an adapter emits.
// Each adapter instance is bound to exactly one venue, so these are
// unannotated; the Manager tags them with the venue identity before
// re-emitting to ManagerCallbacks.
type Callbacks struct {
	OnTick         func(core.Tick)
	OnOrderUpdate  func(core.Order)
	OnTrade        func(core.Trade)
	OnError        func(string)
	OnConnected    func()
	OnDisconnected func()
}

// ManagerCallbacks is the venue-tagged callback table the Manager
// forwards to, matching the normalized callbacks to the core in spec
// section 6: on_tick(venue, Tick), on_order_update(venue, Order),
// on_trade(venue, Trade), on_error(venue, str), on_connected(venue),
// on_disconnected(venue).
type ManagerCallbacks struct {
	OnTick         func(core.Venue, core.Tick)
	OnOrderUpdate  func(core.Venue, core.Order)
	OnTrade        func(core.Venue, core.Trade)
	OnError        func(core.Venue, string)
	OnConnected    func(core.Venue)
	OnDisconnected func(core.Venue)
}

// Adapter is the abstract contract every venue adapter must satisfy:
// connect/subscribe/send/cancel plus callback registration and latency
// reporting. Each adapter normalizes side/order-type/time-in-force/status
// strings and fixed-point price/quantity conversions internally, and
// stamps every emitted tick with the local receive timestamp.
type Adapter interface {
	// Venue returns this adapter's venue identifier.
	Venue() core.Venue

	// IsConnected reports the current connection state.
	IsConnected() bool

	// Connect establishes the REST session and WebSocket connection,
	// measures a round-trip latency sample, and emits OnConnected.
	Connect(ctx context.Context) error

	// Disconnect cancels the WS reader, closes sockets, and emits
	// OnDisconnected.
	Disconnect(ctx context.Context) error

	// SubscribeTicker idempotently subscribes to top-of-book updates.
	SubscribeTicker(ctx context.Context, symbol core.Symbol) error

	// SubscribeOrderbook idempotently subscribes to L2 updates to depth.
	SubscribeOrderbook(ctx context.Context, symbol core.Symbol, depth int) error

	// SendOrder submits an order. Never returns an error for venue-side
	// rejections; those surface as OrderResponse.Success == false.
	SendOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)

	// CancelOrder cancels a single resting order.
	CancelOrder(ctx context.Context, symbol core.Symbol, venueOrderID string) (bool, error)

	// CancelAllOrders cancels every resting order for symbol, returning
	// the count cancelled.
	CancelAllOrders(ctx context.Context, symbol core.Symbol) (int, error)

	// OpenOrders lists normalized open orders for symbol.
	OpenOrders(ctx context.Context, symbol core.Symbol) ([]core.Order, error)

	// SetCallbacks installs the normalized event callback table.
	SetCallbacks(cb Callbacks)

	// LatencyNS returns the last-measured round-trip latency sample.
	LatencyNS() int64
}
