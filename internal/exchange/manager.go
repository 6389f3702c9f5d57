package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// Health tracks per-venue connectivity and performance.
type Health struct {
	Venue       core.Venue
	IsConnected bool
	LatencyNS   int64
	LastTickTs  core.Timestamp
	ErrorCount  int64
	IsHealthy   bool
}

// errorThreshold is the error count above which a venue is marked
// unhealthy and excluded from fastest-venue selection.
const errorThreshold = 10

// Manager owns the venue registry (venue -> adapter) and per-venue
// health. It installs internal callbacks on every registered adapter and
// re-emits to user-provided callbacks after recording side effects.
type Manager struct {
	mu        sync.RWMutex
	adapters  map[core.Venue]Adapter
	health    map[core.Venue]*Health
	callbacks ManagerCallbacks
}

// NewManager creates an empty venue manager.
func NewManager() *Manager {
	return &Manager{
		adapters: make(map[core.Venue]Adapter),
		health:   make(map[core.Venue]*Health),
	}
}

// SetCallbacks installs the user-facing callback table that the manager
// forwards to after its own bookkeeping.
func (m *Manager) SetCallbacks(cb ManagerCallbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = cb
}

// Register adds an adapter to the registry and wires the manager's
// internal callbacks onto it.
func (m *Manager) Register(a Adapter) {
	venue := a.Venue()

	m.mu.Lock()
	m.adapters[venue] = a
	m.health[venue] = &Health{Venue: venue, IsHealthy: true}
	m.mu.Unlock()

	a.SetCallbacks(Callbacks{
		OnTick:         func(t core.Tick) { m.onTick(venue, t) },
		OnOrderUpdate:  func(o core.Order) { m.onOrderUpdate(venue, o) },
		OnTrade:        func(tr core.Trade) { m.onTrade(venue, tr) },
		OnError:        func(msg string) { m.onError(venue, msg) },
		OnConnected:    func() { m.onConnected(venue) },
		OnDisconnected: func() { m.onDisconnected(venue) },
	})
}

// Get returns the adapter registered for venue, if any.
func (m *Manager) Get(venue core.Venue) (Adapter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.adapters[venue]
	return a, ok
}

// Venues returns all registered venue identifiers.
func (m *Manager) Venues() []core.Venue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Venue, 0, len(m.adapters))
	for v := range m.adapters {
		out = append(out, v)
	}
	return out
}

// Health returns a snapshot of venue's health, if registered.
func (m *Manager) Health(venue core.Venue) (Health, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.health[venue]
	if !ok {
		return Health{}, false
	}
	return *h, true
}

// ConnectedVenues returns the venues currently connected.
func (m *Manager) ConnectedVenues() []core.Venue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Venue
	for v, h := range m.health {
		if h.IsConnected {
			out = append(out, v)
		}
	}
	return out
}

// FastestVenue returns the venue with the lowest latency among venues
// that are both connected and healthy, or (0, false) if none qualify.
func (m *Manager) FastestVenue() (core.Venue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best core.Venue
	var bestLatency int64
	found := false
	for v, h := range m.health {
		if !h.IsConnected || !h.IsHealthy {
			continue
		}
		if !found || h.LatencyNS < bestLatency {
			best, bestLatency, found = v, h.LatencyNS, true
		}
	}
	return best, found
}

// broadcastResult is one adapter's outcome from a fan-out operation.
type broadcastResult struct {
	Venue core.Venue
	Err   error
}

// ConnectAll connects every registered adapter concurrently. Individual
// failures are isolated and logged; they never abort the broadcast.
func (m *Manager) ConnectAll(ctx context.Context) []error {
	return m.broadcast(func(a Adapter) error { return a.Connect(ctx) })
}

// DisconnectAll disconnects every registered adapter concurrently.
func (m *Manager) DisconnectAll(ctx context.Context) []error {
	return m.broadcast(func(a Adapter) error { return a.Disconnect(ctx) })
}

// SubscribeTickerAll subscribes every registered adapter to symbol's
// ticker concurrently.
func (m *Manager) SubscribeTickerAll(ctx context.Context, symbol core.Symbol) []error {
	return m.broadcast(func(a Adapter) error { return a.SubscribeTicker(ctx, symbol) })
}

// SubscribeOrderbookAll subscribes every registered adapter to symbol's
// order book concurrently.
func (m *Manager) SubscribeOrderbookAll(ctx context.Context, symbol core.Symbol, depth int) []error {
	return m.broadcast(func(a Adapter) error { return a.SubscribeOrderbook(ctx, symbol, depth) })
}

// CancelAllOrdersAllVenues cancels all orders for symbol on every
// registered venue concurrently, returning a count per venue.
func (m *Manager) CancelAllOrdersAllVenues(ctx context.Context, symbol core.Symbol) map[core.Venue]int {
	m.mu.RLock()
	adapters := make(map[core.Venue]Adapter, len(m.adapters))
	for v, a := range m.adapters {
		adapters[v] = a
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[core.Venue]int)

	for venue, a := range adapters {
		wg.Add(1)
		go func(venue core.Venue, a Adapter) {
			defer wg.Done()
			count, err := a.CancelAllOrders(ctx, symbol)
			if err != nil {
				log.Warn().Str("venue", venue.String()).Err(err).Msg("cancel_all_orders failed")
				return
			}
			mu.Lock()
			results[venue] = count
			mu.Unlock()
		}(venue, a)
	}
	wg.Wait()
	return results
}

// broadcast runs fn over every registered adapter concurrently, isolating
// per-adapter failures into the returned error slice.
func (m *Manager) broadcast(fn func(Adapter) error) []error {
	m.mu.RLock()
	adapters := make(map[core.Venue]Adapter, len(m.adapters))
	for v, a := range m.adapters {
		adapters[v] = a
	}
	m.mu.RUnlock()

	resultCh := make(chan broadcastResult, len(adapters))
	var wg sync.WaitGroup
	for venue, a := range adapters {
		wg.Add(1)
		go func(venue core.Venue, a Adapter) {
			defer wg.Done()
			resultCh <- broadcastResult{Venue: venue, Err: fn(a)}
		}(venue, a)
	}
	wg.Wait()
	close(resultCh)

	var errs []error
	for r := range resultCh {
		if r.Err != nil {
			log.Warn().Str("venue", r.Venue.String()).Err(r.Err).Msg("broadcast operation failed")
			errs = append(errs, fmt.Errorf("%s: %w", r.Venue, r.Err))
		}
	}
	return errs
}

// SendOrder routes an order to the target venue's adapter, failing fast
// with a not-connected error if the venue isn't connected.
func (m *Manager) SendOrder(ctx context.Context, venue core.Venue, req OrderRequest) (OrderResponse, error) {
	a, ok := m.Get(venue)
	if !ok {
		return OrderResponse{Success: false, ErrorMessage: "not-connected: venue not registered"}, nil
	}

	m.mu.RLock()
	h := m.health[venue]
	connected := h != nil && h.IsConnected
	m.mu.RUnlock()

	if !connected {
		return OrderResponse{Success: false, ErrorMessage: "not-connected"}, nil
	}
	return a.SendOrder(ctx, req)
}

// CancelOrder routes a cancel to the target venue's adapter.
func (m *Manager) CancelOrder(ctx context.Context, venue core.Venue, symbol core.Symbol, venueOrderID string) (bool, error) {
	a, ok := m.Get(venue)
	if !ok {
		return false, nil
	}
	return a.CancelOrder(ctx, symbol, venueOrderID)
}

func (m *Manager) onTick(venue core.Venue, t core.Tick) {
	m.mu.Lock()
	if h, ok := m.health[venue]; ok {
		h.LastTickTs = core.NowNS()
	}
	cb := m.callbacks.OnTick
	m.mu.Unlock()

	if cb != nil {
		cb(venue, t)
	}
}

func (m *Manager) onOrderUpdate(venue core.Venue, o core.Order) {
	m.mu.RLock()
	cb := m.callbacks.OnOrderUpdate
	m.mu.RUnlock()
	if cb != nil {
		cb(venue, o)
	}
}

func (m *Manager) onTrade(venue core.Venue, tr core.Trade) {
	m.mu.RLock()
	cb := m.callbacks.OnTrade
	m.mu.RUnlock()
	if cb != nil {
		cb(venue, tr)
	}
}

func (m *Manager) onError(venue core.Venue, msg string) {
	m.mu.Lock()
	if h, ok := m.health[venue]; ok {
		h.ErrorCount++
		if h.ErrorCount > errorThreshold {
			h.IsHealthy = false
		}
	}
	cb := m.callbacks.OnError
	m.mu.Unlock()
	if cb != nil {
		cb(venue, msg)
	}
}

func (m *Manager) onConnected(venue core.Venue) {
	m.mu.Lock()
	if h, ok := m.health[venue]; ok {
		h.IsConnected = true
		if a, ok := m.adapters[venue]; ok {
			h.LatencyNS = a.LatencyNS()
		}
	}
	cb := m.callbacks.OnConnected
	m.mu.Unlock()
	if cb != nil {
		cb(venue)
	}
}

func (m *Manager) onDisconnected(venue core.Venue) {
	m.mu.Lock()
	if h, ok := m.health[venue]; ok {
		h.IsConnected = false
	}
	cb := m.callbacks.OnDisconnected
	m.mu.Unlock()
	if cb != nil {
		cb(venue)
	}
}
