// Package orchestrator wires the venue manager, consolidated book,
// arbitrage detector/executor, market-making strategy, and risk manager
// into a single event-driven trading loop.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/arbitrage"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/metrics"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/risk"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/strategy"
)

// tickEventQueueSize bounds the tick and order-update channels. When a
// channel is full the new event is dropped with a warning, so the adapter
// goroutines never block on a slow consumer.
const tickEventQueueSize = 4096

// hedgeTimeout bounds how long a post-fill hedge order is allowed to take
// before it is abandoned.
const hedgeTimeout = 3 * time.Second

type tickEvent struct {
	venue core.Venue
	tick  core.Tick
}

type orderEvent struct {
	venue core.Venue
	order core.Order
}

// Config collects everything Orchestrator needs to wire together.
type Config struct {
	Symbol            core.Symbol
	MinVenuesToTrade   int
	ArbitrageEnabled  bool
	MarketMakerEnabled bool
	ArbConfig         arbitrage.Config
	RiskLimits        risk.Limits
}

// Orchestrator owns the full trading pipeline: market data fan-in,
// arbitrage detection/execution, market-making quote generation, and
// pre/post-trade risk bookkeeping.
type Orchestrator struct {
	cfg Config

	manager  *exchange.Manager
	book     *consolidated.Book
	detector *arbitrage.Detector
	executor *arbitrage.Executor
	mm       strategy.MarketMaker
	hedger   *strategy.Hedger
	risk     *risk.Manager
	metrics  *metrics.Registry

	tickCh  chan tickEvent
	orderCh chan orderEvent

	running   int32
	fillSeen  map[string]core.Quantity
	fillMu    sync.Mutex

	ticksProcessed int64
	ordersSent     int64
}

// New builds an Orchestrator. mm may be nil when MarketMakerEnabled is
// false.
func New(cfg Config, manager *exchange.Manager, mm strategy.MarketMaker, metricsRegistry *metrics.Registry) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		manager:  manager,
		book:     consolidated.New(cfg.Symbol),
		detector: arbitrage.NewDetector(cfg.ArbConfig),
		executor: arbitrage.NewExecutor(manager, cfg.ArbConfig),
		mm:       mm,
		hedger:   strategy.NewHedger(),
		risk:     risk.NewManager(cfg.RiskLimits),
		metrics:  metricsRegistry,
		tickCh:   make(chan tickEvent, tickEventQueueSize),
		orderCh:  make(chan orderEvent, tickEventQueueSize),
		fillSeen: make(map[string]core.Quantity),
	}
}

// Start registers callbacks, connects every registered venue, subscribes
// to market data for the configured symbol, and launches the event loop.
// It returns once connection and subscription attempts have completed;
// the event loop keeps running in the background until ctx is canceled.
func (o *Orchestrator) Start(ctx context.Context) error {
	for _, v := range o.manager.Venues() {
		o.book.AddVenue(v)
	}

	o.manager.SetCallbacks(exchange.ManagerCallbacks{
		OnTick:         o.enqueueTick,
		OnOrderUpdate:  o.enqueueOrderUpdate,
		OnError:        o.onError,
		OnConnected:    o.onConnected,
		OnDisconnected: o.onDisconnected,
	})

	for _, err := range o.manager.ConnectAll(ctx) {
		if err != nil {
			log.Error().Err(err).Msg("venue connect failed")
		}
	}
	for _, err := range o.manager.SubscribeTickerAll(ctx, o.cfg.Symbol) {
		if err != nil {
			log.Error().Err(err).Msg("ticker subscribe failed")
		}
	}
	for _, err := range o.manager.SubscribeOrderbookAll(ctx, o.cfg.Symbol, 10) {
		if err != nil {
			log.Error().Err(err).Msg("orderbook subscribe failed")
		}
	}

	if o.mm != nil && o.cfg.MarketMakerEnabled {
		o.mm.Enable()
	}

	atomic.StoreInt32(&o.running, 1)
	go o.runEventLoop(ctx)

	log.Info().Str("symbol", o.cfg.Symbol.String()).Msg("orchestrator started")
	return nil
}

// Stop disables the market maker, cancels resting orders on every venue,
// and disconnects. It does not stop the event loop, which exits when the
// ctx passed to Start is canceled.
func (o *Orchestrator) Stop(ctx context.Context) error {
	atomic.StoreInt32(&o.running, 0)
	if o.mm != nil {
		o.mm.Disable()
	}

	o.manager.CancelAllOrdersAllVenues(ctx, o.cfg.Symbol)
	for _, err := range o.manager.DisconnectAll(ctx) {
		if err != nil {
			log.Error().Err(err).Msg("venue disconnect failed")
		}
	}

	log.Info().
		Int64("ticks_processed", atomic.LoadInt64(&o.ticksProcessed)).
		Int64("orders_sent", atomic.LoadInt64(&o.ordersSent)).
		Msg("orchestrator stopped")
	return nil
}

func (o *Orchestrator) enqueueTick(venue core.Venue, t core.Tick) {
	select {
	case o.tickCh <- tickEvent{venue: venue, tick: t}:
	default:
		log.Warn().Str("venue", venue.String()).Msg("tick queue full, dropping tick")
	}
}

func (o *Orchestrator) enqueueOrderUpdate(venue core.Venue, ord core.Order) {
	select {
	case o.orderCh <- orderEvent{venue: venue, order: ord}:
	default:
		log.Warn().Str("venue", venue.String()).Msg("order queue full, dropping update")
	}
}

func (o *Orchestrator) runEventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-o.tickCh:
			o.handleTick(ctx, ev.venue, ev.tick)
		case ev := <-o.orderCh:
			o.handleOrderUpdate(ev.venue, ev.order)
		}
	}
}

func (o *Orchestrator) handleTick(ctx context.Context, venue core.Venue, t core.Tick) {
	atomic.AddInt64(&o.ticksProcessed, 1)
	o.book.Update(venue, t)
	if o.metrics != nil {
		o.metrics.TicksProcessed.WithLabelValues(venue.String()).Inc()
	}

	if o.risk.IsKillSwitchActive() {
		return
	}
	if len(o.manager.ConnectedVenues()) < o.cfg.MinVenuesToTrade {
		return
	}

	if o.cfg.ArbitrageEnabled {
		o.checkArbitrage(ctx)
	}
	if o.mm != nil && o.cfg.MarketMakerEnabled {
		o.runMarketMaker(ctx)
	}
}

func (o *Orchestrator) checkArbitrage(ctx context.Context) {
	opp, ok := o.detector.Check(o.book)
	if !ok || o.executor.IsExecuting() {
		return
	}
	if o.metrics != nil {
		o.metrics.OpportunitiesSeen.Inc()
	}
	go func() {
		if o.executor.Execute(ctx, opp) {
			if o.metrics != nil {
				o.metrics.ArbExecuted.Inc()
			}
		} else if o.metrics != nil {
			o.metrics.ArbFailed.Inc()
		}
	}()
}

func (o *Orchestrator) runMarketMaker(ctx context.Context) {
	mid, ok := o.book.MidPrice()
	if !ok {
		return
	}
	position := o.risk.TotalPosition()
	signal := strategy.Signal{FairValue: core.FromPrice(mid), Timestamp: core.NowNS()}

	decisions := o.mm.ComputeQuotes(o.book, position, signal, o.manager)
	for _, decision := range decisions {
		if !decision.ShouldQuote {
			continue
		}
		o.submitQuote(ctx, decision, mid)
	}
}

func (o *Orchestrator) submitQuote(ctx context.Context, decision strategy.QuoteDecision, reference core.Price) {
	if decision.BidSize > 0 {
		o.sendOrder(ctx, decision.Venue, core.Buy, decision.BidPrice, decision.BidSize, reference)
	}
	if decision.AskSize > 0 {
		o.sendOrder(ctx, decision.Venue, core.Sell, decision.AskPrice, decision.AskSize, reference)
	}
}

func (o *Orchestrator) sendOrder(ctx context.Context, venue core.Venue, side core.Side, price core.Price, qty core.Quantity, reference core.Price) {
	clientID := core.NewClientOrderID()
	order := core.Order{
		ClientID:  clientID,
		Venue:     venue,
		Symbol:    o.cfg.Symbol,
		Side:      side,
		OrderType: core.OrderTypeLimit,
		Price:     price,
		Quantity:  qty,
	}

	result := o.risk.CheckOrder(venue, order, reference)
	if !result.Passed {
		if o.metrics != nil {
			o.metrics.OrdersRejected.WithLabelValues(result.Violation.String()).Inc()
		}
		log.Debug().Str("violation", result.Violation.String()).Msg("order rejected by risk manager")
		return
	}

	resp, err := o.manager.SendOrder(ctx, venue, exchange.OrderRequest{
		Symbol:        o.cfg.Symbol,
		Side:          side,
		OrderType:     core.OrderTypeLimit,
		Price:         price,
		Quantity:      qty,
		TimeInForce:   core.GTC,
		ClientOrderID: clientID,
	})
	if err != nil || !resp.Success {
		log.Warn().Err(err).Str("venue", venue.String()).Msg("order send failed")
		return
	}

	order.VenueOrderID = resp.VenueOrderID
	o.risk.OnOrderSent(order)
	atomic.AddInt64(&o.ordersSent, 1)
	if o.metrics != nil {
		o.metrics.OrdersSent.WithLabelValues(venue.String(), side.String()).Inc()
	}
}

func (o *Orchestrator) handleOrderUpdate(venue core.Venue, order core.Order) {
	o.fillMu.Lock()
	previouslyFilled := o.fillSeen[order.ClientID]
	newFillQty := order.FilledQty - previouslyFilled
	o.fillSeen[order.ClientID] = order.FilledQty
	o.fillMu.Unlock()

	if newFillQty <= 0 {
		return
	}

	o.risk.RecordFill(venue, order.ClientID, order.Side, newFillQty, order.Price)
	if o.mm != nil {
		o.mm.OnFill(order, newFillQty, order.Price)
	}
	if o.metrics != nil {
		o.metrics.Fills.WithLabelValues(venue.String(), order.Side.String()).Inc()
		riskMetrics := o.risk.Metrics()
		o.metrics.TotalPosition.Set(core.FromQuantity(riskMetrics.TotalPosition))
		o.metrics.DailyPnL.Set(riskMetrics.DailyPnL)
	}

	if o.cfg.MarketMakerEnabled {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), hedgeTimeout)
			defer cancel()
			if _, err := o.hedger.HedgeFill(ctx, o.manager, o.book, order.Symbol, venue, order.Side, newFillQty); err != nil {
				log.Warn().Err(err).Msg("hedge failed")
			}
		}()
	}
}

func (o *Orchestrator) onError(venue core.Venue, msg string) {
	log.Error().Str("venue", venue.String()).Str("error", msg).Msg("venue error")
}

func (o *Orchestrator) onConnected(venue core.Venue) {
	log.Info().Str("venue", venue.String()).Msg("venue connected")
}

func (o *Orchestrator) onDisconnected(venue core.Venue) {
	log.Warn().Str("venue", venue.String()).Msg("venue disconnected")
}

// Health reports the orchestrator's current health for the /healthz
// endpoint.
func (o *Orchestrator) Health() metrics.HealthStatus {
	connected := len(o.manager.ConnectedVenues())
	status := "ok"
	if o.risk.IsKillSwitchActive() {
		status = "kill_switch_active"
	} else if connected < o.cfg.MinVenuesToTrade {
		status = "degraded"
	}
	return metrics.HealthStatus{
		Status:           status,
		KillSwitchActive: o.risk.IsKillSwitchActive(),
		ConnectedVenues:  connected,
	}
}

// Risk exposes the risk manager so callers can trigger a manual kill
// switch or inspect its state.
func (o *Orchestrator) Risk() *risk.Manager { return o.risk }
