package arbitrage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange"
)

// orderSender is the subset of *exchange.Manager the executor depends on.
type orderSender interface {
	SendOrder(ctx context.Context, venue core.Venue, req exchange.OrderRequest) (exchange.OrderResponse, error)
	CancelOrder(ctx context.Context, venue core.Venue, symbol core.Symbol, venueOrderID string) (bool, error)
}

// Executor executes a detected opportunity as two concurrent IOC legs.
// At most one execution runs at a time; Execute is a no-op while another
// is in flight.
type Executor struct {
	manager orderSender
	cfg     Config

	executing int32 // atomic guard: 0 = idle, 1 = in flight

	mu    sync.Mutex
	stats Stats
}

// NewExecutor builds an Executor against manager with cfg.
func NewExecutor(manager orderSender, cfg Config) *Executor {
	return &Executor{manager: manager, cfg: cfg}
}

// IsExecuting reports whether an execution is currently in flight.
func (e *Executor) IsExecuting() bool {
	return atomic.LoadInt32(&e.executing) == 1
}

// Stats returns a snapshot of the executor's lifetime counters.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Execute sends simultaneous IOC buy/sell legs to capture opp's spread.
// Returns true iff both legs were successfully placed. A single failed leg
// triggers a compensating cancel of the leg that did succeed, and the
// execution is reported as failed. A timeout records a failure and returns
// false without cancelling either leg.
func (e *Executor) Execute(ctx context.Context, opp consolidated.Opportunity) bool {
	if !atomic.CompareAndSwapInt32(&e.executing, 0, 1) {
		log.Warn().Msg("already executing arbitrage, skipping")
		return false
	}
	defer atomic.StoreInt32(&e.executing, 0)

	quantity := e.clampQuantity(opp)
	if core.FromQuantity(quantity) < e.cfg.MinQuantity {
		log.Warn().Float64("qty", core.FromQuantity(quantity)).Msg("quantity too small for arbitrage")
		return false
	}

	log.Info().
		Str("buy_venue", opp.BuyVenue.String()).
		Str("sell_venue", opp.SellVenue.String()).
		Float64("quantity", core.FromQuantity(quantity)).
		Float64("expected_profit_bps", opp.ExpectedProfitBps).
		Msg("executing arbitrage")

	buyReq := exchange.OrderRequest{
		Symbol:        opp.Symbol,
		Side:          core.Buy,
		OrderType:     core.OrderTypeLimit,
		Price:         opp.BuyPrice,
		Quantity:      quantity,
		TimeInForce:   core.IOC,
		ClientOrderID: core.NewClientOrderID(),
	}
	sellReq := exchange.OrderRequest{
		Symbol:        opp.Symbol,
		Side:          core.Sell,
		OrderType:     core.OrderTypeLimit,
		Price:         opp.SellPrice,
		Quantity:      quantity,
		TimeInForce:   core.IOC,
		ClientOrderID: core.NewClientOrderID(),
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.ExecutionTimeoutMS)*time.Millisecond)
	defer cancel()

	type legResult struct {
		resp exchange.OrderResponse
		err  error
	}
	buyCh := make(chan legResult, 1)
	sellCh := make(chan legResult, 1)

	go func() {
		resp, err := e.manager.SendOrder(execCtx, opp.BuyVenue, buyReq)
		buyCh <- legResult{resp, err}
	}()
	go func() {
		resp, err := e.manager.SendOrder(execCtx, opp.SellVenue, sellReq)
		sellCh <- legResult{resp, err}
	}()

	var buyResult, sellResult legResult
	for i := 0; i < 2; i++ {
		select {
		case buyResult = <-buyCh:
		case sellResult = <-sellCh:
		case <-execCtx.Done():
			log.Error().Msg("arbitrage execution timeout")
			e.recordFailure()
			return false
		}
	}

	if buyResult.err == nil && sellResult.err == nil && buyResult.resp.Success && sellResult.resp.Success {
		e.mu.Lock()
		e.stats.OpportunitiesExecuted++
		e.stats.TotalProfitBps += opp.ExpectedProfitBps
		e.stats.TotalVolume += core.FromQuantity(quantity) * 2
		e.mu.Unlock()

		log.Info().
			Str("buy_order_id", buyResult.resp.VenueOrderID).
			Str("sell_order_id", sellResult.resp.VenueOrderID).
			Msg("arbitrage executed successfully")
		return true
	}

	e.recordFailure()
	if !buyResult.resp.Success {
		log.Error().Str("error", buyResult.resp.ErrorMessage).Msg("buy leg failed")
	}
	if !sellResult.resp.Success {
		log.Error().Str("error", sellResult.resp.ErrorMessage).Msg("sell leg failed")
	}
	e.compensate(context.Background(), opp, buyResult.resp, sellResult.resp)
	return false
}

// compensate cancels whichever leg succeeded when the other failed,
// preventing a naked one-sided position.
func (e *Executor) compensate(ctx context.Context, opp consolidated.Opportunity, buy, sell exchange.OrderResponse) {
	if buy.Success {
		if _, err := e.manager.CancelOrder(ctx, opp.BuyVenue, opp.Symbol, buy.VenueOrderID); err != nil {
			log.Error().Err(err).Msg("compensating cancel of buy leg failed")
		}
	}
	if sell.Success {
		if _, err := e.manager.CancelOrder(ctx, opp.SellVenue, opp.Symbol, sell.VenueOrderID); err != nil {
			log.Error().Err(err).Msg("compensating cancel of sell leg failed")
		}
	}
}

func (e *Executor) recordFailure() {
	e.mu.Lock()
	e.stats.FailedExecutions++
	e.mu.Unlock()
}

// clampQuantity caps the opportunity's quantity at the position-size limit
// expressed in USD, converting through the buy leg's float price.
func (e *Executor) clampQuantity(opp consolidated.Opportunity) core.Quantity {
	maxQty := core.ToQuantity(e.cfg.MaxPositionUSD / core.FromPrice(opp.BuyPrice))
	if opp.Quantity < maxQty {
		return opp.Quantity
	}
	return maxQty
}
