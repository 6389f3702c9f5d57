package arbitrage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange"
)

type fakeManager struct {
	mu          sync.Mutex
	sendDelay   time.Duration
	sendErr     map[core.Venue]error
	sendSuccess map[core.Venue]bool
	cancelled   []core.Venue
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		sendErr:     make(map[core.Venue]error),
		sendSuccess: map[core.Venue]bool{core.VenueBinance: true, core.VenueKraken: true},
	}
}

func (f *fakeManager) SendOrder(ctx context.Context, venue core.Venue, req exchange.OrderRequest) (exchange.OrderResponse, error) {
	if f.sendDelay > 0 {
		select {
		case <-time.After(f.sendDelay):
		case <-ctx.Done():
			return exchange.OrderResponse{}, ctx.Err()
		}
	}
	f.mu.Lock()
	ok := f.sendSuccess[venue]
	f.mu.Unlock()
	if !ok {
		return exchange.OrderResponse{Success: false, ErrorMessage: "rejected"}, nil
	}
	return exchange.OrderResponse{Success: true, VenueOrderID: venue.String() + "-order", ClientOrderID: req.ClientOrderID}, nil
}

func (f *fakeManager) CancelOrder(ctx context.Context, venue core.Venue, symbol core.Symbol, venueOrderID string) (bool, error) {
	f.mu.Lock()
	f.cancelled = append(f.cancelled, venue)
	f.mu.Unlock()
	return true, nil
}

func opp() consolidated.Opportunity {
	return consolidated.Opportunity{
		Symbol:            sym(),
		BuyVenue:          core.VenueBinance,
		SellVenue:         core.VenueKraken,
		BuyPrice:          core.ToPrice(100),
		SellPrice:         core.ToPrice(100.3),
		Quantity:          core.ToQuantity(0.5),
		ExpectedProfitBps: 30,
	}
}

func TestExecutorBothLegsSucceed(t *testing.T) {
	fm := newFakeManager()
	cfg := DefaultConfig()
	e := NewExecutor(fm, cfg)

	ok := e.Execute(context.Background(), opp())
	require.True(t, ok)
	assert.Equal(t, int64(1), e.Stats().OpportunitiesExecuted)
	assert.Empty(t, fm.cancelled)
	assert.False(t, e.IsExecuting())
}

func TestExecutorOneLegFailsTriggersCompensatingCancel(t *testing.T) {
	fm := newFakeManager()
	fm.sendSuccess[core.VenueKraken] = false
	cfg := DefaultConfig()
	e := NewExecutor(fm, cfg)

	ok := e.Execute(context.Background(), opp())
	assert.False(t, ok)
	assert.Equal(t, int64(1), e.Stats().FailedExecutions)
	assert.Contains(t, fm.cancelled, core.VenueBinance)
}

func TestExecutorSkipsWhenAlreadyExecuting(t *testing.T) {
	fm := newFakeManager()
	fm.sendDelay = 50 * time.Millisecond
	cfg := DefaultConfig()
	e := NewExecutor(fm, cfg)

	done := make(chan bool, 1)
	go func() { done <- e.Execute(context.Background(), opp()) }()
	time.Sleep(5 * time.Millisecond)

	assert.True(t, e.IsExecuting())
	ok := e.Execute(context.Background(), opp())
	assert.False(t, ok)

	<-done
}

func TestExecutorTimeoutRecordsFailure(t *testing.T) {
	fm := newFakeManager()
	fm.sendDelay = 200 * time.Millisecond
	cfg := DefaultConfig()
	cfg.ExecutionTimeoutMS = 10
	e := NewExecutor(fm, cfg)

	ok := e.Execute(context.Background(), opp())
	assert.False(t, ok)
	assert.Equal(t, int64(1), e.Stats().FailedExecutions)
}
