package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

func testOrder(side core.Side, qty, price float64) core.Order {
	return core.Order{
		ClientID: "c1",
		Venue:    core.VenueBinance,
		Symbol:   core.Symbol{Base: "BTC", Quote: "USDT"},
		Side:     side,
		Quantity: core.ToQuantity(qty),
		Price:    core.ToPrice(price),
	}
}

func TestCheckOrderPassesWithinLimits(t *testing.T) {
	m := NewManager(DefaultLimits())
	result := m.CheckOrder(core.VenueBinance, testOrder(core.Buy, 0.01, 100), 0)
	assert.True(t, result.Passed)
}

func TestCheckOrderRejectsWhenKillSwitchActive(t *testing.T) {
	m := NewManager(DefaultLimits())
	m.ActivateKillSwitch("manual test")

	result := m.CheckOrder(core.VenueBinance, testOrder(core.Buy, 0.01, 100), 0)
	assert.False(t, result.Passed)
	assert.Equal(t, ViolationKillSwitchActive, result.Violation)
}

func TestCheckOrderRejectsOversizedOrder(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxOrderSize = core.ToQuantity(0.1)
	m := NewManager(limits)

	result := m.CheckOrder(core.VenueBinance, testOrder(core.Buy, 1.0, 100), 0)
	assert.False(t, result.Passed)
	assert.Equal(t, ViolationOrderSizeLimit, result.Violation)
}

func TestCheckOrderRejectsMaxLossPerTradeBreach(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxOrderSize = core.ToQuantity(10.0)
	limits.MaxOrderValue = 1e9
	limits.MaxLossPerTrade = 10.0
	limits.MaxPriceDeviationBps = 100 // 1% worst-case adverse move

	m := NewManager(limits)
	result := m.CheckOrder(core.VenueBinance, testOrder(core.Buy, 1.0, 5000), core.ToPrice(5000))
	assert.False(t, result.Passed)
	assert.Equal(t, ViolationMaxLossPerTradeLimit, result.Violation)
}

func TestCheckOrderRejectsPositionPerVenueBreach(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPositionPerVenue = core.ToQuantity(0.05)
	limits.MaxOrderSize = core.ToQuantity(1.0)
	m := NewManager(limits)

	result := m.CheckOrder(core.VenueBinance, testOrder(core.Buy, 0.1, 100), 0)
	assert.False(t, result.Passed)
	assert.Equal(t, ViolationPositionPerVenueLimit, result.Violation)
}

func TestCheckOrderRejectsPriceDeviation(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPriceDeviationBps = 50
	m := NewManager(limits)

	result := m.CheckOrder(core.VenueBinance, testOrder(core.Buy, 0.01, 110), core.ToPrice(100))
	assert.False(t, result.Passed)
	assert.Equal(t, ViolationPriceDeviation, result.Violation)
}

func TestRecordFillTracksWeightedAvgPriceAndRealizedPnL(t *testing.T) {
	m := NewManager(DefaultLimits())

	m.RecordFill(core.VenueBinance, "c1", core.Buy, core.ToQuantity(1.0), core.ToPrice(100))
	assert.Equal(t, core.ToQuantity(1.0), m.Position(core.VenueBinance))

	m.RecordFill(core.VenueBinance, "c1", core.Sell, core.ToQuantity(1.0), core.ToPrice(110))
	assert.Equal(t, core.Quantity(0), m.Position(core.VenueBinance))

	metrics := m.Metrics()
	assert.InDelta(t, 10.0, metrics.TotalRealizedPnL, 0.001)
}

func TestDailyLossLimitTriggersKillSwitch(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxDailyLoss = 5.0
	limits.MaxDrawdown = 1e9
	m := NewManager(limits)

	m.RecordFill(core.VenueBinance, "c1", core.Buy, core.ToQuantity(1.0), core.ToPrice(100))
	m.RecordFill(core.VenueBinance, "c1", core.Sell, core.ToQuantity(1.0), core.ToPrice(90))

	require.True(t, m.IsKillSwitchActive())
	assert.Equal(t, StatusKillSwitch, m.Metrics().Status)
}

func TestResetDailyMetricsClearsRealizedPnLAndDrawdown(t *testing.T) {
	m := NewManager(DefaultLimits())
	m.RecordFill(core.VenueBinance, "c1", core.Buy, core.ToQuantity(1.0), core.ToPrice(100))
	m.RecordFill(core.VenueBinance, "c1", core.Sell, core.ToQuantity(1.0), core.ToPrice(110))

	m.ResetDailyMetrics()
	metrics := m.Metrics()
	assert.Equal(t, 0.0, metrics.DailyPnL)
	assert.Equal(t, 0.0, metrics.Drawdown)
}

func TestKillSwitchCallbackFires(t *testing.T) {
	m := NewManager(DefaultLimits())
	var gotReason string
	m.SetKillSwitchCallback(func(reason string) { gotReason = reason })

	m.ActivateKillSwitch("boom")
	assert.Equal(t, "boom", gotReason)

	// Re-activating while already active must not re-fire the callback.
	gotReason = ""
	m.ActivateKillSwitch("again")
	assert.Equal(t, "", gotReason)
}

func TestOpenOrdersTrackingAndFillRemoval(t *testing.T) {
	m := NewManager(DefaultLimits())
	order := testOrder(core.Buy, 0.01, 100)
	m.OnOrderSent(order)

	limits := DefaultLimits()
	limits.MaxOpenOrders = 1
	m2 := NewManager(limits)
	m2.OnOrderSent(order)

	second := testOrder(core.Buy, 0.01, 100)
	second.ClientID = "c2"
	result := m2.CheckOrder(core.VenueBinance, second, 0)
	assert.False(t, result.Passed)
	assert.Equal(t, ViolationOpenOrdersLimit, result.Violation)

	// A complete fill removes the order from tracking and frees the slot.
	m2.RecordFill(core.VenueBinance, order.ClientID, core.Buy, order.Quantity, order.Price)
	result = m2.CheckOrder(core.VenueBinance, second, 0)
	assert.True(t, result.Passed)

	m.OnOrderCanceled(order.ClientID)
}
