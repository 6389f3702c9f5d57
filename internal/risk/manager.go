package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// VenuePosition tracks inventory and PnL for one venue.
type VenuePosition struct {
	Venue         core.Venue
	Quantity      core.Quantity
	AvgEntryPrice core.Price
	RealizedPnL   float64
	UnrealizedPnL float64
}

// Metrics is a snapshot of aggregate risk state across all venues.
type Metrics struct {
	TotalPosition       core.Quantity
	TotalRealizedPnL    float64
	TotalUnrealizedPnL  float64
	DailyPnL            float64
	PeakPnL             float64
	Drawdown            float64
	OrdersThisSecond    int
	OrdersChecked       int64
	OrdersRejected      int64
	Status              Status
}

// Manager enforces pre-trade risk limits and tracks positions/PnL across
// every venue, latching a kill switch when losses or drawdown breach
// configured thresholds.
type Manager struct {
	mu sync.Mutex

	limits Limits

	positions map[core.Venue]*VenuePosition
	openOrders map[string]core.Order

	metrics Metrics

	currentSecond int64

	killSwitchActive   bool
	killSwitchCallback func(reason string)
}

// NewManager builds a Manager with the given limits.
func NewManager(limits Limits) *Manager {
	return &Manager{
		limits:     limits,
		positions:  make(map[core.Venue]*VenuePosition),
		openOrders: make(map[string]core.Order),
	}
}

// SetKillSwitchCallback installs a hook invoked when the kill switch
// latches, automatically or manually.
func (m *Manager) SetKillSwitchCallback(cb func(reason string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killSwitchCallback = cb
}

// CheckOrder runs the ordered pre-trade rule chain: kill switch, order
// size, order value, max loss per trade, per-venue position, total
// position, price deviation, rate limit, open orders. referencePrice of
// zero skips the price-deviation and max-loss-per-trade checks, both of
// which need a reference to measure adverse movement against.
func (m *Manager) CheckOrder(venue core.Venue, order core.Order, referencePrice core.Price) CheckResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.OrdersChecked++

	if m.killSwitchActive {
		m.metrics.OrdersRejected++
		return failResult(ViolationKillSwitchActive, "kill switch is active")
	}

	if r := m.checkOrderSize(order); !r.Passed {
		m.metrics.OrdersRejected++
		return r
	}

	if r := m.checkOrderValue(order); !r.Passed {
		m.metrics.OrdersRejected++
		return r
	}

	if referencePrice > 0 {
		if r := m.checkMaxLossPerTrade(order, referencePrice); !r.Passed {
			m.metrics.OrdersRejected++
			return r
		}
	}

	if r := m.checkPositionPerVenue(venue, order); !r.Passed {
		m.metrics.OrdersRejected++
		return r
	}

	if r := m.checkTotalPosition(venue, order); !r.Passed {
		m.metrics.OrdersRejected++
		return r
	}

	if referencePrice > 0 {
		if r := m.checkPriceDeviation(order, referencePrice); !r.Passed {
			m.metrics.OrdersRejected++
			return r
		}
	}

	if r := m.checkRateLimit(); !r.Passed {
		m.metrics.OrdersRejected++
		return r
	}

	if r := m.checkOpenOrders(); !r.Passed {
		m.metrics.OrdersRejected++
		return r
	}

	return passResult()
}

func (m *Manager) checkOrderSize(order core.Order) CheckResult {
	if m.limits.MaxOrderSize > 0 && order.Quantity > m.limits.MaxOrderSize {
		return failResult(ViolationOrderSizeLimit, "order size exceeds limit")
	}
	return passResult()
}

func (m *Manager) checkOrderValue(order core.Order) CheckResult {
	if m.limits.MaxOrderValue <= 0 {
		return passResult()
	}
	value := core.FromQuantity(order.Quantity) * core.FromPrice(order.Price)
	if value > m.limits.MaxOrderValue {
		return failResult(ViolationOrderValueLimit, "order value exceeds limit")
	}
	return passResult()
}

// checkMaxLossPerTrade bounds the worst-case loss this order could
// realize if price moves against it by up to the configured price
// deviation tolerance before the position is closed out.
func (m *Manager) checkMaxLossPerTrade(order core.Order, reference core.Price) CheckResult {
	if m.limits.MaxLossPerTrade <= 0 {
		return passResult()
	}
	notional := core.FromQuantity(order.Quantity) * core.FromPrice(reference)
	worstCaseLoss := notional * (m.limits.MaxPriceDeviationBps / 10000.0)
	if worstCaseLoss > m.limits.MaxLossPerTrade {
		return failResult(ViolationMaxLossPerTradeLimit, "worst-case loss for this trade exceeds limit")
	}
	return passResult()
}

func (m *Manager) checkPositionPerVenue(venue core.Venue, order core.Order) CheckResult {
	if m.limits.MaxPositionPerVenue == 0 {
		return passResult()
	}
	current := m.positionLocked(venue)
	potential := current + signedQty(order.Side, order.Quantity)
	if abs64(potential) > m.limits.MaxPositionPerVenue {
		return failResult(ViolationPositionPerVenueLimit, "would exceed per-venue position limit")
	}
	return passResult()
}

func (m *Manager) checkTotalPosition(venue core.Venue, order core.Order) CheckResult {
	if m.limits.MaxTotalPosition == 0 {
		return passResult()
	}
	totalAfter := m.totalPositionLocked() + signedQty(order.Side, order.Quantity)
	if abs64(totalAfter) > m.limits.MaxTotalPosition {
		return failResult(ViolationTotalPositionLimit, "would exceed total position limit")
	}
	return passResult()
}

func (m *Manager) checkPriceDeviation(order core.Order, reference core.Price) CheckResult {
	if m.limits.MaxPriceDeviationBps == 0 || reference == 0 {
		return passResult()
	}
	deviationBps := 10000.0 * float64(abs64price(order.Price-reference)) / float64(reference)
	if deviationBps > m.limits.MaxPriceDeviationBps {
		return failResult(ViolationPriceDeviation, "price deviation too high")
	}
	return passResult()
}

func (m *Manager) checkRateLimit() CheckResult {
	if m.limits.MaxOrdersPerSecond == 0 {
		return passResult()
	}
	now := time.Now().Unix()
	if now != m.currentSecond {
		m.currentSecond = now
		m.metrics.OrdersThisSecond = 0
	}
	m.metrics.OrdersThisSecond++
	if m.metrics.OrdersThisSecond > m.limits.MaxOrdersPerSecond {
		return failResult(ViolationRateLimit, "rate limit exceeded")
	}
	return passResult()
}

func (m *Manager) checkOpenOrders() CheckResult {
	if m.limits.MaxOpenOrders == 0 {
		return passResult()
	}
	if len(m.openOrders) >= m.limits.MaxOpenOrders {
		return failResult(ViolationOpenOrdersLimit, "open orders limit reached")
	}
	return passResult()
}

// OnOrderSent tracks a live order so it counts against the open-orders
// limit until it fills or is canceled.
func (m *Manager) OnOrderSent(order core.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openOrders[order.ClientID] = order
}

// OnOrderCanceled removes a canceled order from open-order tracking.
func (m *Manager) OnOrderCanceled(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.openOrders, clientID)
}

// RecordFill updates the venue's position, weighted-average entry
// price, and realized PnL, then refreshes aggregate metrics.
func (m *Manager) RecordFill(venue core.Venue, clientID string, side core.Side, filledQty core.Quantity, fillPrice core.Price) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[venue]
	if !ok {
		pos = &VenuePosition{Venue: venue}
		m.positions[venue] = pos
	}

	if side == core.Buy {
		if pos.Quantity >= 0 {
			totalValue := float64(pos.Quantity)*float64(pos.AvgEntryPrice) + float64(filledQty)*float64(fillPrice)
			pos.Quantity += filledQty
			if pos.Quantity > 0 {
				pos.AvgEntryPrice = core.Price(totalValue / float64(pos.Quantity))
			}
		} else {
			realized := core.FromPrice(pos.AvgEntryPrice-fillPrice) * core.FromQuantity(filledQty)
			pos.RealizedPnL += realized
			pos.Quantity += filledQty
			if pos.Quantity > 0 {
				pos.AvgEntryPrice = fillPrice
			}
		}
	} else {
		if pos.Quantity <= 0 {
			totalValue := float64(-pos.Quantity)*float64(pos.AvgEntryPrice) + float64(filledQty)*float64(fillPrice)
			pos.Quantity -= filledQty
			if pos.Quantity < 0 {
				pos.AvgEntryPrice = core.Price(totalValue / float64(-pos.Quantity))
			}
		} else {
			realized := core.FromPrice(fillPrice-pos.AvgEntryPrice) * core.FromQuantity(filledQty)
			pos.RealizedPnL += realized
			pos.Quantity -= filledQty
			if pos.Quantity < 0 {
				pos.AvgEntryPrice = fillPrice
			}
		}
	}

	if tracked, ok := m.openOrders[clientID]; ok {
		tracked.FilledQty += filledQty
		if tracked.FilledQty >= tracked.Quantity {
			delete(m.openOrders, clientID)
		} else {
			m.openOrders[clientID] = tracked
		}
	}

	m.updateMetricsLocked()
}

// UpdateMarkPrice refreshes unrealized PnL for a venue against the
// current mark price, then refreshes aggregate metrics.
func (m *Manager) UpdateMarkPrice(venue core.Venue, markPrice core.Price) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[venue]
	if !ok {
		return
	}
	switch {
	case pos.Quantity > 0:
		pos.UnrealizedPnL = core.FromPrice(markPrice-pos.AvgEntryPrice) * core.FromQuantity(pos.Quantity)
	case pos.Quantity < 0:
		pos.UnrealizedPnL = core.FromPrice(pos.AvgEntryPrice-markPrice) * core.FromQuantity(-pos.Quantity)
	default:
		pos.UnrealizedPnL = 0
	}
	m.updateMetricsLocked()
}

func (m *Manager) updateMetricsLocked() {
	var totalQty core.Quantity
	var realized, unrealized float64
	for _, pos := range m.positions {
		totalQty += pos.Quantity
		realized += pos.RealizedPnL
		unrealized += pos.UnrealizedPnL
	}
	m.metrics.TotalPosition = totalQty
	m.metrics.TotalRealizedPnL = realized
	m.metrics.TotalUnrealizedPnL = unrealized

	totalPnL := realized + unrealized
	m.metrics.DailyPnL = totalPnL

	if totalPnL > m.metrics.PeakPnL {
		m.metrics.PeakPnL = totalPnL
	}
	m.metrics.Drawdown = m.metrics.PeakPnL - totalPnL

	m.checkRiskStatusLocked()
}

func (m *Manager) checkRiskStatusLocked() {
	if m.limits.MaxDailyLoss > 0 && m.metrics.DailyPnL < -m.limits.MaxDailyLoss {
		m.metrics.Status = StatusKillSwitch
		m.latchKillSwitchLocked("daily loss limit breached")
		return
	}
	if m.limits.MaxDrawdown > 0 && m.metrics.Drawdown > m.limits.MaxDrawdown {
		m.metrics.Status = StatusKillSwitch
		m.latchKillSwitchLocked("drawdown limit breached")
		return
	}

	switch {
	case m.limits.MaxDailyLoss > 0 && m.metrics.DailyPnL < -m.limits.MaxDailyLoss*0.8:
		m.metrics.Status = StatusWarning
	case m.limits.MaxDrawdown > 0 && m.metrics.Drawdown > m.limits.MaxDrawdown*0.8:
		m.metrics.Status = StatusWarning
	default:
		m.metrics.Status = StatusOK
	}
}

func (m *Manager) latchKillSwitchLocked(reason string) {
	if m.killSwitchActive {
		return
	}
	m.killSwitchActive = true
	log.Error().Str("reason", reason).Msg("kill switch activated")
	if m.killSwitchCallback != nil {
		m.killSwitchCallback(reason)
	}
}

// ActivateKillSwitch manually latches the kill switch.
func (m *Manager) ActivateKillSwitch(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.Status = StatusKillSwitch
	m.latchKillSwitchLocked(reason)
}

// DeactivateKillSwitch clears the kill switch. Use with caution.
func (m *Manager) DeactivateKillSwitch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killSwitchActive = false
	m.metrics.Status = StatusOK
	log.Warn().Msg("kill switch reset")
}

// IsKillSwitchActive reports whether trading is currently halted.
func (m *Manager) IsKillSwitchActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.killSwitchActive
}

// Position returns the current position on venue.
func (m *Manager) Position(venue core.Venue) core.Quantity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positionLocked(venue)
}

func (m *Manager) positionLocked(venue core.Venue) core.Quantity {
	if pos, ok := m.positions[venue]; ok {
		return pos.Quantity
	}
	return 0
}

// TotalPosition returns the aggregate position across all venues.
func (m *Manager) TotalPosition() core.Quantity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalPositionLocked()
}

func (m *Manager) totalPositionLocked() core.Quantity {
	var total core.Quantity
	for _, pos := range m.positions {
		total += pos.Quantity
	}
	return total
}

// Metrics returns a snapshot of the current aggregate risk state.
func (m *Manager) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// ResetDailyMetrics clears daily PnL/drawdown tracking and realized PnL
// per venue. Call at the start of each trading day.
func (m *Manager) ResetDailyMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.DailyPnL = 0
	m.metrics.PeakPnL = 0
	m.metrics.Drawdown = 0
	m.metrics.OrdersThisSecond = 0

	for _, pos := range m.positions {
		pos.RealizedPnL = 0
	}
	log.Info().Msg("daily risk metrics reset")
}

func signedQty(side core.Side, qty core.Quantity) core.Quantity {
	if side == core.Buy {
		return qty
	}
	return -qty
}

func abs64(q core.Quantity) core.Quantity {
	if q < 0 {
		return -q
	}
	return q
}

func abs64price(p core.Price) core.Price {
	if p < 0 {
		return -p
	}
	return p
}
