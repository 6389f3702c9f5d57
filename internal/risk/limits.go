package risk

import "github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"

// Limits bounds order and position risk across all venues.
type Limits struct {
	MaxPositionPerVenue  core.Quantity
	MaxTotalPosition     core.Quantity
	MaxOrderSize         core.Quantity
	MaxOrderValue        float64
	MaxOrdersPerSecond   int
	MaxOpenOrders        int
	MaxLossPerTrade      float64
	MaxDailyLoss         float64
	MaxDrawdown          float64
	MaxPriceDeviationBps float64
	KillSwitchEnabled    bool
}

// DefaultLimits mirrors the original system's single-venue defaults,
// generalized to the per-venue/total-position split this system needs.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionPerVenue:  core.ToQuantity(1.0),
		MaxTotalPosition:     core.ToQuantity(3.0),
		MaxOrderSize:         core.ToQuantity(0.5),
		MaxOrderValue:        10000.0,
		MaxOrdersPerSecond:   10,
		MaxOpenOrders:        100,
		MaxLossPerTrade:      100.0,
		MaxDailyLoss:         1000.0,
		MaxDrawdown:          2000.0,
		MaxPriceDeviationBps: 100.0,
		KillSwitchEnabled:    true,
	}
}

// ConservativeLimits tightens every limit, matching the original
// profile used for initial/live-money rollout.
func ConservativeLimits() Limits {
	return Limits{
		MaxPositionPerVenue:  core.ToQuantity(0.5),
		MaxTotalPosition:     core.ToQuantity(1.0),
		MaxOrderSize:         core.ToQuantity(0.1),
		MaxOrderValue:        10000.0,
		MaxOrdersPerSecond:   10,
		MaxOpenOrders:        100,
		MaxLossPerTrade:      50.0,
		MaxDailyLoss:         500.0,
		MaxDrawdown:          2000.0,
		MaxPriceDeviationBps: 100.0,
		KillSwitchEnabled:    true,
	}
}

// Violation identifies why a pre-trade check rejected an order.
type Violation int

const (
	ViolationNone Violation = iota
	ViolationKillSwitchActive
	ViolationOrderSizeLimit
	ViolationOrderValueLimit
	ViolationMaxLossPerTradeLimit
	ViolationPositionPerVenueLimit
	ViolationTotalPositionLimit
	ViolationPriceDeviation
	ViolationRateLimit
	ViolationOpenOrdersLimit
	ViolationDailyLossLimit
)

func (v Violation) String() string {
	switch v {
	case ViolationNone:
		return "none"
	case ViolationKillSwitchActive:
		return "kill_switch_active"
	case ViolationOrderSizeLimit:
		return "order_size_limit"
	case ViolationOrderValueLimit:
		return "order_value_limit"
	case ViolationMaxLossPerTradeLimit:
		return "max_loss_per_trade_limit"
	case ViolationPositionPerVenueLimit:
		return "position_per_venue_limit"
	case ViolationTotalPositionLimit:
		return "total_position_limit"
	case ViolationPriceDeviation:
		return "price_deviation"
	case ViolationRateLimit:
		return "rate_limit"
	case ViolationOpenOrdersLimit:
		return "open_orders_limit"
	case ViolationDailyLossLimit:
		return "daily_loss_limit"
	default:
		return "unknown"
	}
}

// CheckResult is the outcome of a pre-trade risk check.
type CheckResult struct {
	Passed    bool
	Violation Violation
	Message   string
}

func passResult() CheckResult { return CheckResult{Passed: true} }

func failResult(v Violation, msg string) CheckResult {
	return CheckResult{Passed: false, Violation: v, Message: msg}
}

// Status summarizes the manager's current risk posture.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusBreach
	StatusKillSwitch
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusBreach:
		return "breach"
	case StatusKillSwitch:
		return "kill_switch"
	default:
		return "unknown"
	}
}
