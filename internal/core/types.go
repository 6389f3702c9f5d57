// Package core defines the fixed-point price/quantity model and the
// normalized types (symbols, venues, ticks, orders, trades) shared by
// every other package in the trading core.
package core

import (
	"fmt"
	"strings"
)

// Precision is the fixed-point scale applied to every Price and Quantity:
// both are integers counted in units of 10^-8.
const Precision = 100_000_000

// Price is a scaled integer; one unit equals 10^-8 of the quoted currency.
type Price int64

// Quantity is a scaled integer; one unit equals 10^-8 of the base asset.
type Quantity int64

// Timestamp is nanoseconds since an unspecified epoch. Only differences
// between timestamps are normative.
type Timestamp int64

// ToPrice converts a float64 to a scaled Price. Conversions only happen at
// I/O boundaries (venue wire formats, human-facing logs).
func ToPrice(v float64) Price { return Price(v * Precision) }

// FromPrice converts a scaled Price back to a float64.
func FromPrice(p Price) float64 { return float64(p) / Precision }

// ToQuantity converts a float64 to a scaled Quantity.
func ToQuantity(v float64) Quantity { return Quantity(v * Precision) }

// FromQuantity converts a scaled Quantity back to a float64.
func FromQuantity(q Quantity) float64 { return float64(q) / Precision }

// Venue is a closed enumeration of supported trading venues. Extending it
// requires a code change, not configuration, so NBBO tie-breaking by
// registration order stays deterministic.
type Venue int

const (
	VenueUnknown Venue = iota
	VenueBinance
	VenueKraken
	VenueOKX
	VenueBybit
)

func (v Venue) String() string {
	switch v {
	case VenueBinance:
		return "binance"
	case VenueKraken:
		return "kraken"
	case VenueOKX:
		return "okx"
	case VenueBybit:
		return "bybit"
	default:
		return "unknown"
	}
}

// quoteSuffixes is the closed set of quote-asset suffixes recognized when
// parsing a concatenated symbol, tried in this order.
var quoteSuffixes = []string{"USDT", "USDC", "USD", "BTC", "ETH"}

// Symbol is a (base, quote) asset pair. Its canonical string form is the
// concatenation of base and quote, e.g. "BTCUSDT".
type Symbol struct {
	Base  string
	Quote string
}

// String renders the symbol in canonical concatenated form.
func (s Symbol) String() string { return s.Base + s.Quote }

// ParseSymbol parses a concatenated symbol such as "BTCUSDT" by matching
// the longest quote suffix from the closed suffix set, tried in order.
func ParseSymbol(s string) (Symbol, error) {
	up := strings.ToUpper(s)
	for _, suffix := range quoteSuffixes {
		if strings.HasSuffix(up, suffix) && len(up) > len(suffix) {
			return Symbol{Base: up[:len(up)-len(suffix)], Quote: suffix}, nil
		}
	}
	return Symbol{}, fmt.Errorf("core: unrecognized quote suffix in symbol %q", s)
}

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType enumerates the order types understood by the core.
type OrderType int

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
	OrderTypeLimitMaker
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimitMaker:
		return "LIMIT_MAKER"
	default:
		return "UNKNOWN"
	}
}

// TimeInForce enumerates order time-in-force variants.
type TimeInForce int

const (
	GTC TimeInForce = iota
	IOC
	FOK
	PostOnly
)

func (t TimeInForce) String() string {
	switch t {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case PostOnly:
		return "POST_ONLY"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus enumerates the order lifecycle. Transitions are monotonic
// within {NEW -> PARTIALLY_FILLED -> FILLED} or terminate at
// {CANCELED, REJECTED, EXPIRED}.
type OrderStatus int

const (
	OrderStatusNew OrderStatus = iota
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusRejected
	OrderStatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNew:
		return "NEW"
	case OrderStatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCanceled:
		return "CANCELED"
	case OrderStatusRejected:
		return "REJECTED"
	case OrderStatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the status is a terminal lifecycle state.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired, OrderStatusFilled:
		return true
	default:
		return false
	}
}

// Tick is a normalized top-of-book snapshot from one venue. A zero on
// either side means that side is absent on the venue.
type Tick struct {
	Symbol       Symbol
	BestBid      Price
	BestBidQty   Quantity
	BestAsk      Price
	BestAskQty   Quantity
	LastPrice    Price
	LastQty      Quantity
	LocalTs      Timestamp
}

// Trade is a normalized execution report.
type Trade struct {
	Venue     Venue
	Symbol    Symbol
	Side      Side
	Price     Price
	Quantity  Quantity
	Timestamp Timestamp
	IsMaker   bool
}

// Order is the normalized order record. Invariant: FilledQty <= Quantity.
type Order struct {
	ClientID     string
	VenueOrderID string
	Venue        Venue
	Symbol       Symbol
	Side         Side
	OrderType    OrderType
	Price        Price
	Quantity     Quantity
	FilledQty    Quantity
	Status       OrderStatus
	TimeInForce  TimeInForce
	CreateTs     Timestamp
	UpdateTs     Timestamp
}

// Remaining returns the unfilled quantity.
func (o Order) Remaining() Quantity { return o.Quantity - o.FilledQty }

// IsActive reports whether the order can still receive fills.
func (o Order) IsActive() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusPartiallyFilled
}
