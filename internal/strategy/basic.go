package strategy

import (
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// BasicMarketMaker quotes a symmetric spread around the consolidated
// mid-price, widened for volatility and skewed for inventory, on the
// venue(s) selected by selectVenues.
type BasicMarketMaker struct {
	base
}

// NewBasicMarketMaker builds a BasicMarketMaker with params.
func NewBasicMarketMaker(params Params) *BasicMarketMaker {
	return &BasicMarketMaker{base: base{params: params}}
}

func (m *BasicMarketMaker) ComputeQuotes(book *consolidated.Book, position core.Quantity, signal Signal, venues venueSelector) []QuoteDecision {
	if !m.enabled {
		return []QuoteDecision{{Reason: "strategy disabled"}}
	}

	mid, ok := book.MidPrice()
	if !ok {
		return []QuoteDecision{{Reason: "cannot determine fair value"}}
	}

	selected := selectVenues(book, venues, m.params)
	if len(selected) == 0 {
		return []QuoteDecision{{Reason: "no venue available"}}
	}

	spreadBps := m.calculateSpread(signal)
	halfSpread := core.Price(float64(mid) * spreadBps / 20000.0)

	skew := m.calculateInventorySkew(position)
	skewAdj := core.Price(float64(mid) * skew * m.params.InventorySkew / 10000.0)

	bidPrice := mid - halfSpread - skewAdj
	askPrice := mid + halfSpread - skewAdj

	if bidPrice >= askPrice {
		return []QuoteDecision{{Reason: "prices would cross"}}
	}

	bidSize := m.calculateOrderSize(core.Buy, position)
	askSize := m.calculateOrderSize(core.Sell, position)

	if bidSize == 0 && askSize == 0 {
		return []QuoteDecision{{Reason: "order sizes are zero"}}
	}

	now := core.NowNS()
	if int64(now-m.lastQuoteTime) < m.params.MinQuoteLifeUS*1000 {
		bidDiff := abs(bidPrice - m.activeBidPrice)
		askDiff := abs(askPrice - m.activeAskPrice)
		threshold := mid / 10000 // 1bps
		if bidDiff < threshold && askDiff < threshold {
			return []QuoteDecision{{Reason: "prices unchanged"}}
		}
	}

	m.lastQuoteTime = now
	m.activeBidPrice = bidPrice
	m.activeAskPrice = askPrice

	decisions := make([]QuoteDecision, 0, len(selected))
	for _, venue := range selected {
		m.quotesSent++
		decisions = append(decisions, QuoteDecision{
			ShouldQuote: true,
			Venue:       venue,
			BidPrice:    bidPrice,
			AskPrice:    askPrice,
			BidSize:     bidSize,
			AskSize:     askSize,
		})
	}
	return decisions
}

func (m *BasicMarketMaker) calculateSpread(signal Signal) float64 {
	spread := m.params.TargetSpreadBps
	if signal.Volatility > 0 {
		spread *= 1.0 + signal.Volatility
	}
	if spread < m.params.MinSpreadBps {
		return m.params.MinSpreadBps
	}
	if spread > m.params.MaxSpreadBps {
		return m.params.MaxSpreadBps
	}
	return spread
}

func (m *BasicMarketMaker) calculateInventorySkew(position core.Quantity) float64 {
	if m.params.MaxPosition == 0 {
		return 0
	}
	return float64(position) / float64(m.params.MaxPosition)
}

func (m *BasicMarketMaker) calculateOrderSize(side core.Side, position core.Quantity) core.Quantity {
	size := m.params.DefaultOrderSize

	if m.params.MaxPosition > 0 {
		if side == core.Buy && position > 0 {
			ratio := 1.0 - float64(position)/float64(m.params.MaxPosition)
			if ratio < 0 {
				ratio = 0
			}
			size = core.Quantity(float64(size) * ratio)
		} else if side == core.Sell && position < 0 {
			ratio := 1.0 + float64(position)/float64(m.params.MaxPosition)
			if ratio < 0 {
				ratio = 0
			}
			size = core.Quantity(float64(size) * ratio)
		}
	}

	if size < m.params.MinOrderSize {
		size = m.params.MinOrderSize
	}
	if size > m.params.MaxOrderSize {
		size = m.params.MaxOrderSize
	}
	return size
}

func abs(p core.Price) core.Price {
	if p < 0 {
		return -p
	}
	return p
}
