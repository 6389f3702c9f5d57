package strategy

import (
	"math"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
)

// AvellanedaStoikovMM quotes around a reservation price that skews for
// inventory and shrinks time-to-horizon, using the closed-form
// Avellaneda-Stoikov optimal spread.
type AvellanedaStoikovMM struct {
	base

	gamma     float64 // risk aversion
	sigma     float64 // volatility
	k         float64 // order arrival intensity
	tHorizon  float64 // time horizon, seconds
	startTime core.Timestamp
}

// NewAvellanedaStoikovMM builds the strategy with its risk/vol/intensity
// parameters, matching the original system's defaults when zero.
func NewAvellanedaStoikovMM(params Params, gamma, sigma, k, tHorizon float64) *AvellanedaStoikovMM {
	if gamma == 0 {
		gamma = 0.1
	}
	if sigma == 0 {
		sigma = 0.01
	}
	if k == 0 {
		k = 1.5
	}
	if tHorizon == 0 {
		tHorizon = 1.0
	}
	return &AvellanedaStoikovMM{
		base:     base{params: params},
		gamma:    gamma,
		sigma:    sigma,
		k:        k,
		tHorizon: tHorizon,
	}
}

func (m *AvellanedaStoikovMM) ComputeQuotes(book *consolidated.Book, position core.Quantity, signal Signal, venues venueSelector) []QuoteDecision {
	if !m.enabled {
		return []QuoteDecision{{Reason: "disabled or invalid book"}}
	}

	mid, ok := book.MidPrice()
	if !ok {
		return []QuoteDecision{{Reason: "no mid price"}}
	}

	selected := selectVenues(book, venues, m.params)
	if len(selected) == 0 {
		return []QuoteDecision{{Reason: "no venue available"}}
	}

	if m.startTime == 0 {
		m.startTime = signal.Timestamp
	}

	elapsedS := float64(signal.Timestamp-m.startTime) / 1e9
	tElapsed := elapsedS / m.tHorizon
	tRemaining := 1.0 - math.Mod(tElapsed, 1.0)
	if tRemaining < 0.01 {
		tRemaining = 0.01
	}

	reservation := m.reservationPrice(mid, position, tRemaining)

	spreadBps := m.optimalSpread(tRemaining)
	if spreadBps < m.params.MinSpreadBps {
		spreadBps = m.params.MinSpreadBps
	}
	if spreadBps > m.params.MaxSpreadBps {
		spreadBps = m.params.MaxSpreadBps
	}
	halfSpread := core.Price(float64(mid) * spreadBps / 20000.0)

	bidPrice := reservation - halfSpread
	askPrice := reservation + halfSpread

	if bidPrice >= askPrice {
		return []QuoteDecision{{Reason: "prices would cross"}}
	}

	bidSize := m.params.DefaultOrderSize
	askSize := m.params.DefaultOrderSize

	if bidSize == 0 && askSize == 0 {
		return []QuoteDecision{{Reason: "order sizes are zero"}}
	}

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

// reservationPrice implements r(s,q,t) = s - q*gamma*sigma^2*(T-t). position
// is converted out of its fixed-point scale before entering the formula, and
// the adjustment is a price delta, not a fraction of mid.
func (m *AvellanedaStoikovMM) reservationPrice(mid core.Price, position core.Quantity, tRemaining float64) core.Price {
	adjustment := core.FromQuantity(position) * m.gamma * m.sigma * m.sigma * tRemaining
	return mid - core.ToPrice(adjustment)
}

// optimalSpread implements delta = gamma*sigma^2*(T-t) + (2/gamma)*ln(1+gamma/k),
// converted from a fraction to basis points.
func (m *AvellanedaStoikovMM) optimalSpread(tRemaining float64) float64 {
	term1 := m.gamma * m.sigma * m.sigma * tRemaining
	term2 := (2.0 / m.gamma) * math.Log(1.0+m.gamma/m.k)
	return (term1 + term2) * 10000.0
}
