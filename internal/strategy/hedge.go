package strategy

import (
	"context"
	"fmt"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/consolidated"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange"
)

// aggressiveSlippageBps is how far the hedge order crosses the spread to
// make a fill virtually certain, matching the 0.1% the original hedger pays.
const aggressiveSlippageBps = 10.0

// orderSender is the subset of *exchange.Manager a Hedger needs to send
// a compensating order.
type orderSender interface {
	SendOrder(ctx context.Context, venue core.Venue, req exchange.OrderRequest) (exchange.OrderResponse, error)
}

// HedgeStats tracks hedging activity for observability.
type HedgeStats struct {
	HedgesSent int64
	HedgesFailed int64
}

// Hedger immediately offsets a market-making fill on a different venue,
// crossing the spread aggressively to make the hedge fill certain.
type Hedger struct {
	preferredVenue core.Venue
	hasPreferred   bool
	stats          HedgeStats
}

// NewHedger builds a Hedger. preferredVenue, if set via SetPreferredVenue,
// is tried first before falling back to venue ranking by price.
func NewHedger() *Hedger {
	return &Hedger{}
}

// SetPreferredVenue pins the hedge venue, matching the original's static
// hedge_exchange configuration option.
func (h *Hedger) SetPreferredVenue(venue core.Venue) {
	h.preferredVenue = venue
	h.hasPreferred = true
}

// HedgeFill sends an IOC order on another venue to offset a fill received
// on fillVenue, picking the best-priced venue other than fillVenue when no
// preferred venue is pinned.
func (h *Hedger) HedgeFill(ctx context.Context, sender orderSender, book *consolidated.Book, symbol core.Symbol, fillVenue core.Venue, fillSide core.Side, fillQty core.Quantity) (exchange.OrderResponse, error) {
	hedgeVenue, ok := h.chooseHedgeVenue(book, fillVenue, fillSide)
	if !ok {
		h.stats.HedgesFailed++
		return exchange.OrderResponse{}, fmt.Errorf("no hedge venue available for %s", symbol)
	}

	venueBook, ok := book.VenueBook(hedgeVenue)
	if !ok {
		h.stats.HedgesFailed++
		return exchange.OrderResponse{}, fmt.Errorf("no book for hedge venue %s", hedgeVenue)
	}

	hedgeSide := core.Sell
	if fillSide == core.Sell {
		hedgeSide = core.Buy
	}

	var hedgePrice core.Price
	if hedgeSide == core.Buy {
		hedgePrice = core.Price(float64(venueBook.BestAsk) * (1.0 + aggressiveSlippageBps/10000.0))
	} else {
		hedgePrice = core.Price(float64(venueBook.BestBid) * (1.0 - aggressiveSlippageBps/10000.0))
	}

	req := exchange.OrderRequest{
		Symbol:      symbol,
		Side:        hedgeSide,
		OrderType:   core.OrderTypeLimit,
		Price:       hedgePrice,
		Quantity:    fillQty,
		TimeInForce: core.IOC,
	}

	resp, err := sender.SendOrder(ctx, hedgeVenue, req)
	if err != nil || !resp.Success {
		h.stats.HedgesFailed++
		return resp, err
	}
	h.stats.HedgesSent++
	return resp, nil
}

// chooseHedgeVenue picks the preferred venue if set and distinct from
// fillVenue, otherwise the best-priced other venue for the hedge side.
func (h *Hedger) chooseHedgeVenue(book *consolidated.Book, fillVenue core.Venue, fillSide core.Side) (core.Venue, bool) {
	if h.hasPreferred && h.preferredVenue != fillVenue {
		return h.preferredVenue, true
	}

	ranked := book.VenuesByPrice(fillSide == core.Sell)
	for _, vp := range ranked {
		if vp.Venue != fillVenue {
			return vp.Venue, true
		}
	}
	return core.VenueUnknown, false
}

// Stats returns a snapshot of hedging activity.
func (h *Hedger) Stats() HedgeStats { return h.stats }
