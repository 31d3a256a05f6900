// Package performance derives portfolio-level return figures from the
// holdings ledger and live quotes.
package performance

import "github.com/jinsol-dev/ladder/internal/core"

// Summary collects the derived performance figures for one portfolio.
type Summary struct {
	// InvestedAmount is capital still at risk: the summed cost basis of
	// current holdings, fees included.
	InvestedAmount float64
	// TotalInvested is lifetime gross buy exposure (price*qty+fee over
	// every buy, never netted against sells).
	TotalInvested float64
	// RealizedProceeds is cash recovered by sells net of sell fees. It
	// is deliberately not profit-versus-cost; see package tests.
	RealizedProceeds float64
	// CurrentValuation is current holdings marked at live prices.
	// Holdings without a live quote are valued at zero.
	CurrentValuation float64
	// YieldRate is (valuation/invested - 1) * 100, 0 when nothing is
	// invested.
	YieldRate float64
}

// Calculate builds a Summary from holdings, the full trade history, and
// live quotes keyed by ticker.
func Calculate(holdings []core.Holding, trades []core.Trade, quotes map[string]core.Quote) Summary {
	var s Summary

	for _, h := range holdings {
		s.InvestedAmount += h.TotalCost
		if q, ok := quotes[h.Stock]; ok && q.Price > 0 {
			s.CurrentValuation += h.Quantity * q.Price
		}
	}

	for _, t := range trades {
		switch t.Type {
		case core.TradeBuy:
			s.TotalInvested += t.Price*t.Quantity + t.Fee
		case core.TradeSell:
			s.RealizedProceeds += t.Price*t.Quantity - t.Fee
		}
	}

	if s.InvestedAmount > 0 {
		s.YieldRate = (s.CurrentValuation/s.InvestedAmount - 1) * 100
	}

	return s
}
