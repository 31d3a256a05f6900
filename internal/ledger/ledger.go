// Package ledger derives per-ticker positions and weighted average cost
// from an ordered trade history.
package ledger

import (
	"sort"

	"github.com/jinsol-dev/ladder/internal/core"
)

// Compute folds a trade list into current holdings.
//
// Buys add price*qty+fee to the cost basis. Sells reduce the basis
// proportionally at the average cost in effect before the sell; sell
// fees never touch the remaining basis (they reduce realized proceeds
// instead). A sell that empties the position zeroes the basis exactly.
//
// A sell exceeding the current quantity is not rejected here: the
// negative quantity propagates so a data-entry bug stays visible to the
// caller instead of being silently corrected. Only holdings with
// positive quantity surface in the result, sorted by ticker.
func Compute(trades []core.Trade) []core.Holding {
	books := make(map[string]*Running)
	for _, t := range trades {
		book, ok := books[t.Stock]
		if !ok {
			book = &Running{}
			books[t.Stock] = book
		}
		book.Apply(t)
	}

	holdings := make([]core.Holding, 0, len(books))
	for stock, book := range books {
		if book.Quantity <= 0 {
			continue
		}
		holdings = append(holdings, core.Holding{
			Stock:     stock,
			Quantity:  book.Quantity,
			TotalCost: book.TotalCost,
			AvgPrice:  book.AvgPrice(),
		})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Stock < holdings[j].Stock })
	return holdings
}

// Find returns the holding for a ticker, or false when the ticker has
// no surviving position.
func Find(holdings []core.Holding, stock string) (core.Holding, bool) {
	for _, h := range holdings {
		if h.Stock == stock {
			return h, true
		}
	}
	return core.Holding{}, false
}

// Running is an incremental single-ticker ledger. It exists for
// replays that need the average cost in effect at each point of the
// trade sequence, such as the stop-loss re-basing arithmetic.
type Running struct {
	Quantity  float64
	TotalCost float64
}

// AvgPrice returns the current weighted average cost, 0 for an empty
// or inverted position.
func (r *Running) AvgPrice() float64 {
	if r.Quantity <= 0 {
		return 0
	}
	return r.TotalCost / r.Quantity
}

// Apply folds one trade into the running position and returns the
// average cost that was in effect before the trade.
func (r *Running) Apply(t core.Trade) float64 {
	avgBefore := r.AvgPrice()

	switch t.Type {
	case core.TradeBuy:
		r.Quantity += t.Quantity
		r.TotalCost += t.Price*t.Quantity + t.Fee
	case core.TradeSell:
		r.Quantity -= t.Quantity
		if r.Quantity == 0 {
			r.TotalCost = 0
		} else {
			// Proportional basis reduction at the pre-sell average.
			r.TotalCost = r.Quantity * avgBefore
		}
	}

	return avgBefore
}
