package multisplit

import (
	"math"

	"github.com/jinsol-dev/ladder/internal/core"
	"github.com/jinsol-dev/ladder/internal/ledger"
)

// LookbackDays is how many of the target stock's most recent trading
// days are scanned for the triggering market-on-close sell. Non-trading
// days are skipped, not counted.
const LookbackDays = 11

// QuarterInput carries the state the stop-loss controller needs. It is
// only consulted while the portfolio's quarter-mode flag is set.
type QuarterInput struct {
	Stock            string
	Trades           []core.Trade // full portfolio history, engine order
	HoldingQty       float64      // Q
	AvgPrice         float64      // live average cost
	OneTimeAmount    float64
	FeeRate          float64 // percent
	TargetReturnRate float64 // percent (A)
	SplitCount       int     // a
	// RecentDates holds the stock's most recent trading dates
	// (YYYY-MM-DD, newest first) from the price cache. When the cache is
	// unavailable this is empty and the controller falls back to the
	// safe default of instructing the trigger sale.
	RecentDates []string
}

// PlanQuarter computes the stop-loss sub-mode order legs.
//
// Case A (no MOC sell inside the lookback window yet): instruct a
// market-on-close sell of a quarter of the position; this sale is the
// trigger that starts the re-based cycle.
//
// Case B (a MOC sell exists in the window): re-base the per-split
// capital from the rounds remaining at the sale plus the profit
// realized since, and emit LOC buy / LOC sell / limit sell legs off the
// live average cost.
func PlanQuarter(in QuarterInput) []core.Leg {
	if in.HoldingQty <= 0 {
		return nil
	}

	saleDate, found := in.lastTriggerSale()
	if !found {
		qty := round2(in.HoldingQty * 0.25)
		if qty <= 0 {
			return nil
		}
		// Price 0: MOC executes at the closing auction, unpriced.
		return []core.Leg{{Label: core.LegMOCSell, Stock: in.Stock, Quantity: qty}}
	}

	if in.AvgPrice <= 0 || in.SplitCount <= 0 {
		return nil
	}

	newAmount := in.rebasedAmount(saleDate)
	feeMult := 1 + in.FeeRate/100

	locBuyPrice := math.Max(0.01, round2(in.AvgPrice*0.9)-0.01)
	locSellPrice := round2(in.AvgPrice * 0.9)
	limitSellPrice := round2(in.AvgPrice * (1 + in.TargetReturnRate/100))

	var legs []core.Leg
	add := func(label core.LegLabel, price, qty float64) {
		if price <= 0 || qty <= 0 {
			return
		}
		legs = append(legs, core.Leg{Label: label, Stock: in.Stock, Price: price, Quantity: qty})
	}

	add(core.LegLOCBuy2, locBuyPrice, math.Floor(newAmount/(locBuyPrice*feeMult)))
	add(core.LegLOCSell, locSellPrice, math.Floor(in.HoldingQty*0.25))
	add(core.LegLimitSell, limitSellPrice, math.Floor(in.HoldingQty*0.75))

	return legs
}

// lastTriggerSale returns the date of the most recent market-on-close
// sell of the target stock inside the lookback window. An empty window
// (cache unavailable) reports no sale.
func (in QuarterInput) lastTriggerSale() (string, bool) {
	if len(in.RecentDates) == 0 {
		return "", false
	}
	window := make(map[string]struct{}, LookbackDays)
	for i, d := range in.RecentDates {
		if i >= LookbackDays {
			break
		}
		window[d] = struct{}{}
	}

	var saleDate string
	for _, t := range in.Trades {
		if t.Stock != in.Stock || t.Type != core.TradeSell || !t.MarketOnClose {
			continue
		}
		if _, ok := window[t.Date]; !ok {
			continue
		}
		if t.Date > saleDate {
			saleDate = t.Date
		}
	}
	return saleDate, saleDate != ""
}

// rebasedAmount computes the new per-split capital:
//
//	max(0, (oneTimeAmount*remainingRounds + intermediateProfit) / 10)
//
// where remainingRounds counts from the rounds executed up to and
// including the sale date, and intermediateProfit folds every sell
// after the sale date against the average cost in effect at that
// moment, replayed trade by trade.
func (in QuarterInput) rebasedAmount(saleDate string) float64 {
	var atSale ledger.Running
	var replay ledger.Running
	var profit float64

	for _, t := range in.Trades {
		if t.Stock != in.Stock {
			continue
		}
		if t.Date <= saleDate {
			atSale.Apply(t)
		}
		avgBefore := replay.Apply(t)
		if t.Type == core.TradeSell && t.Date > saleDate {
			profit += (t.Price-avgBefore)*t.Quantity - t.Fee
		}
	}

	tAtSale := Rounds(atSale.TotalCost, in.OneTimeAmount)
	remaining := float64(in.SplitCount) - tAtSale

	return math.Max(0, (in.OneTimeAmount*remaining+profit)/10)
}
