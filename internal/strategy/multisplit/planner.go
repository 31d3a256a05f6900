package multisplit

import (
	"math"

	"github.com/jinsol-dev/ladder/internal/core"
)

// PlanInput carries everything the planner needs for the ramp-up and
// steady-state phases.
type PlanInput struct {
	Phase            core.Phase
	Stock            string
	BasePrice        float64 // average cost if held, else current price
	OneTimeAmount    float64
	FeeRate          float64 // percent
	HoldingQty       float64 // Q
	TargetReturnRate float64 // percent (A)
	T                float64
	SplitCount       int // a
}

// Plan computes the conditional order legs for the non-stop-loss
// phases. Legs with a non-positive price or quantity are omitted, never
// emitted as zero-value legs. Returns nil when there is no signal.
func Plan(in PlanInput) []core.Leg {
	if in.BasePrice <= 0 || in.OneTimeAmount <= 0 || in.SplitCount <= 0 {
		return nil
	}

	a := float64(in.SplitCount)
	feeMult := 1 + in.FeeRate/100

	locFactor := 1 + (in.TargetReturnRate*(1-2*in.T/a))/100
	locSellPrice := math.Max(0.01, round2(in.BasePrice*locFactor))
	locBuyPrice := math.Max(0.01, round2(locSellPrice-0.01))
	limitSellPrice := round2(in.BasePrice * (1 + in.TargetReturnRate/100))

	var legs []core.Leg
	add := func(label core.LegLabel, price, qty float64) {
		if price <= 0 || qty <= 0 {
			return
		}
		legs = append(legs, core.Leg{Label: label, Stock: in.Stock, Price: price, Quantity: qty})
	}

	switch in.Phase {
	case core.PhaseFirst:
		// Ramp-up splits the day's capital across two buy legs.
		half := in.OneTimeAmount * 0.5
		add(core.LegLOCBuy1, round2(in.BasePrice), math.Floor(half/(in.BasePrice*feeMult)))
		add(core.LegLOCBuy2, locBuyPrice, math.Floor(half/(locBuyPrice*feeMult)))
		add(core.LegLOCSell, locSellPrice, math.Floor(in.HoldingQty*0.25))
		add(core.LegLimitSell, limitSellPrice, math.Floor(in.HoldingQty*0.75))

	case core.PhaseSecond:
		// Steady state commits the full amount to the single LOC buy.
		add(core.LegLOCBuy2, locBuyPrice, math.Floor(in.OneTimeAmount/(locBuyPrice*feeMult)))
		add(core.LegLOCSell, locSellPrice, math.Floor(in.HoldingQty*0.25))
		add(core.LegLimitSell, limitSellPrice, math.Floor(in.HoldingQty*0.75))
	}

	return legs
}
