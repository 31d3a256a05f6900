package multisplit

import (
	"math"
	"testing"

	"github.com/jinsol-dev/ladder/internal/core"
)

func quarterFixture() QuarterInput {
	trades := []core.Trade{
		{Stock: "SOXL", Date: "2026-08-01", Type: core.TradeBuy, Price: 10.00, Quantity: 100},
		{Stock: "SOXL", Date: "2026-08-05", Type: core.TradeBuy, Price: 8.00, Quantity: 100},
		{Stock: "SOXL", Date: "2026-08-10", Type: core.TradeSell, Price: 7.00, Quantity: 50, MarketOnClose: true},
		{Stock: "SOXL", Date: "2026-08-12", Type: core.TradeSell, Price: 9.50, Quantity: 50, Fee: 1},
	}
	return QuarterInput{
		Stock:            "SOXL",
		Trades:           trades,
		HoldingQty:       100,
		AvgPrice:         9.00,
		OneTimeAmount:    1000,
		FeeRate:          0,
		TargetReturnRate: 8,
		SplitCount:       10,
		RecentDates: []string{
			"2026-08-14", "2026-08-13", "2026-08-12", "2026-08-11", "2026-08-10",
			"2026-08-07", "2026-08-06", "2026-08-05", "2026-08-04", "2026-08-03",
			"2026-08-01",
		},
	}
}

func TestPlanQuarter_CaseA_NoTriggerSaleYet(t *testing.T) {
	in := quarterFixture()
	// Strip the MOC flag: no trigger sale exists in the window.
	in.Trades[2].MarketOnClose = false

	legs := PlanQuarter(in)

	if len(legs) != 1 {
		t.Fatalf("expected single MOC trigger leg, got %d: %+v", len(legs), legs)
	}
	leg := legs[0]
	if leg.Label != core.LegMOCSell {
		t.Errorf("leg label = %s, want moc_sell", leg.Label)
	}
	if leg.Quantity != 25 {
		t.Errorf("MOC qty = %f, want 25 (Q*0.25)", leg.Quantity)
	}
}

func TestPlanQuarter_CaseA_FractionalQuantity(t *testing.T) {
	in := quarterFixture()
	in.Trades = nil // no trades at all, but quarter mode already latched
	in.HoldingQty = 13

	legs := PlanQuarter(in)
	if len(legs) != 1 {
		t.Fatalf("expected single MOC leg, got %d", len(legs))
	}
	// Two-decimal rounding, not flooring: 13 * 0.25 = 3.25
	if legs[0].Quantity != 3.25 {
		t.Errorf("MOC qty = %f, want 3.25", legs[0].Quantity)
	}
}

func TestPlanQuarter_CacheUnavailableDefaultsToCaseA(t *testing.T) {
	in := quarterFixture()
	in.RecentDates = nil // price cache down

	legs := PlanQuarter(in)
	if len(legs) != 1 || legs[0].Label != core.LegMOCSell {
		t.Fatalf("cache outage must fall back to the trigger sale, got %+v", legs)
	}
}

func TestPlanQuarter_CaseB_Rebasing(t *testing.T) {
	in := quarterFixture()
	legs := PlanQuarter(in)

	if len(legs) != 3 {
		t.Fatalf("expected 3 legs, got %d: %+v", len(legs), legs)
	}

	// Up to the 08-10 sale: invested 1350 (avg 9.00 x 150), T_atSale =
	// ceil2(1350/1000) = 1.35, remaining = 8.65. After the sale: one sell
	// of 50 @ 9.50 fee 1 against avg 9.00 -> profit 24. Re-based amount =
	// (1000*8.65 + 24) / 10 = 867.40.
	buy, ok := findLeg(legs, core.LegLOCBuy2)
	if !ok {
		t.Fatal("expected LOC buy leg")
	}
	// locBuy price = round2(9.00*0.9) - 0.01 = 8.09
	if buy.Price != 8.09 {
		t.Errorf("locBuy price = %.2f, want 8.09", buy.Price)
	}
	// floor(867.40 / 8.09) = floor(107.22) = 107
	if buy.Quantity != 107 {
		t.Errorf("locBuy qty = %.0f, want 107", buy.Quantity)
	}

	locSell, _ := findLeg(legs, core.LegLOCSell)
	if locSell.Price != 8.10 || locSell.Quantity != 25 {
		t.Errorf("locSell = %.2f x %.0f, want 8.10 x 25", locSell.Price, locSell.Quantity)
	}

	limitSell, _ := findLeg(legs, core.LegLimitSell)
	// 9.00 * 1.08 = 9.72; floor(100*0.75) = 75
	if limitSell.Price != 9.72 || limitSell.Quantity != 75 {
		t.Errorf("limitSell = %.2f x %.0f, want 9.72 x 75", limitSell.Price, limitSell.Quantity)
	}
}

func TestPlanQuarter_CaseB_LossesFloorAtZero(t *testing.T) {
	in := quarterFixture()
	// Replace the post-sale sell with a catastrophic loss so the
	// re-based amount would go negative without the floor.
	in.Trades[3] = core.Trade{
		Stock: "SOXL", Date: "2026-08-12", Type: core.TradeSell,
		Price: 0.01, Quantity: 50, Fee: 10000,
	}

	legs := PlanQuarter(in)

	// newOneTimeAmount clamps to 0 -> LOC buy floors to qty 0 and is
	// omitted; the sell legs survive.
	if _, ok := findLeg(legs, core.LegLOCBuy2); ok {
		t.Error("LOC buy must be omitted when the re-based amount is zero")
	}
	if _, ok := findLeg(legs, core.LegLOCSell); !ok {
		t.Error("locSell leg should still be emitted")
	}
}

func TestPlanQuarter_SaleOutsideWindowIgnored(t *testing.T) {
	in := quarterFixture()
	// The MOC sale happened, but the lookback window has since rolled
	// past it: back to Case A.
	in.RecentDates = []string{
		"2026-09-05", "2026-09-04", "2026-09-03", "2026-09-02", "2026-09-01",
		"2026-08-29", "2026-08-28", "2026-08-27", "2026-08-26", "2026-08-25",
		"2026-08-24",
	}

	legs := PlanQuarter(in)
	if len(legs) != 1 || legs[0].Label != core.LegMOCSell {
		t.Fatalf("stale trigger sale must not re-base, got %+v", legs)
	}
}

func TestPlanQuarter_Aborts(t *testing.T) {
	in := quarterFixture()
	in.HoldingQty = 0
	if legs := PlanQuarter(in); legs != nil {
		t.Error("empty position must abort")
	}

	in = quarterFixture()
	in.AvgPrice = 0
	if legs := PlanQuarter(in); legs != nil {
		t.Error("non-positive average cost must abort Case B")
	}
}

func TestRound2(t *testing.T) {
	if got := round2(103.1999); math.Abs(got-103.20) > 1e-12 {
		t.Errorf("round2 = %f, want 103.20", got)
	}
	if got := round2(12.625); got != 12.63 {
		t.Errorf("round2 = %f, want 12.63", got)
	}
}
