package ledger

import (
	"math"
	"testing"

	"github.com/jinsol-dev/ladder/internal/core"
)

func buy(stock string, price, qty, fee float64) core.Trade {
	return core.Trade{Stock: stock, Type: core.TradeBuy, Price: price, Quantity: qty, Fee: fee}
}

func sell(stock string, price, qty, fee float64) core.Trade {
	return core.Trade{Stock: stock, Type: core.TradeSell, Price: price, Quantity: qty, Fee: fee}
}

func TestCompute_SingleBuy(t *testing.T) {
	holdings := Compute([]core.Trade{buy("SOXL", 100, 10, 1)})

	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(holdings))
	}
	h := holdings[0]
	if h.Quantity != 10 {
		t.Errorf("quantity = %f, want 10", h.Quantity)
	}
	// totalCost = 100*10 + 1 = 1001, avg = 100.10
	if h.TotalCost != 1001 {
		t.Errorf("totalCost = %f, want 1001", h.TotalCost)
	}
	if math.Abs(h.AvgPrice-100.10) > 1e-9 {
		t.Errorf("avgPrice = %f, want 100.10", h.AvgPrice)
	}
}

func TestCompute_SellKeepsAvgPrice(t *testing.T) {
	// Cost-basis invariant: a partial sell must not move the average.
	holdings := Compute([]core.Trade{
		buy("SOXL", 100, 10, 1),
		sell("SOXL", 110, 4, 0.5),
	})

	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(holdings))
	}
	h := holdings[0]
	if h.Quantity != 6 {
		t.Errorf("quantity = %f, want 6", h.Quantity)
	}
	// avg before sell = 1001/10 = 100.10; basis after = 6*100.10 = 600.60
	if math.Abs(h.AvgPrice-100.10) > 1e-9 {
		t.Errorf("avgPrice after sell = %f, want unchanged 100.10", h.AvgPrice)
	}
	if math.Abs(h.TotalCost-600.60) > 1e-9 {
		t.Errorf("totalCost = %f, want 600.60", h.TotalCost)
	}
}

func TestCompute_SellFeeDoesNotTouchBasis(t *testing.T) {
	withFee := Compute([]core.Trade{buy("A", 50, 8, 0), sell("A", 55, 2, 3)})
	withoutFee := Compute([]core.Trade{buy("A", 50, 8, 0), sell("A", 55, 2, 0)})

	if withFee[0].TotalCost != withoutFee[0].TotalCost {
		t.Errorf("sell fee leaked into basis: %f vs %f", withFee[0].TotalCost, withoutFee[0].TotalCost)
	}
}

func TestCompute_SellToZero(t *testing.T) {
	holdings := Compute([]core.Trade{
		buy("SOXL", 100, 10, 1),
		sell("SOXL", 105, 10, 1),
	})

	// Position fully closed: holding absent from output.
	if len(holdings) != 0 {
		t.Errorf("expected no holdings after full close, got %d", len(holdings))
	}
}

func TestCompute_OversellPropagates(t *testing.T) {
	// An oversell is not clamped; the negative book just never surfaces.
	holdings := Compute([]core.Trade{
		buy("SOXL", 100, 5, 0),
		sell("SOXL", 100, 8, 0),
	})
	if len(holdings) != 0 {
		t.Errorf("negative position must not surface, got %d holdings", len(holdings))
	}

	var r Running
	r.Apply(buy("SOXL", 100, 5, 0))
	r.Apply(sell("SOXL", 100, 8, 0))
	if r.Quantity != -3 {
		t.Errorf("running quantity = %f, want -3 (propagated, not clamped)", r.Quantity)
	}
}

func TestCompute_MultipleTickers(t *testing.T) {
	holdings := Compute([]core.Trade{
		buy("TQQQ", 60, 5, 0.3),
		buy("SOXL", 25, 20, 0.5),
		buy("TQQQ", 62, 5, 0.3),
	})

	if len(holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(holdings))
	}
	// Sorted by ticker
	if holdings[0].Stock != "SOXL" || holdings[1].Stock != "TQQQ" {
		t.Errorf("unexpected order: %s, %s", holdings[0].Stock, holdings[1].Stock)
	}
	// TQQQ: cost = 60*5+0.3 + 62*5+0.3 = 610.6, qty 10
	if math.Abs(holdings[1].TotalCost-610.6) > 1e-9 {
		t.Errorf("TQQQ totalCost = %f, want 610.6", holdings[1].TotalCost)
	}
}

func TestCompute_SameDayCommutative(t *testing.T) {
	// Two buys on the same day accumulate the same basis in either order.
	a := Compute([]core.Trade{
		buy("A", 100, 5, 1),
		buy("A", 102, 5, 1),
	})
	b := Compute([]core.Trade{
		buy("A", 102, 5, 1),
		buy("A", 100, 5, 1),
	})
	if math.Abs(a[0].TotalCost-b[0].TotalCost) > 1e-9 || a[0].Quantity != b[0].Quantity {
		t.Error("same-day buys should be commutative")
	}
}

func TestRunning_ApplyReturnsPreTradeAverage(t *testing.T) {
	var r Running

	avg := r.Apply(buy("A", 100, 10, 1))
	if avg != 0 {
		t.Errorf("avg before first buy = %f, want 0", avg)
	}

	avg = r.Apply(sell("A", 110, 4, 0))
	if math.Abs(avg-100.10) > 1e-9 {
		t.Errorf("avg before sell = %f, want 100.10", avg)
	}
	if math.Abs(r.TotalCost-600.60) > 1e-9 {
		t.Errorf("basis after sell = %f, want 600.60", r.TotalCost)
	}
}

func TestFind(t *testing.T) {
	holdings := Compute([]core.Trade{buy("SOXL", 25, 20, 0.5)})

	if _, ok := Find(holdings, "SOXL"); !ok {
		t.Error("expected to find SOXL holding")
	}
	if _, ok := Find(holdings, "TQQQ"); ok {
		t.Error("did not expect TQQQ holding")
	}
}
