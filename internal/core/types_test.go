package core

import (
	"testing"
	"time"
)

func TestTrade_IsValid(t *testing.T) {
	tests := []struct {
		name string
		tr   Trade
		want bool
	}{
		{"valid buy", Trade{Stock: "SOXL", Date: "2026-08-28", Type: TradeBuy, Price: 25.10, Quantity: 4}, true},
		{"valid sell", Trade{Stock: "SOXL", Date: "2026-08-28", Type: TradeSell, Price: 26.00, Quantity: 2}, true},
		{"missing stock", Trade{Date: "2026-08-28", Type: TradeBuy, Price: 25.10, Quantity: 4}, false},
		{"zero price", Trade{Stock: "SOXL", Date: "2026-08-28", Type: TradeBuy, Quantity: 4}, false},
		{"bad type", Trade{Stock: "SOXL", Date: "2026-08-28", Type: "short", Price: 25.10, Quantity: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tr.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuote_IsValid(t *testing.T) {
	q := Quote{
		Symbol: "TQQQ",
		Price:  61.20,
		Time:   time.Now(),
	}
	if !q.IsValid() {
		t.Error("expected valid quote")
	}

	invalid := Quote{Symbol: "", Price: 0}
	if invalid.IsValid() {
		t.Error("expected invalid quote")
	}
}

func TestQuote_MA(t *testing.T) {
	q := Quote{Symbol: "SPY", Price: 500, MovingAverages: map[int]float64{20: 495.5}}
	if q.MA(20) != 495.5 {
		t.Errorf("MA(20) = %f, want 495.5", q.MA(20))
	}
	if q.MA(60) != 0 {
		t.Errorf("missing period should return 0, got %f", q.MA(60))
	}

	var empty Quote
	if empty.MA(20) != 0 {
		t.Error("nil map should return 0")
	}
}

func TestOrderPlan_IsEmpty(t *testing.T) {
	p := OrderPlan{Phase: PhaseFirst}
	if !p.IsEmpty() {
		t.Error("plan without legs should be empty")
	}
	p.Legs = append(p.Legs, Leg{Label: LegLOCSell, Price: 103.20, Quantity: 12})
	if p.IsEmpty() {
		t.Error("plan with a leg should not be empty")
	}
}

func TestPortfolio_Symbols(t *testing.T) {
	ms := Portfolio{
		Strategy:   StrategyMultiSplit,
		MultiSplit: &MultiSplitConfig{TargetStock: "SOXL"},
	}
	got := ms.Symbols()
	if len(got) != 1 || got[0] != "SOXL" {
		t.Errorf("unexpected symbols: %v", got)
	}

	sec := Portfolio{
		Strategy: StrategySection,
		Section: &SectionConfig{
			ReferenceStock: "QQQ",
			Section1:       BandSection{MAPeriod: 20, Stock: "QLD"},
			Section2:       RangeSection{MAPeriodLow: 60, MAPeriodHigh: 20, Stock: "QLD"},
			Section3:       BandSection{MAPeriod: 120, Stock: "TQQQ"},
		},
	}
	got = sec.Symbols()
	// QQQ, QLD, TQQQ with duplicates removed
	if len(got) != 3 {
		t.Errorf("expected 3 unique symbols, got %v", got)
	}
	if got[0] != "QQQ" {
		t.Errorf("reference stock should come first, got %v", got)
	}
}

func TestPortfolio_MAPeriods(t *testing.T) {
	sec := Portfolio{
		Strategy: StrategySection,
		Section: &SectionConfig{
			ReferenceStock: "QQQ",
			Section1:       BandSection{MAPeriod: 20},
			Section2:       RangeSection{MAPeriodLow: 60, MAPeriodHigh: 20},
			Section3:       BandSection{MAPeriod: 120},
		},
	}
	got := sec.MAPeriods()
	if len(got) != 3 {
		t.Errorf("expected 3 unique periods, got %v", got)
	}

	ms := Portfolio{Strategy: StrategyMultiSplit, MultiSplit: &MultiSplitConfig{TargetStock: "SOXL"}}
	if periods := ms.MAPeriods(); periods != nil {
		t.Errorf("multi-split portfolio should need no MA periods, got %v", periods)
	}
}
