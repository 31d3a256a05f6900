// Package section implements the moving-average interval strategy:
// picking which of three configured price zones the reference ticker
// currently sits in.
package section

import "github.com/jinsol-dev/ladder/internal/core"

// Evaluation reports the active section, if any. Classification is
// gate-free: the RSI threshold is carried along for the order-issuing
// step to apply, never applied here.
type Evaluation struct {
	Active       int // 1..3; 0 when no section is active
	Stock        string
	RSIGated     bool
	RSIThreshold float64
}

// None reports whether no section is currently active.
func (e Evaluation) None() bool { return e.Active == 0 }

// BuyAllowed applies the optional RSI gate for the order-issuing step.
// Without a gate every active section may buy; with one, the reference
// RSI must be known and at or below the section's threshold.
func (e Evaluation) BuyAllowed(rsi float64) bool {
	if !e.RSIGated {
		return true
	}
	return rsi > 0 && rsi <= e.RSIThreshold
}

// Evaluate decides the active section from the reference ticker's quote.
// Sections are tried in fixed priority order:
//
//	1. price below section 1's MA
//	2. price between section 2's two MAs
//	3. price below section 3's MA
//
// A section whose configured MAs are unavailable (0) never matches, so
// missing indicator data degrades to "no active section".
func Evaluate(cfg core.SectionConfig, ref core.Quote) Evaluation {
	p0 := ref.Price
	if p0 <= 0 {
		return Evaluation{}
	}

	if ma := ref.MA(cfg.Section1.MAPeriod); ma > 0 && p0 < ma {
		return Evaluation{
			Active:       1,
			Stock:        cfg.Section1.Stock,
			RSIGated:     cfg.RSIEnabled && cfg.Section1.RSIThreshold > 0,
			RSIThreshold: cfg.Section1.RSIThreshold,
		}
	}

	maLow := ref.MA(cfg.Section2.MAPeriodLow)
	maHigh := ref.MA(cfg.Section2.MAPeriodHigh)
	if maLow > 0 && maHigh > 0 && maLow <= p0 && p0 <= maHigh {
		return Evaluation{
			Active:       2,
			Stock:        cfg.Section2.Stock,
			RSIGated:     cfg.RSIEnabled && cfg.Section2.RSIThreshold > 0,
			RSIThreshold: cfg.Section2.RSIThreshold,
		}
	}

	if ma := ref.MA(cfg.Section3.MAPeriod); ma > 0 && p0 < ma {
		return Evaluation{
			Active:       3,
			Stock:        cfg.Section3.Stock,
			RSIGated:     cfg.RSIEnabled && cfg.Section3.RSIThreshold > 0,
			RSIThreshold: cfg.Section3.RSIThreshold,
		}
	}

	return Evaluation{}
}
