// Package multisplit implements the multi-split laddered DCA strategy:
// phase classification, the conditional order planner, and the quarter
// stop-loss controller with its re-basing arithmetic.
package multisplit

import (
	"math"

	"github.com/jinsol-dev/ladder/internal/core"
)

// Rounds returns T, the fractional count of one-time capital
// allocations already deployed, rounded up to two decimals. Zero when
// the per-split amount is not positive.
func Rounds(invested, oneTimeAmount float64) float64 {
	if oneTimeAmount <= 0 {
		return 0
	}
	return math.Ceil(invested/oneTimeAmount*100) / 100
}

// Classification is the outcome of phase mapping for one portfolio.
type Classification struct {
	T     float64
	Phase core.Phase
	// EnterQuarter instructs the caller to persist the quarter-mode flag.
	// It fires only on a fresh false->true crossing; the caller must
	// apply the write exactly once.
	EnterQuarter bool
}

// Classify maps T onto a strategy phase for a given total split count.
//
//	first:             1 <= T < a/2
//	second:            a/2 <= T <= a-1
//	quarter candidate: a-1 < T <= a
//
// Anything else (not started, or past the final split) has no phase.
// The T == a-1 boundary belongs to second.
func Classify(t float64, splitCount int, isQuarterMode bool) Classification {
	c := Classification{T: t, Phase: core.PhaseNone}
	if splitCount <= 0 {
		return c
	}
	a := float64(splitCount)

	switch {
	case t >= 1 && t < a/2:
		c.Phase = core.PhaseFirst
	case t >= a/2 && t <= a-1:
		c.Phase = core.PhaseSecond
	case t > a-1 && t <= a:
		c.Phase = core.PhaseQuarterCandidate
		// The persisted flag is the sole source of truth once set;
		// re-entering the numeric range never re-fires the transition.
		c.EnterQuarter = !isQuarterMode
	}
	return c
}

// round2 rounds to two decimal places (cents).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
