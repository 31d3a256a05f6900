// Package engine turns a portfolio plus a market snapshot into the
// day's order plan. Every computation is a pure function of its inputs;
// the single side effect is the once-only quarter-mode write.
package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jinsol-dev/ladder/internal/core"
	"github.com/jinsol-dev/ladder/internal/ledger"
	"github.com/jinsol-dev/ladder/internal/pricecache"
	"github.com/jinsol-dev/ladder/internal/store"
	"github.com/jinsol-dev/ladder/internal/strategy/multisplit"
	"github.com/jinsol-dev/ladder/internal/strategy/section"
)

// Engine computes order plans. It is safe for concurrent use; the
// quarter-mode latch keeps racing refreshes from re-issuing the flag
// write for the same portfolio.
type Engine struct {
	store  store.Store
	cache  pricecache.Cache
	logger *zap.Logger

	mu          sync.Mutex
	quarterSent map[string]struct{}
}

// New creates an Engine. The cache may be nil; stop-loss detection then
// falls back to its safe default.
func New(st store.Store, cache pricecache.Cache, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:       st,
		cache:       cache,
		logger:      logger,
		quarterSent: make(map[string]struct{}),
	}
}

// Recompute derives the order plan for one portfolio from its trade
// history and the quote snapshot. Missing data and invalid config
// degrade to an empty ("no signal") plan, never an error; a failed
// quarter-mode persist is logged and retried on a later cycle.
func (e *Engine) Recompute(ctx context.Context, p core.Portfolio, quotes map[string]core.Quote) core.OrderPlan {
	plan := core.OrderPlan{
		PortfolioID:   p.ID,
		PortfolioName: p.Name,
		GeneratedAt:   time.Now(),
	}

	switch p.Strategy {
	case core.StrategyMultiSplit:
		e.recomputeMultiSplit(ctx, p, quotes, &plan)
	case core.StrategySection:
		e.recomputeSection(p, quotes, &plan)
	}
	return plan
}

func (e *Engine) recomputeMultiSplit(ctx context.Context, p core.Portfolio, quotes map[string]core.Quote, plan *core.OrderPlan) {
	cfg := p.MultiSplit
	if cfg == nil {
		return
	}
	plan.Stock = cfg.TargetStock

	// Invalid config: phase undetermined, no legs.
	if p.OneTimeAmount <= 0 || cfg.SplitCount <= 0 || cfg.TargetReturnRate <= 0 {
		return
	}

	holdings := ledger.Compute(p.Trades)
	h, held := ledger.Find(holdings, cfg.TargetStock)

	t := multisplit.Rounds(h.TotalCost, p.OneTimeAmount)
	cls := multisplit.Classify(t, cfg.SplitCount, p.IsQuarterMode)

	if cls.Phase != core.PhaseQuarterCandidate {
		// Leaving the candidate range re-arms the latch so a future
		// fresh crossing from a cleared flag can fire again.
		e.clearLatch(p.ID)
	}

	if cls.EnterQuarter && e.latch(p.ID) {
		if err := e.store.SetQuarterMode(ctx, p.ID, true); err != nil {
			e.logger.Error("quarter mode persist failed",
				zap.String("portfolio", p.ID),
				zap.Error(err),
			)
			e.clearLatch(p.ID) // retry next cycle
		} else {
			e.logger.Info("quarter stop-loss mode entered",
				zap.String("portfolio", p.ID),
				zap.Float64("rounds", cls.T),
			)
			p.IsQuarterMode = true
		}
	}

	if p.IsQuarterMode {
		plan.Phase = core.PhaseQuarter
		plan.Legs = multisplit.PlanQuarter(multisplit.QuarterInput{
			Stock:            cfg.TargetStock,
			Trades:           p.Trades,
			HoldingQty:       h.Quantity,
			AvgPrice:         h.AvgPrice,
			OneTimeAmount:    p.OneTimeAmount,
			FeeRate:          p.FeeRate,
			TargetReturnRate: cfg.TargetReturnRate,
			SplitCount:       cfg.SplitCount,
			RecentDates:      pricecache.RecentDates(ctx, e.cache, cfg.TargetStock, multisplit.LookbackDays),
		})
		return
	}

	// Base price: average cost while holding, else the live price, else
	// there is no signal today.
	basePrice := h.AvgPrice
	if !held {
		q, ok := quotes[cfg.TargetStock]
		if !ok || !q.IsValid() {
			return
		}
		basePrice = q.Price
	}

	plan.Phase = cls.Phase
	plan.Legs = multisplit.Plan(multisplit.PlanInput{
		Phase:            cls.Phase,
		Stock:            cfg.TargetStock,
		BasePrice:        basePrice,
		OneTimeAmount:    p.OneTimeAmount,
		FeeRate:          p.FeeRate,
		HoldingQty:       h.Quantity,
		TargetReturnRate: cfg.TargetReturnRate,
		T:                cls.T,
		SplitCount:       cfg.SplitCount,
	})
}

func (e *Engine) recomputeSection(p core.Portfolio, quotes map[string]core.Quote, plan *core.OrderPlan) {
	cfg := p.Section
	if cfg == nil || p.OneTimeAmount <= 0 {
		return
	}

	ref, ok := quotes[cfg.ReferenceStock]
	if !ok || !ref.IsValid() {
		return
	}

	ev := section.Evaluate(*cfg, ref)
	if ev.None() {
		return
	}

	plan.Phase = core.PhaseSection
	plan.Section = ev.Active
	plan.Stock = ev.Stock

	// The RSI gate belongs to order issuing, which is here.
	if !ev.BuyAllowed(ref.RSI) {
		return
	}

	q, ok := quotes[ev.Stock]
	if !ok || !q.IsValid() {
		return
	}

	feeMult := 1 + p.FeeRate/100
	qty := math.Floor(p.OneTimeAmount / (q.Price * feeMult))
	if qty <= 0 {
		return
	}
	plan.Legs = []core.Leg{{
		Label:    core.LegSectionBuy,
		Stock:    ev.Stock,
		Price:    math.Round(q.Price*100) / 100,
		Quantity: qty,
	}}
}

func (e *Engine) latch(portfolioID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, sent := e.quarterSent[portfolioID]; sent {
		return false
	}
	e.quarterSent[portfolioID] = struct{}{}
	return true
}

func (e *Engine) clearLatch(portfolioID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.quarterSent, portfolioID)
}
