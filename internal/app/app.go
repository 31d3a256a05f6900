// Package app wires the engine, market data, storage and dispatch into
// the periodic recomputation loop.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jinsol-dev/ladder/internal/config"
	"github.com/jinsol-dev/ladder/internal/core"
	"github.com/jinsol-dev/ladder/internal/dispatch"
	"github.com/jinsol-dev/ladder/internal/engine"
	"github.com/jinsol-dev/ladder/internal/marketdata"
	"github.com/jinsol-dev/ladder/internal/metrics"
	"github.com/jinsol-dev/ladder/internal/notifier"
	"github.com/jinsol-dev/ladder/internal/pricecache"
	"github.com/jinsol-dev/ladder/internal/store"
	"github.com/jinsol-dev/ladder/internal/strategy/multisplit"
)

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      store.Store
	cache      pricecache.Cache
	provider   marketdata.Provider
	history    marketdata.HistorySource
	engine     *engine.Engine
	notifiers  *notifier.Registry
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Registry

	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a new App instance
func New(cfg *config.Config, st store.Store, cache pricecache.Cache, provider marketdata.Provider, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	notifiers := notifier.NewRegistry()
	dispatcher := dispatch.New(dispatch.Config{
		Cooldown:      time.Duration(cfg.Dispatch.CooldownMinutes) * time.Minute,
		SkipEmpty:     cfg.Dispatch.SkipEmpty,
		SkipUnchanged: cfg.Dispatch.SkipUnchanged,
	}, notifiers, logger)

	interval := cfg.Refresh.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		cache:      cache,
		provider:   provider,
		engine:     engine.New(st, cache, logger),
		notifiers:  notifiers,
		dispatcher: dispatcher,
		interval:   interval,
	}
}

// RegisterNotifier adds a notifier to the app
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// SetHistorySource enables daily-close cache warming. Without one the
// quarter stop-loss controller falls back to its trigger-sale default.
func (a *App) SetHistorySource(h marketdata.HistorySource) {
	a.history = h
}

// SetMetrics wires the Prometheus registry.
func (a *App) SetMetrics(m *metrics.Registry) {
	a.metrics = m
}

// Dispatcher exposes the plan dispatcher for archive wiring.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// SeedPortfolios upserts the portfolios declared in configuration.
// Trades recorded for an existing ID survive the upsert.
func (a *App) SeedPortfolios(ctx context.Context) error {
	for i := range a.cfg.Portfolios {
		p := a.cfg.Portfolios[i].ToPortfolio()
		existing, err := a.store.GetPortfolio(ctx, p.ID)
		if err == nil {
			// The stop-loss flag belongs to the engine, not the seed.
			p.IsQuarterMode = existing.IsQuarterMode
		}
		if err := a.store.SavePortfolio(ctx, p); err != nil {
			return err
		}
		a.logger.Info("portfolio seeded",
			zap.String("id", p.ID),
			zap.String("name", p.Name),
			zap.String("strategy", string(p.Strategy)),
		)
	}
	return nil
}

// Start begins the refresh loop and blocks until the context is done.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	a.logger.Info("ladder starting",
		zap.Duration("interval", a.interval),
	)

	// Initial run
	a.runRefreshCycle(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("ladder shutting down")
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.runRefreshCycle(ctx)
		}
	}
}

// Stop stops the refresh loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// runRefreshCycle recomputes and dispatches every portfolio's plan.
// One portfolio's failure never blocks the others.
func (a *App) runRefreshCycle(ctx context.Context) {
	start := time.Now()

	portfolios, err := a.store.ListPortfolios(ctx)
	if err != nil {
		a.logger.Error("listing portfolios failed", zap.Error(err))
		return
	}
	if a.metrics != nil {
		a.metrics.SetPortfoliosTracked(len(portfolios))
	}
	if len(portfolios) == 0 {
		a.logger.Debug("no portfolios to refresh")
		return
	}

	quotes := a.fetchQuotes(ctx, portfolios)
	a.warmPriceCache(ctx, portfolios)

	for _, p := range portfolios {
		if ctx.Err() != nil {
			return
		}
		a.refreshPortfolio(ctx, p, quotes)
	}

	if a.metrics != nil {
		a.metrics.RecordRefreshCycle(time.Since(start).Seconds())
	}
	a.logger.Debug("refresh cycle complete",
		zap.Int("portfolios", len(portfolios)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (a *App) fetchQuotes(ctx context.Context, portfolios []core.Portfolio) map[string]core.Quote {
	seen := make(map[string]struct{})
	var symbols []string
	for _, p := range portfolios {
		for _, s := range p.Symbols() {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return nil
	}

	quotes, err := a.provider.GetPrices(ctx, symbols)
	if err != nil {
		a.logger.Error("quote fetch failed",
			zap.String("provider", a.provider.Name()),
			zap.Error(err),
		)
		if a.metrics != nil {
			a.metrics.RecordProviderError(a.provider.Name())
		}
	}
	return quotes
}

// warmPriceCache refreshes cached daily closes for multi-split target
// stocks; the stop-loss controller scans them for recent trigger sales.
func (a *App) warmPriceCache(ctx context.Context, portfolios []core.Portfolio) {
	if a.history == nil || a.cache == nil {
		return
	}

	seen := make(map[string]struct{})
	for _, p := range portfolios {
		if p.Strategy != core.StrategyMultiSplit || p.MultiSplit == nil {
			continue
		}
		symbol := p.MultiSplit.TargetStock
		if _, ok := seen[symbol]; ok || symbol == "" {
			continue
		}
		seen[symbol] = struct{}{}

		closes, err := a.history.FetchDailyCloses(ctx, symbol, multisplit.LookbackDays+5)
		if err != nil {
			a.logger.Warn("daily close fetch failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		if err := a.cache.UpsertCloses(ctx, closes); err != nil {
			a.logger.Warn("price cache update failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}
}

func (a *App) refreshPortfolio(ctx context.Context, p core.Portfolio, quotes map[string]core.Quote) {
	wasQuarter := p.IsQuarterMode
	plan := a.engine.Recompute(ctx, p, quotes)

	if a.metrics != nil {
		a.metrics.RecordPlan(string(p.Strategy), string(plan.Phase))
		if !wasQuarter && plan.Phase == core.PhaseQuarter {
			a.metrics.RecordQuarterTransition()
		}
	}

	if err := a.dispatcher.Dispatch(ctx, plan); err != nil {
		a.logger.Error("dispatch failed",
			zap.String("portfolio", p.ID),
			zap.Error(err),
		)
	}
}

// RunOnce performs a single refresh cycle (useful for testing and the
// one-shot CLI command).
func (a *App) RunOnce(ctx context.Context) {
	a.runRefreshCycle(ctx)
}
