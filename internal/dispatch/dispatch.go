// Package dispatch fans computed order plans out to notifiers and the
// plan archive, with per-portfolio cooldown and duplicate suppression.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jinsol-dev/ladder/internal/archive"
	"github.com/jinsol-dev/ladder/internal/core"
	"github.com/jinsol-dev/ladder/internal/notifier"
)

// Config holds dispatcher configuration
type Config struct {
	// Cooldown is the minimum gap between notifications for the same
	// portfolio. Zero disables it.
	Cooldown time.Duration `mapstructure:"cooldown"`

	// SkipEmpty suppresses "no signal" plans entirely.
	SkipEmpty bool `mapstructure:"skip_empty"`

	// SkipUnchanged suppresses a plan identical to the last one sent
	// for the portfolio, regardless of cooldown.
	SkipUnchanged bool `mapstructure:"skip_unchanged"`
}

// DefaultConfig returns default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		Cooldown:      1 * time.Hour,
		SkipEmpty:     true,
		SkipUnchanged: true,
	}
}

type sent struct {
	fingerprint string
	at          time.Time
}

// Dispatcher delivers order plans to notifiers with filtering
type Dispatcher struct {
	cfg      Config
	registry *notifier.Registry
	logger   *zap.Logger

	history *archive.History

	mu       sync.Mutex
	lastSent map[string]sent // portfolio id -> last delivery
	now      func() time.Time
}

// New creates a new plan dispatcher
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		lastSent: make(map[string]sent),
		now:      time.Now,
	}
}

// SetHistory sets the plan archive. Archiving happens before delivery
// and is independent of suppression: every non-empty plan is archived.
func (d *Dispatcher) SetHistory(h *archive.History) {
	d.history = h
}

// Dispatch processes one portfolio's plan through filters, the archive,
// and every registered notifier.
func (d *Dispatcher) Dispatch(ctx context.Context, plan core.OrderPlan) error {
	if plan.IsEmpty() && d.cfg.SkipEmpty {
		d.logger.Debug("empty plan suppressed",
			zap.String("portfolio", plan.PortfolioID),
		)
		return nil
	}

	if d.history != nil && !plan.IsEmpty() {
		if err := d.history.SavePlan(ctx, plan); err != nil {
			d.logger.Error("failed to archive plan", zap.Error(err))
		}
	}

	if !d.shouldDeliver(plan) {
		return nil
	}

	if d.registry == nil {
		return nil
	}
	errors := d.registry.NotifyAll(plan)
	for name, err := range errors {
		d.logger.Error("notifier failed",
			zap.String("notifier", name),
			zap.Error(err),
		)
	}

	d.logger.Info("plan dispatched",
		zap.String("portfolio", plan.PortfolioID),
		zap.String("stock", plan.Stock),
		zap.String("phase", string(plan.Phase)),
		zap.Int("legs", len(plan.Legs)),
		zap.Int("notifiers", len(d.registry.GetAll())),
		zap.Int("errors", len(errors)),
	)
	return nil
}

// shouldDeliver applies cooldown and duplicate suppression, and records
// the delivery when it passes.
func (d *Dispatcher) shouldDeliver(plan core.OrderPlan) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	fp := fingerprint(plan)
	last, seen := d.lastSent[plan.PortfolioID]

	if seen {
		if d.cfg.SkipUnchanged && last.fingerprint == fp {
			d.logger.Debug("unchanged plan suppressed",
				zap.String("portfolio", plan.PortfolioID),
			)
			return false
		}
		if d.cfg.Cooldown > 0 && now.Sub(last.at) < d.cfg.Cooldown {
			d.logger.Debug("plan suppressed by cooldown",
				zap.String("portfolio", plan.PortfolioID),
				zap.Duration("since", now.Sub(last.at)),
			)
			return false
		}
	}

	d.lastSent[plan.PortfolioID] = sent{fingerprint: fp, at: now}
	return true
}

// fingerprint identifies a plan by its actionable content. Generation
// time is excluded so a recomputation of the same orders matches.
func fingerprint(plan core.OrderPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%d", plan.Stock, plan.Phase, plan.Section)
	for _, leg := range plan.Legs {
		fmt.Fprintf(&sb, "|%s:%s:%.2f:%.2f", leg.Label, leg.Stock, leg.Price, leg.Quantity)
	}
	return sb.String()
}
