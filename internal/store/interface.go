// Package store provides persistence for portfolios and their trade
// histories. The engine reads portfolios on every recomputation and has
// exactly one write path: flipping the quarter-mode flag.
package store

import (
	"context"

	"github.com/jinsol-dev/ladder/internal/core"
)

// Store is the portfolio persistence boundary.
type Store interface {
	// ListPortfolios returns every portfolio with trades attached, in
	// recorded order.
	ListPortfolios(ctx context.Context) ([]core.Portfolio, error)

	// GetPortfolio returns one portfolio with trades attached.
	GetPortfolio(ctx context.Context, id string) (core.Portfolio, error)

	// SavePortfolio inserts or replaces a portfolio's configuration.
	// Trades are managed through AppendTrade/DeleteTrade, not here.
	SavePortfolio(ctx context.Context, p core.Portfolio) error

	// DeletePortfolio removes a portfolio and its trades.
	DeletePortfolio(ctx context.Context, id string) error

	// AppendTrade records an executed trade. Trades are append-only;
	// insertion order within a day is preserved.
	AppendTrade(ctx context.Context, portfolioID string, t core.Trade) error

	// DeleteTrade removes a single trade by ID (explicit deletion is
	// the only mutation trades ever see).
	DeleteTrade(ctx context.Context, portfolioID, tradeID string) error

	// SetQuarterMode flips the stop-loss flag. This is the engine's
	// single write path; the engine only ever sets it true.
	SetQuarterMode(ctx context.Context, portfolioID string, on bool) error
}
