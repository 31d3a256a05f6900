// Package marketdata defines the market data provider boundary: live
// prices plus the derived indicators the strategies read.
package marketdata

import (
	"context"

	"github.com/jinsol-dev/ladder/internal/core"
)

// Provider fetches quotes for a set of tickers. Implementations may
// return partial results (tickers they could not resolve are simply
// absent from the map); callers must degrade rather than fail.
type Provider interface {
	Name() string
	GetPrices(ctx context.Context, symbols []string) (map[string]core.Quote, error)
}

// HistorySource is implemented by providers that can also serve recent
// daily closes, used to warm the local price cache.
type HistorySource interface {
	FetchDailyCloses(ctx context.Context, symbol string, days int) ([]core.DailyClose, error)
}
