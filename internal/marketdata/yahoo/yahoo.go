// Package yahoo implements the market data provider against the Yahoo
// Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jinsol-dev/ladder/internal/core"
	"github.com/jinsol-dev/ladder/internal/indicator"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// validSymbol matches stock symbols like SPY, SOXL, BRK-B
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{1,10}([.-][A-Za-z]{1,4})?$`)

// Yahoo fetches quotes and derives moving averages and RSI from the
// chart API's daily closes.
type Yahoo struct {
	client    *http.Client
	baseURL   string
	maPeriods []int
	rsiPeriod int
}

// Option configures the Yahoo provider.
type Option func(*Yahoo)

// WithBaseURL overrides the chart API endpoint (used in tests).
// An empty URL keeps the default.
func WithBaseURL(url string) Option {
	return func(y *Yahoo) {
		if url != "" {
			y.baseURL = url
		}
	}
}

// WithMAPeriods sets the moving-average periods computed per quote.
func WithMAPeriods(periods []int) Option {
	return func(y *Yahoo) {
		if len(periods) > 0 {
			y.maPeriods = periods
		}
	}
}

// WithRSIPeriod sets the RSI period (default 14).
func WithRSIPeriod(period int) Option {
	return func(y *Yahoo) {
		if period > 0 {
			y.rsiPeriod = period
		}
	}
}

// New creates a new Yahoo provider. By default it computes the 20, 60
// and 120 day moving averages and a 14-day RSI.
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   defaultBaseURL,
		maPeriods: []int{20, 60, 120},
		rsiPeriod: 14,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// GetPrices fetches quotes for every symbol. Symbols that fail resolve
// are left out of the result; only a wholesale failure (every symbol
// errored) is reported as an error.
func (y *Yahoo) GetPrices(ctx context.Context, symbols []string) (map[string]core.Quote, error) {
	quotes := make(map[string]core.Quote, len(symbols))
	var lastErr error

	for _, symbol := range symbols {
		q, err := y.fetchQuote(ctx, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		quotes[symbol] = q
	}

	if len(quotes) == 0 && lastErr != nil {
		return quotes, core.WrapError(core.ErrProviderFailed, lastErr)
	}
	return quotes, nil
}

// FetchDailyCloses returns the most recent daily closes for the symbol,
// oldest first, for warming the local price cache.
func (y *Yahoo) FetchDailyCloses(ctx context.Context, symbol string, days int) ([]core.DailyClose, error) {
	dates, closes, err := y.fetchChart(ctx, symbol)
	if err != nil {
		return nil, err
	}

	start := 0
	if days > 0 && len(closes) > days {
		start = len(closes) - days
	}

	out := make([]core.DailyClose, 0, len(closes)-start)
	for i := start; i < len(closes); i++ {
		out = append(out, core.DailyClose{Symbol: symbol, Date: dates[i], Close: closes[i]})
	}
	return out, nil
}

func (y *Yahoo) fetchQuote(ctx context.Context, symbol string) (core.Quote, error) {
	dates, closes, err := y.fetchChart(ctx, symbol)
	if err != nil {
		return core.Quote{}, err
	}
	if len(closes) == 0 {
		return core.Quote{}, fmt.Errorf("no closes for symbol: %s", symbol)
	}

	mas := make(map[int]float64, len(y.maPeriods))
	for _, p := range y.maPeriods {
		if v := indicator.LatestSMA(closes, p); v > 0 {
			mas[p] = v
		}
	}

	quoteTime := time.Now()
	if t, err := time.Parse("2006-01-02", dates[len(dates)-1]); err == nil {
		quoteTime = t
	}

	return core.Quote{
		Symbol:         symbol,
		Price:          closes[len(closes)-1],
		MovingAverages: mas,
		RSI:            indicator.RSI(closes, y.rsiPeriod),
		Time:           quoteTime,
	}, nil
}

// fetchChart pulls two years of daily bars and returns aligned dates
// (YYYY-MM-DD) and closes, skipping null entries for non-trading days.
func (y *Yahoo) fetchChart(ctx context.Context, symbol string) ([]string, []float64, error) {
	if !validSymbol.MatchString(symbol) {
		return nil, nil, fmt.Errorf("invalid symbol format: %s", symbol)
	}

	url := fmt.Sprintf("%s/%s?interval=1d&range=2y", y.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}

	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return nil, nil, fmt.Errorf("yahoo error: %s", desc.String())
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, nil, fmt.Errorf("no data for symbol: %s", symbol)
	}

	timestamps := result.Get("timestamp").Array()
	rawCloses := result.Get("indicators.quote.0.close").Array()

	n := len(timestamps)
	if len(rawCloses) < n {
		n = len(rawCloses)
	}

	dates := make([]string, 0, n)
	closes := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if rawCloses[i].Type == gjson.Null {
			continue // non-trading day / missing bar
		}
		dates = append(dates, time.Unix(timestamps[i].Int(), 0).UTC().Format("2006-01-02"))
		closes = append(closes, rawCloses[i].Float())
	}

	return dates, closes, nil
}
