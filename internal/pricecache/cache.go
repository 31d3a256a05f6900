// Package pricecache keeps recent per-day closing prices. The quarter
// stop-loss controller uses it to establish the trading-day lookback
// window; when the cache is cold the controller falls back to its safe
// default, so nothing here is load-bearing for correctness.
package pricecache

import (
	"context"
	"sort"
	"sync"

	"github.com/jinsol-dev/ladder/internal/core"
)

// Cache is the local daily-close cache boundary.
type Cache interface {
	// UpsertCloses records closes, replacing same-symbol same-date rows.
	UpsertCloses(ctx context.Context, closes []core.DailyClose) error

	// RecentCloses returns up to n closes for the symbol, newest first.
	RecentCloses(ctx context.Context, symbol string, n int) ([]core.DailyClose, error)
}

// Memory is an in-memory cache with a bounded per-symbol history.
type Memory struct {
	mu        sync.RWMutex
	bySymbol  map[string]map[string]float64 // symbol -> date -> close
	retention int
}

// NewMemory creates a Memory cache keeping at most retention closes per
// symbol (0 means unbounded).
func NewMemory(retention int) *Memory {
	return &Memory{
		bySymbol:  make(map[string]map[string]float64),
		retention: retention,
	}
}

func (m *Memory) UpsertCloses(ctx context.Context, closes []core.DailyClose) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range closes {
		if c.Symbol == "" || c.Date == "" || c.Close <= 0 {
			continue
		}
		days, ok := m.bySymbol[c.Symbol]
		if !ok {
			days = make(map[string]float64)
			m.bySymbol[c.Symbol] = days
		}
		days[c.Date] = c.Close
	}

	if m.retention > 0 {
		for _, days := range m.bySymbol {
			if len(days) <= m.retention {
				continue
			}
			dates := sortedDates(days)
			for _, d := range dates[:len(dates)-m.retention] {
				delete(days, d)
			}
		}
	}
	return nil
}

func (m *Memory) RecentCloses(ctx context.Context, symbol string, n int) ([]core.DailyClose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	days, ok := m.bySymbol[symbol]
	if !ok || len(days) == 0 {
		return nil, nil
	}

	dates := sortedDates(days)
	// newest first
	out := make([]core.DailyClose, 0, n)
	for i := len(dates) - 1; i >= 0; i-- {
		if n > 0 && len(out) >= n {
			break
		}
		d := dates[i]
		out = append(out, core.DailyClose{Symbol: symbol, Date: d, Close: days[d]})
	}
	return out, nil
}

// RecentDates extracts the date strings from a cache read, newest
// first, for the stop-loss lookback window.
func RecentDates(ctx context.Context, cache Cache, symbol string, n int) []string {
	if cache == nil {
		return nil
	}
	closes, err := cache.RecentCloses(ctx, symbol, n)
	if err != nil {
		return nil
	}
	dates := make([]string, 0, len(closes))
	for _, c := range closes {
		dates = append(dates, c.Date)
	}
	return dates
}

func sortedDates(days map[string]float64) []string {
	dates := make([]string, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
