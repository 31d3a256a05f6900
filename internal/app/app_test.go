package app

import (
	"context"
	"testing"
	"time"

	"github.com/jinsol-dev/ladder/internal/config"
	"github.com/jinsol-dev/ladder/internal/core"
	"github.com/jinsol-dev/ladder/internal/notifier"
	"github.com/jinsol-dev/ladder/internal/pricecache"
	"github.com/jinsol-dev/ladder/internal/store"
)

type mockProvider struct {
	name   string
	quotes map[string]core.Quote
	err    error
	calls  int
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) GetPrices(ctx context.Context, symbols []string) (map[string]core.Quote, error) {
	m.calls++
	return m.quotes, m.err
}

type mockHistory struct {
	closes map[string][]core.DailyClose
}

func (m *mockHistory) FetchDailyCloses(ctx context.Context, symbol string, days int) ([]core.DailyClose, error) {
	return m.closes[symbol], nil
}

type mockNotifier struct {
	name     string
	received []core.OrderPlan
}

func (m *mockNotifier) Name() string                   { return m.name }
func (m *mockNotifier) Init(cfg notifier.Config) error { return nil }
func (m *mockNotifier) Send(plan core.OrderPlan) error {
	m.received = append(m.received, plan)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Refresh.Interval = 10 * time.Millisecond
	return cfg
}

func seedMultiSplit(t *testing.T, st store.Store) {
	t.Helper()
	p := core.Portfolio{
		ID:            "p1",
		Name:          "soxl ladder",
		OneTimeAmount: 1000,
		FeeRate:       0.25,
		Strategy:      core.StrategyMultiSplit,
		MultiSplit: &core.MultiSplitConfig{
			TargetStock:      "SOXL",
			TargetReturnRate: 8,
			SplitCount:       10,
		},
	}
	if err := st.SavePortfolio(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	err := st.AppendTrade(context.Background(), "p1", core.Trade{
		ID: "t1", Date: "2026-08-01", Stock: "SOXL",
		Type: core.TradeBuy, Price: 100, Quantity: 30, Fee: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestApp_RunOnce_DispatchesPlan(t *testing.T) {
	st := store.NewMemoryStore()
	seedMultiSplit(t, st)

	provider := &mockProvider{
		name:   "mock",
		quotes: map[string]core.Quote{"SOXL": {Symbol: "SOXL", Price: 98}},
	}
	a := New(testConfig(), st, pricecache.NewMemory(30), provider, nil)

	mock := &mockNotifier{name: "mock"}
	if err := a.RegisterNotifier(mock); err != nil {
		t.Fatal(err)
	}

	a.RunOnce(context.Background())

	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls)
	}
	if len(mock.received) != 1 {
		t.Fatalf("expected 1 dispatched plan, got %d", len(mock.received))
	}
	plan := mock.received[0]
	if plan.Phase != core.PhaseFirst || plan.Stock != "SOXL" {
		t.Errorf("unexpected plan: %+v", plan)
	}
}

func TestApp_RunOnce_EmptyStoreIsQuiet(t *testing.T) {
	provider := &mockProvider{name: "mock"}
	a := New(testConfig(), store.NewMemoryStore(), pricecache.NewMemory(30), provider, nil)

	a.RunOnce(context.Background())

	if provider.calls != 0 {
		t.Errorf("no portfolios, provider must not be called, got %d calls", provider.calls)
	}
}

func TestApp_RunOnce_WarmsPriceCache(t *testing.T) {
	st := store.NewMemoryStore()
	seedMultiSplit(t, st)

	cache := pricecache.NewMemory(30)
	provider := &mockProvider{
		name:   "mock",
		quotes: map[string]core.Quote{"SOXL": {Symbol: "SOXL", Price: 98}},
	}
	a := New(testConfig(), st, cache, provider, nil)
	a.SetHistorySource(&mockHistory{closes: map[string][]core.DailyClose{
		"SOXL": {
			{Symbol: "SOXL", Date: "2026-08-27", Close: 97},
			{Symbol: "SOXL", Date: "2026-08-28", Close: 98},
		},
	}})

	a.RunOnce(context.Background())

	dates := pricecache.RecentDates(context.Background(), cache, "SOXL", 5)
	if len(dates) != 2 || dates[0] != "2026-08-28" {
		t.Errorf("cache not warmed: %v", dates)
	}
}

func TestApp_SeedPortfolios(t *testing.T) {
	cfg := testConfig()
	cfg.Portfolios = []config.PortfolioConfig{{
		ID:            "p1",
		Name:          "soxl ladder",
		Strategy:      "multi_split",
		OneTimeAmount: 1000,
		MultiSplit: &config.MultiSplitSection{
			TargetStock:      "SOXL",
			TargetReturnRate: 8,
			SplitCount:       10,
		},
	}}

	st := store.NewMemoryStore()
	a := New(cfg, st, nil, &mockProvider{name: "mock"}, nil)
	ctx := context.Background()

	if err := a.SeedPortfolios(ctx); err != nil {
		t.Fatal(err)
	}

	p, err := st.GetPortfolio(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if p.MultiSplit == nil || p.MultiSplit.SplitCount != 10 {
		t.Errorf("seed not stored: %+v", p)
	}

	// Re-seeding keeps the engine's stop-loss flag.
	if err := st.SetQuarterMode(ctx, "p1", true); err != nil {
		t.Fatal(err)
	}
	if err := a.SeedPortfolios(ctx); err != nil {
		t.Fatal(err)
	}
	p, _ = st.GetPortfolio(ctx, "p1")
	if !p.IsQuarterMode {
		t.Error("re-seeding must not clear quarter mode")
	}
}

func TestApp_StartStop(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &mockProvider{name: "mock"}
	a := New(testConfig(), st, nil, provider, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := a.Start(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
