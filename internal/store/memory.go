package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jinsol-dev/ladder/internal/core"
)

// MemoryStore is an in-memory portfolio store. It backs tests and
// config-seeded setups that run without a database file.
type MemoryStore struct {
	mu         sync.RWMutex
	portfolios map[string]*core.Portfolio
	order      []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios: make(map[string]*core.Portfolio),
	}
}

func (m *MemoryStore) ListPortfolios(ctx context.Context) ([]core.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]core.Portfolio, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, clonePortfolio(m.portfolios[id]))
	}
	return result, nil
}

func (m *MemoryStore) GetPortfolio(ctx context.Context, id string) (core.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.portfolios[id]
	if !ok {
		return core.Portfolio{}, core.ErrPortfolioNotFound
	}
	return clonePortfolio(p), nil
}

func (m *MemoryStore) SavePortfolio(ctx context.Context, p core.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	existing, ok := m.portfolios[p.ID]
	if ok {
		// Trades are managed through AppendTrade; keep the recorded ones.
		p.Trades = existing.Trades
	} else {
		m.order = append(m.order, p.ID)
	}
	cloned := clonePortfolio(&p)
	m.portfolios[p.ID] = &cloned
	return nil
}

func (m *MemoryStore) DeletePortfolio(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.portfolios[id]; !ok {
		return core.ErrPortfolioNotFound
	}
	delete(m.portfolios, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) AppendTrade(ctx context.Context, portfolioID string, t core.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.portfolios[portfolioID]
	if !ok {
		return core.ErrPortfolioNotFound
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	p.Trades = append(p.Trades, t)
	return nil
}

func (m *MemoryStore) DeleteTrade(ctx context.Context, portfolioID, tradeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.portfolios[portfolioID]
	if !ok {
		return core.ErrPortfolioNotFound
	}
	for i, t := range p.Trades {
		if t.ID == tradeID {
			p.Trades = append(p.Trades[:i], p.Trades[i+1:]...)
			return nil
		}
	}
	return core.ErrTradeNotFound
}

func (m *MemoryStore) SetQuarterMode(ctx context.Context, portfolioID string, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.portfolios[portfolioID]
	if !ok {
		return core.ErrPortfolioNotFound
	}
	p.IsQuarterMode = on
	if p.MultiSplit != nil {
		// Persisted mirror kept in lockstep with the authoritative flag.
		p.MultiSplit.QuarterStopLossActive = on
	}
	return nil
}

func clonePortfolio(p *core.Portfolio) core.Portfolio {
	out := *p
	out.Trades = make([]core.Trade, len(p.Trades))
	copy(out.Trades, p.Trades)
	if p.MultiSplit != nil {
		ms := *p.MultiSplit
		out.MultiSplit = &ms
	}
	if p.Section != nil {
		sec := *p.Section
		out.Section = &sec
	}
	return out
}
