// Package sqlite implements the portfolio store and the daily-close
// price cache on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/jinsol-dev/ladder/internal/core"
)

// Store implements store.Store and pricecache.Cache backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and if needed creates) the database at path and ensures
// the schema exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = "./data/ladder.db"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode for concurrent readers alongside the single writer.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database at %s: %w", path, err)
	}

	// The Go driver benefits from a single connection with SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	logger.Info("sqlite store opened", zap.String("path", path))
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS portfolios (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		one_time_amount REAL NOT NULL,
		fee_rate REAL NOT NULL,
		start_date TEXT NOT NULL,
		strategy_kind TEXT NOT NULL,
		strategy_json TEXT NOT NULL,
		is_quarter_mode INTEGER NOT NULL DEFAULT 0,
		created_seq INTEGER
	);
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		stock TEXT NOT NULL,
		trade_type TEXT NOT NULL,
		price REAL NOT NULL,
		quantity REAL NOT NULL,
		fee REAL NOT NULL,
		market_on_close INTEGER NOT NULL DEFAULT 0,
		seq INTEGER,
		FOREIGN KEY (portfolio_id) REFERENCES portfolios(id)
	);
	CREATE INDEX IF NOT EXISTS idx_trades_portfolio ON trades(portfolio_id, trade_date, seq);
	CREATE TABLE IF NOT EXISTS daily_closes (
		symbol TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		close REAL NOT NULL,
		PRIMARY KEY (symbol, trade_date)
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// strategyPayload is the persisted JSON form of the variant-specific
// strategy configuration.
type strategyPayload struct {
	MultiSplit *core.MultiSplitConfig `json:"multiSplit,omitempty"`
	Section    *core.SectionConfig    `json:"section,omitempty"`
}

func (s *Store) ListPortfolios(ctx context.Context) ([]core.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, one_time_amount, fee_rate, start_date, strategy_kind, strategy_json, is_quarter_mode
		FROM portfolios ORDER BY created_seq`)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var out []core.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}

	for i := range out {
		trades, err := s.loadTrades(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Trades = trades
	}
	return out, nil
}

func (s *Store) GetPortfolio(ctx context.Context, id string) (core.Portfolio, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, one_time_amount, fee_rate, start_date, strategy_kind, strategy_json, is_quarter_mode
		FROM portfolios WHERE id = ?`, id)

	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Portfolio{}, core.ErrPortfolioNotFound
	}
	if err != nil {
		return core.Portfolio{}, core.WrapError(core.ErrStoreFailed, err)
	}

	p.Trades, err = s.loadTrades(ctx, id)
	if err != nil {
		return core.Portfolio{}, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(r rowScanner) (core.Portfolio, error) {
	var p core.Portfolio
	var strategyJSON string
	var quarter int

	err := r.Scan(&p.ID, &p.Name, &p.OneTimeAmount, &p.FeeRate, &p.StartDate,
		(*string)(&p.Strategy), &strategyJSON, &quarter)
	if err != nil {
		return core.Portfolio{}, err
	}
	p.IsQuarterMode = quarter != 0

	var payload strategyPayload
	if err := json.Unmarshal([]byte(strategyJSON), &payload); err != nil {
		return core.Portfolio{}, fmt.Errorf("decoding strategy config: %w", err)
	}
	p.MultiSplit = payload.MultiSplit
	p.Section = payload.Section
	return p, nil
}

func (s *Store) loadTrades(ctx context.Context, portfolioID string) ([]core.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trade_date, stock, trade_type, price, quantity, fee, market_on_close
		FROM trades WHERE portfolio_id = ? ORDER BY trade_date, seq`, portfolioID)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var trades []core.Trade
	for rows.Next() {
		var t core.Trade
		var moc int
		if err := rows.Scan(&t.ID, &t.Date, &t.Stock, (*string)(&t.Type),
			&t.Price, &t.Quantity, &t.Fee, &moc); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		t.MarketOnClose = moc != 0
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *Store) SavePortfolio(ctx context.Context, p core.Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	payload, err := json.Marshal(strategyPayload{MultiSplit: p.MultiSplit, Section: p.Section})
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolios (id, name, one_time_amount, fee_rate, start_date, strategy_kind, strategy_json, is_quarter_mode, created_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(created_seq), 0) + 1 FROM portfolios))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			one_time_amount = excluded.one_time_amount,
			fee_rate = excluded.fee_rate,
			start_date = excluded.start_date,
			strategy_kind = excluded.strategy_kind,
			strategy_json = excluded.strategy_json,
			is_quarter_mode = excluded.is_quarter_mode`,
		p.ID, p.Name, p.OneTimeAmount, p.FeeRate, p.StartDate,
		string(p.Strategy), string(payload), boolToInt(p.IsQuarterMode))
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

func (s *Store) DeletePortfolio(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrPortfolioNotFound
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM trades WHERE portfolio_id = ?`, id)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

func (s *Store) AppendTrade(ctx context.Context, portfolioID string, t core.Trade) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, portfolio_id, trade_date, stock, trade_type, price, quantity, fee, market_on_close, seq)
		SELECT ?, id, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM trades WHERE portfolio_id = ?)
		FROM portfolios WHERE id = ?`,
		t.ID, t.Date, t.Stock, string(t.Type), t.Price, t.Quantity, t.Fee,
		boolToInt(t.MarketOnClose), portfolioID, portfolioID)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrPortfolioNotFound
	}
	return nil
}

func (s *Store) DeleteTrade(ctx context.Context, portfolioID, tradeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM trades WHERE portfolio_id = ? AND id = ?`, portfolioID, tradeID)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrTradeNotFound
	}
	return nil
}

func (s *Store) SetQuarterMode(ctx context.Context, portfolioID string, on bool) error {
	p, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return err
	}
	p.IsQuarterMode = on
	if p.MultiSplit != nil {
		p.MultiSplit.QuarterStopLossActive = on
	}

	payload, err := json.Marshal(strategyPayload{MultiSplit: p.MultiSplit, Section: p.Section})
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE portfolios SET is_quarter_mode = ?, strategy_json = ? WHERE id = ?`,
		boolToInt(on), string(payload), portfolioID)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	s.logger.Info("quarter mode updated",
		zap.String("portfolio", portfolioID),
		zap.Bool("on", on),
	)
	return nil
}

// UpsertCloses implements pricecache.Cache.
func (s *Store) UpsertCloses(ctx context.Context, closes []core.DailyClose) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_closes (symbol, trade_date, close) VALUES (?, ?, ?)
		ON CONFLICT(symbol, trade_date) DO UPDATE SET close = excluded.close`)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	defer stmt.Close()

	for _, c := range closes {
		if c.Symbol == "" || c.Date == "" || c.Close <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, c.Symbol, c.Date, c.Close); err != nil {
			return core.WrapError(core.ErrStoreFailed, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

// RecentCloses implements pricecache.Cache, newest first.
func (s *Store) RecentCloses(ctx context.Context, symbol string, n int) ([]core.DailyClose, error) {
	if n <= 0 {
		n = -1 // SQLite: negative LIMIT means no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, trade_date, close FROM daily_closes
		WHERE symbol = ? ORDER BY trade_date DESC LIMIT ?`, symbol, n)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var out []core.DailyClose
	for rows.Next() {
		var c core.DailyClose
		if err := rows.Scan(&c.Symbol, &c.Date, &c.Close); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
