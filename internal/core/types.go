package core

import "time"

// TradeType distinguishes buy and sell trades.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Trade is a single executed trade. Trades are immutable once recorded;
// the store is append-only apart from explicit deletion.
type Trade struct {
	ID            string
	Date          string // YYYY-MM-DD
	Stock         string
	Type          TradeType
	Price         float64
	Quantity      float64
	Fee           float64
	MarketOnClose bool
}

// IsValid checks if the trade has required fields.
func (t Trade) IsValid() bool {
	return t.Stock != "" && t.Date != "" && t.Price > 0 && t.Quantity > 0 &&
		(t.Type == TradeBuy || t.Type == TradeSell)
}

// Holding is a derived per-ticker position. AvgPrice is TotalCost/Quantity.
type Holding struct {
	Stock     string
	Quantity  float64
	TotalCost float64
	AvgPrice  float64
}

// Quote is a point-in-time market snapshot for one ticker.
// MovingAverages is keyed by period in trading days.
type Quote struct {
	Symbol         string
	Price          float64
	MovingAverages map[int]float64
	RSI            float64
	Time           time.Time
}

// IsValid checks if the quote carries a usable price.
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// MA returns the moving average for the given period, or 0 if absent.
func (q Quote) MA(period int) float64 {
	if q.MovingAverages == nil {
		return 0
	}
	return q.MovingAverages[period]
}

// DailyClose is one cached daily closing price.
type DailyClose struct {
	Symbol string
	Date   string // YYYY-MM-DD
	Close  float64
}

// Phase tags the multi-split strategy's current stage.
type Phase string

const (
	PhaseNone             Phase = ""
	PhaseFirst            Phase = "first"
	PhaseSecond           Phase = "second"
	PhaseQuarterCandidate Phase = "quarter_candidate"
	PhaseQuarter          Phase = "quarter"
	PhaseSection          Phase = "section"
)

// LegLabel identifies the role of an order leg within a plan.
type LegLabel string

const (
	LegLOCBuy1    LegLabel = "loc_buy_1"
	LegLOCBuy2    LegLabel = "loc_buy_2"
	LegLOCSell    LegLabel = "loc_sell"
	LegLimitSell  LegLabel = "limit_sell"
	LegMOCSell    LegLabel = "moc_sell"
	LegSectionBuy LegLabel = "section_buy"
)

// Leg is one conditional order the investor should place today.
// Quantity is whole shares for LOC and limit legs; the MOC stop-loss
// trigger leg may carry a fractional quantity rounded to two decimals.
type Leg struct {
	Label    LegLabel
	Stock    string
	Price    float64
	Quantity float64
}

// OrderPlan is the engine output for one portfolio: the phase it is in
// and the order legs to place today. A plan with no legs means "no signal".
type OrderPlan struct {
	PortfolioID   string
	PortfolioName string
	Stock         string
	Phase         Phase
	Section       int // 1..3 for section-strategy plans, else 0
	Legs          []Leg
	GeneratedAt   time.Time
}

// IsEmpty reports whether the plan carries no actionable legs.
func (p OrderPlan) IsEmpty() bool {
	return len(p.Legs) == 0
}

// StrategyKind selects which strategy variant a portfolio runs.
type StrategyKind string

const (
	StrategyMultiSplit StrategyKind = "multi_split"
	StrategySection    StrategyKind = "section"
)

// MultiSplitConfig configures the multi-split strategy variant.
type MultiSplitConfig struct {
	TargetStock      string
	TargetReturnRate float64 // percent (A)
	SplitCount       int     // total split count (a), must be > 0
	// QuarterStopLossActive mirrors Portfolio.IsQuarterMode inside the
	// persisted strategy config. IsQuarterMode is authoritative on read;
	// the store writes both together.
	QuarterStopLossActive bool
}

// BandSection is a single-MA section: active while the reference price
// is below the moving average.
type BandSection struct {
	MAPeriod     int
	Stock        string
	RSIThreshold float64
}

// RangeSection is a two-MA section: active while the reference price
// sits between the lower and upper moving averages.
type RangeSection struct {
	MAPeriodLow  int
	MAPeriodHigh int
	Stock        string
	RSIThreshold float64
}

// SectionConfig configures the moving-average interval strategy variant.
// Sections are evaluated in fixed priority order 1, 2, 3.
type SectionConfig struct {
	ReferenceStock string
	RSIEnabled     bool
	Section1       BandSection
	Section2       RangeSection
	Section3       BandSection
}

// Portfolio is one tracked strategy instance with its trade history.
type Portfolio struct {
	ID            string
	Name          string
	OneTimeAmount float64 // capital per split ("daily buy amount")
	FeeRate       float64 // percent
	StartDate     string  // YYYY-MM-DD
	Trades        []Trade
	Strategy      StrategyKind
	MultiSplit    *MultiSplitConfig
	Section       *SectionConfig
	// IsQuarterMode is the authoritative stop-loss flag. It is set by the
	// engine exactly once on the false->true transition and cleared only
	// by external action; the engine never clears it.
	IsQuarterMode bool
}

// Symbols returns every ticker the engine needs a quote for.
func (p Portfolio) Symbols() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	switch p.Strategy {
	case StrategyMultiSplit:
		if p.MultiSplit != nil {
			add(p.MultiSplit.TargetStock)
		}
	case StrategySection:
		if p.Section != nil {
			add(p.Section.ReferenceStock)
			add(p.Section.Section1.Stock)
			add(p.Section.Section2.Stock)
			add(p.Section.Section3.Stock)
		}
	}
	return out
}

// MAPeriods returns the moving-average periods the portfolio's strategy
// reads from quotes. Empty for multi-split portfolios.
func (p Portfolio) MAPeriods() []int {
	if p.Strategy != StrategySection || p.Section == nil {
		return nil
	}
	seen := make(map[int]struct{})
	var out []int
	add := func(n int) {
		if n <= 0 {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	add(p.Section.Section1.MAPeriod)
	add(p.Section.Section2.MAPeriodLow)
	add(p.Section.Section2.MAPeriodHigh)
	add(p.Section.Section3.MAPeriod)
	return out
}
