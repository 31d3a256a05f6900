package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jinsol-dev/ladder/internal/core"
	"github.com/jinsol-dev/ladder/internal/engine"
	"github.com/jinsol-dev/ladder/internal/ledger"
	"github.com/jinsol-dev/ladder/internal/logger"
	"github.com/jinsol-dev/ladder/internal/performance"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute and print today's order plans once",
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := rt.app.SeedPortfolios(ctx); err != nil {
		return fmt.Errorf("seeding portfolios: %w", err)
	}

	portfolios, err := rt.store.ListPortfolios(ctx)
	if err != nil {
		return fmt.Errorf("listing portfolios: %w", err)
	}
	if len(portfolios) == 0 {
		fmt.Println("no portfolios configured")
		return nil
	}

	symbols := collectSymbols(portfolios)
	quotes, err := rt.provider.GetPrices(ctx, symbols)
	if err != nil {
		log.Warn("quote fetch failed, planning from ledger only")
	}

	eng := engine.New(rt.store, rt.cache, log)
	for _, p := range portfolios {
		printPortfolio(p, eng.Recompute(ctx, p, quotes), quotes)
	}
	return nil
}

func collectSymbols(portfolios []core.Portfolio) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range portfolios {
		for _, s := range p.Symbols() {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func printPortfolio(p core.Portfolio, plan core.OrderPlan, quotes map[string]core.Quote) {
	fmt.Printf("\n%s (%s)\n", p.Name, p.Strategy)

	holdings := ledger.Compute(p.Trades)
	summary := performance.Calculate(holdings, p.Trades, quotes)
	fmt.Printf("  invested: %.2f  valuation: %.2f  yield: %.2f%%\n",
		summary.InvestedAmount, summary.CurrentValuation, summary.YieldRate)

	if plan.Phase != core.PhaseNone {
		fmt.Printf("  phase: %s", plan.Phase)
		if plan.Section > 0 {
			fmt.Printf(" (section %d)", plan.Section)
		}
		fmt.Println()
	}

	if plan.IsEmpty() {
		fmt.Println("  no orders today")
		return
	}
	for _, leg := range plan.Legs {
		if leg.Price <= 0 {
			fmt.Printf("  %-11s %s x %v at market close\n", leg.Label, leg.Stock, leg.Quantity)
			continue
		}
		fmt.Printf("  %-11s %s x %v @ %.2f\n", leg.Label, leg.Stock, leg.Quantity, leg.Price)
	}
}
