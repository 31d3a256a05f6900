package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/jinsol-dev/ladder/internal/core"
)

// History archives one JSON document per portfolio per day under
// plans/<date>/<portfolioID>.json.
type History struct {
	backend Backend
}

// NewHistory creates a plan history over the given backend.
func NewHistory(backend Backend) *History {
	return &History{backend: backend}
}

func planPath(date, portfolioID string) string {
	return path.Join("plans", date, portfolioID+".json")
}

// SavePlan archives the plan under its generation date. Re-archiving the
// same portfolio and day replaces the earlier document.
func (h *History) SavePlan(ctx context.Context, plan core.OrderPlan) error {
	if plan.PortfolioID == "" {
		return core.WrapError(core.ErrArchiveFailed, errors.New("plan has no portfolio id"))
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}

	date := plan.GeneratedAt.Format("2006-01-02")
	if err := h.backend.Write(ctx, planPath(date, plan.PortfolioID), data); err != nil {
		return core.WrapError(core.ErrArchiveFailed,
			fmt.Errorf("writing plan for %s: %w", plan.PortfolioID, err))
	}
	return nil
}

// LoadPlan reads back one archived plan.
func (h *History) LoadPlan(ctx context.Context, date, portfolioID string) (core.OrderPlan, error) {
	data, err := h.backend.Read(ctx, planPath(date, portfolioID))
	if err != nil {
		return core.OrderPlan{}, core.WrapError(core.ErrArchiveFailed,
			fmt.Errorf("reading plan for %s on %s: %w", portfolioID, date, err))
	}

	var plan core.OrderPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return core.OrderPlan{}, core.WrapError(core.ErrArchiveFailed, err)
	}
	return plan, nil
}

// ListDates returns the dates that have at least one archived plan,
// oldest first.
func (h *History) ListDates(ctx context.Context) ([]string, error) {
	paths, err := h.backend.List(ctx, "plans")
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}

	seen := make(map[string]struct{})
	var dates []string
	for _, p := range paths {
		parts := strings.Split(p, "/")
		if len(parts) < 3 {
			continue
		}
		if _, ok := seen[parts[1]]; ok {
			continue
		}
		seen[parts[1]] = struct{}{}
		dates = append(dates, parts[1])
	}
	sort.Strings(dates)
	return dates, nil
}
