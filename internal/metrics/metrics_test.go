package metrics

import (
	"testing"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(mfs) == 0 {
		t.Error("expected some metrics to be registered")
	}
}

func TestRegistry_RecordPlan(t *testing.T) {
	reg := NewRegistry()

	reg.RecordPlan("multi_split", "first")
	reg.RecordRefreshCycle(0.12)
	reg.RecordQuarterTransition()
	reg.RecordProviderError("yahoo")
	reg.SetPortfoliosTracked(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	want := map[string]bool{
		"ladder_plans_computed_total":      false,
		"ladder_refresh_cycles_total":      false,
		"ladder_quarter_transitions_total": false,
		"ladder_provider_errors_total":     false,
		"ladder_portfolios_tracked":        false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected metric %s to be gathered", name)
		}
	}
}

func TestRegistry_RecordDispatch(t *testing.T) {
	reg := NewRegistry()

	reg.RecordDispatch("telegram", "ok")
	reg.RecordDispatch("telegram", "error")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	for _, mf := range mfs {
		if mf.GetName() == "ladder_plans_dispatched_total" {
			if len(mf.GetMetric()) != 2 {
				t.Errorf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			return
		}
	}
	t.Error("expected ladder_plans_dispatched_total metric")
}
