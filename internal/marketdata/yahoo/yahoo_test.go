package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jinsol-dev/ladder/internal/marketdata"
)

func TestYahoo_ImplementsProvider(t *testing.T) {
	var _ marketdata.Provider = (*Yahoo)(nil)
	var _ marketdata.HistorySource = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New()
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

// chartJSON renders a minimal chart payload. closes uses "null" strings
// for missing bars.
func chartJSON(timestamps []int64, closes []string) string {
	ts := make([]string, len(timestamps))
	for i, v := range timestamps {
		ts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`,
		strings.Join(ts, ","), strings.Join(closes, ","))
}

func testServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		symbol := parts[len(parts)-1]
		body, ok := bodies[symbol]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}))
}

func dayStamps(n int) []int64 {
	base := time.Date(2026, 8, 1, 14, 30, 0, 0, time.UTC)
	out := make([]int64, n)
	for i := range out {
		out[i] = base.AddDate(0, 0, i).Unix()
	}
	return out
}

func TestYahoo_GetPrices(t *testing.T) {
	srv := testServer(t, map[string]string{
		"SPY": chartJSON(dayStamps(5), []string{"10", "11", "12", "13", "14"}),
	})
	defer srv.Close()

	y := New(WithBaseURL(srv.URL), WithMAPeriods([]int{3}))

	quotes, err := y.GetPrices(context.Background(), []string{"SPY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q, ok := quotes["SPY"]
	if !ok {
		t.Fatal("expected SPY quote")
	}
	if q.Price != 14 {
		t.Errorf("price = %f, want last close 14", q.Price)
	}
	// MA(3) over [12,13,14] = 13
	if math.Abs(q.MA(3)-13) > 1e-9 {
		t.Errorf("MA(3) = %f, want 13", q.MA(3))
	}
}

func TestYahoo_SkipsNullCloses(t *testing.T) {
	srv := testServer(t, map[string]string{
		"SPY": chartJSON(dayStamps(5), []string{"10", "null", "12", "null", "14"}),
	})
	defer srv.Close()

	y := New(WithBaseURL(srv.URL))

	closes, err := y.FetchDailyCloses(context.Background(), "SPY", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closes) != 3 {
		t.Fatalf("expected 3 non-null closes, got %d", len(closes))
	}
	if closes[0].Close != 10 || closes[2].Close != 14 {
		t.Errorf("unexpected closes: %+v", closes)
	}
	if closes[0].Date != "2026-08-01" {
		t.Errorf("date = %s, want 2026-08-01", closes[0].Date)
	}
}

func TestYahoo_FetchDailyCloses_Limit(t *testing.T) {
	srv := testServer(t, map[string]string{
		"SPY": chartJSON(dayStamps(5), []string{"10", "11", "12", "13", "14"}),
	})
	defer srv.Close()

	y := New(WithBaseURL(srv.URL))
	closes, err := y.FetchDailyCloses(context.Background(), "SPY", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closes) != 2 {
		t.Fatalf("expected 2 closes, got %d", len(closes))
	}
	if closes[0].Close != 13 || closes[1].Close != 14 {
		t.Errorf("expected the most recent closes, got %+v", closes)
	}
}

func TestYahoo_PartialResults(t *testing.T) {
	srv := testServer(t, map[string]string{
		"SPY": chartJSON(dayStamps(3), []string{"10", "11", "12"}),
		// NOPE is absent: server answers 404
	})
	defer srv.Close()

	y := New(WithBaseURL(srv.URL))

	quotes, err := y.GetPrices(context.Background(), []string{"SPY", "NOPE"})
	if err != nil {
		t.Fatalf("partial failure must not error: %v", err)
	}
	if _, ok := quotes["SPY"]; !ok {
		t.Error("expected SPY in partial result")
	}
	if _, ok := quotes["NOPE"]; ok {
		t.Error("failed symbol must be absent, not zero-valued")
	}
}

func TestYahoo_AllSymbolsFail(t *testing.T) {
	srv := testServer(t, map[string]string{})
	defer srv.Close()

	y := New(WithBaseURL(srv.URL))
	quotes, err := y.GetPrices(context.Background(), []string{"NOPE"})
	if err == nil {
		t.Error("wholesale failure should surface an error")
	}
	if len(quotes) != 0 {
		t.Errorf("expected empty map, got %d quotes", len(quotes))
	}
}

func TestYahoo_InvalidSymbol(t *testing.T) {
	y := New()
	if _, _, err := y.fetchChart(context.Background(), "../etc/passwd"); err == nil {
		t.Error("expected invalid symbol error")
	}
}
