package models

import (
	"testing"
	"time"
)

func TestFunnelConversionPct(t *testing.T) {
	funnel := EnrollmentFunnel{Screened: 400, Consented: 320, Randomized: 100}
	if got := funnel.ConversionPct(); got != 25 {
		t.Fatalf("expected 25%% conversion, got %v", got)
	}

	empty := EnrollmentFunnel{}
	if got := empty.ConversionPct(); got != 0 {
		t.Fatalf("expected 0 conversion for empty funnel, got %v", got)
	}
}

func TestFinancialVariancePct(t *testing.T) {
	summary := FinancialSummary{BudgetTotalUSD: 1_000_000, ForecastUSD: 1_150_000}
	if got := summary.VariancePct(); got != 15 {
		t.Fatalf("expected 15%% overrun, got %v", got)
	}

	under := FinancialSummary{BudgetTotalUSD: 1_000_000, ForecastUSD: 900_000}
	if got := under.VariancePct(); got != -10 {
		t.Fatalf("expected -10%% variance, got %v", got)
	}

	zero := FinancialSummary{}
	if got := zero.VariancePct(); got != 0 {
		t.Fatalf("expected 0 variance without a budget, got %v", got)
	}
}

func TestKRISeriesBreached(t *testing.T) {
	day := 24 * time.Hour
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	series := KRISeries{
		Name:      "query rate",
		Threshold: 3.0,
		Points: []KRIPoint{
			{Date: base, Value: 1.2},
			{Date: base.Add(7 * day), Value: 2.4},
			{Date: base.Add(14 * day), Value: 3.6},
		},
	}

	latest, ok := series.Latest()
	if !ok || latest.Value != 3.6 {
		t.Fatalf("unexpected latest point: %+v ok=%v", latest, ok)
	}
	if !series.Breached() {
		t.Fatal("expected series above threshold to report breached")
	}

	series.Points = series.Points[:1]
	if series.Breached() {
		t.Fatal("expected series below threshold to report not breached")
	}

	if (KRISeries{}).Breached() {
		t.Fatal("expected empty series to report not breached")
	}
}

func TestSeverityRankOrdersHighestFirst(t *testing.T) {
	order := []string{"critical", "high", "medium", "low", "unknown"}
	for i := 1; i < len(order); i++ {
		if SeverityRank(order[i-1]) >= SeverityRank(order[i]) {
			t.Fatalf("expected %q to rank before %q", order[i-1], order[i])
		}
	}
}

func TestSynthesisConfidencePct(t *testing.T) {
	if got := (Synthesis{Confidence: 0.87}).ConfidencePct(); got != 87 {
		t.Fatalf("expected fraction to scale to 87, got %v", got)
	}
	if got := (Synthesis{Confidence: 87}).ConfidencePct(); got != 87 {
		t.Fatalf("expected pre-scaled value to pass through, got %v", got)
	}
}
