package analyzer

import (
	"math"
	"testing"

	"github.com/ignite/affiliate-monitor/internal/metrics"
)

func TestRoiBandScore(t *testing.T) {
	a := New(Config{})
	tests := []struct {
		name string
		roi  float64
		want float64
	}{
		{name: "Negative ROI", roi: -10, want: 0},
		{name: "Zero ROI", roi: 0, want: 0},
		{name: "Halfway to low threshold", roi: 10, want: 25},
		{name: "At low threshold", roi: 20, want: 50},
		{name: "Between bands", roi: 35, want: 75},
		{name: "At high threshold", roi: 50, want: 100},
		{name: "Above high threshold", roi: 120, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.roiBandScore(tt.roi); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("roiBandScore(%v) = %v, want %v", tt.roi, got, tt.want)
			}
		})
	}
}

func TestCompositeScoreWeights(t *testing.T) {
	a := New(Config{})

	// everything maxed: 0.4*100 + 0.3*100 + 0.3*100 = 100
	if got := a.CompositeScore(60, 150, 80000); got != 100 {
		t.Errorf("maxed score = %v, want 100", got)
	}
	// ROI maxed, no volume or revenue: 0.4*100 = 40
	if got := a.CompositeScore(60, 0, 0); got != 40 {
		t.Errorf("ROI-only score = %v, want 40", got)
	}
	// zeroed input
	if got := a.CompositeScore(0, 0, 0); got != 0 {
		t.Errorf("zero score = %v, want 0", got)
	}
}

func TestRiskFor(t *testing.T) {
	a := New(Config{})
	tests := []struct {
		name   string
		roi    float64
		orders int
		spend  float64
		want   RiskLevel
	}{
		{name: "Negative ROI is high", roi: -5, orders: 100, spend: 100, want: RiskHigh},
		{name: "Material spend with no volume is high", roi: 30, orders: 4, spend: 8000, want: RiskHigh},
		{name: "Weak ROI is medium", roi: 10, orders: 50, spend: 1000, want: RiskMedium},
		{name: "Thin volume is medium", roi: 40, orders: 5, spend: 100, want: RiskMedium},
		{name: "Healthy is low", roi: 40, orders: 50, spend: 1000, want: RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.RiskFor(tt.roi, tt.orders, tt.spend); got != tt.want {
				t.Errorf("RiskFor(%v, %d, %v) = %s, want %s", tt.roi, tt.orders, tt.spend, got, tt.want)
			}
		})
	}
}

func TestAnalyzeSubIDsRanking(t *testing.T) {
	summary := &metrics.Summary{
		SubIDs: []metrics.SubIDStats{
			{SubID: "strong", Orders: 80, Revenue: 40000, AdSpend: 25000, ROI: 60, ActiveDays: 20},
			{SubID: "weak", Orders: 5, Revenue: 500, AdSpend: 600, ROI: -16.7, ActiveDays: 3},
		},
	}

	a := New(Config{})
	perfs := a.AnalyzeSubIDs(summary)
	if len(perfs) != 2 {
		t.Fatalf("expected 2 performances, got %d", len(perfs))
	}
	if perfs[0].SubID != "strong" || perfs[0].Rank != 1 {
		t.Errorf("top rank = %s (%d), want strong (1)", perfs[0].SubID, perfs[0].Rank)
	}
	if perfs[1].RiskLevel != RiskHigh {
		t.Errorf("weak risk = %s, want high (negative ROI)", perfs[1].RiskLevel)
	}
	if perfs[0].ConfidenceScore <= perfs[1].ConfidenceScore {
		t.Errorf("confidence should reward volume and history: %v vs %v",
			perfs[0].ConfidenceScore, perfs[1].ConfidenceScore)
	}
}

func TestPercentileRank(t *testing.T) {
	history := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		name    string
		current float64
		want    float64
	}{
		{name: "Above all", current: 60, want: 100},
		{name: "Below all", current: 5, want: 0},
		{name: "Median value", current: 30, want: 50},
		{name: "Between points", current: 35, want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentileRank(history, tt.current); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PercentileRank(%v) = %v, want %v", tt.current, got, tt.want)
			}
		})
	}

	if got := PercentileRank(nil, 10); got != 0 {
		t.Errorf("empty history rank = %v, want 0", got)
	}
}

func TestBenchmarkDaily(t *testing.T) {
	daily := []metrics.DailyMetric{
		{Date: "2024-11-01", TotalRevenue: 100, ROI: 10, Orders: 1},
		{Date: "2024-11-02", TotalRevenue: 200, ROI: 20, Orders: 2},
		{Date: "2024-11-03", TotalRevenue: 300, ROI: 30, Orders: 3},
	}

	benchmarks := BenchmarkDaily(daily)
	if len(benchmarks) != 3 {
		t.Fatalf("expected 3 benchmarks, got %d", len(benchmarks))
	}
	for _, b := range benchmarks {
		// the latest day is the best in this history
		if b.PercentileRank < 80 {
			t.Errorf("%s rank = %v, want high for best-day current", b.Metric, b.PercentileRank)
		}
	}

	if BenchmarkDaily(nil) != nil {
		t.Error("empty history should benchmark to nil")
	}
}
