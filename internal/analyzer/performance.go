package analyzer

import (
	"math"
	"sort"
	"strings"

	"github.com/ignite/affiliate-monitor/internal/metrics"
	"github.com/ignite/affiliate-monitor/internal/source"
	"github.com/ignite/affiliate-monitor/internal/trend"
)

// RiskLevel grades how exposed an entity's spend is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Config holds the scoring weights, bands and caps. Everything that looks
// like a magic number in the formulas lives here instead.
type Config struct {
	ROIWeight     float64 `yaml:"roi_weight"`     // default 0.40
	OrdersWeight  float64 `yaml:"orders_weight"`  // default 0.30
	RevenueWeight float64 `yaml:"revenue_weight"` // default 0.30

	ROILowThreshold  float64 `yaml:"roi_low_threshold"`  // default 20 (%)
	ROIHighThreshold float64 `yaml:"roi_high_threshold"` // default 50 (%)

	ReferenceOrders  float64 `yaml:"reference_orders"`  // volume cap, default 100
	ReferenceRevenue float64 `yaml:"reference_revenue"` // revenue cap, default 50000

	MinReliableOrders int     `yaml:"min_reliable_orders"` // default 10
	MaterialSpend     float64 `yaml:"material_spend"`      // default 5000
}

// DefaultConfig returns the stock scoring configuration.
func DefaultConfig() Config {
	return Config{
		ROIWeight:         0.40,
		OrdersWeight:      0.30,
		RevenueWeight:     0.30,
		ROILowThreshold:   20,
		ROIHighThreshold:  50,
		ReferenceOrders:   100,
		ReferenceRevenue:  50000,
		MinReliableOrders: 10,
		MaterialSpend:     5000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ROIWeight == 0 && c.OrdersWeight == 0 && c.RevenueWeight == 0 {
		c.ROIWeight, c.OrdersWeight, c.RevenueWeight = def.ROIWeight, def.OrdersWeight, def.RevenueWeight
	}
	if c.ROILowThreshold == 0 {
		c.ROILowThreshold = def.ROILowThreshold
	}
	if c.ROIHighThreshold == 0 {
		c.ROIHighThreshold = def.ROIHighThreshold
	}
	if c.ReferenceOrders == 0 {
		c.ReferenceOrders = def.ReferenceOrders
	}
	if c.ReferenceRevenue == 0 {
		c.ReferenceRevenue = def.ReferenceRevenue
	}
	if c.MinReliableOrders == 0 {
		c.MinReliableOrders = def.MinReliableOrders
	}
	if c.MaterialSpend == 0 {
		c.MaterialSpend = def.MaterialSpend
	}
	return c
}

// SubIDPerformance is the scored view of one sub-id.
type SubIDPerformance struct {
	SubID            string          `json:"sub_id"`
	Orders           int             `json:"orders"`
	Units            int             `json:"units"`
	Revenue          float64         `json:"revenue"`
	AdSpend          float64         `json:"ad_spend"`
	ROI              float64         `json:"roi"`
	PerformanceScore float64         `json:"performance_score"` // 0-100
	RiskLevel        RiskLevel       `json:"risk_level"`
	Trend            trend.Direction `json:"trend"`
	ConfidenceScore  float64         `json:"confidence_score"` // 0-100
	Rank             int             `json:"rank"`
}

// PlatformPerformance is the scored view of one marketplace platform.
type PlatformPerformance struct {
	Platform         source.Platform `json:"platform"`
	Orders           int             `json:"orders"`
	Revenue          float64         `json:"revenue"`
	AdSpend          float64         `json:"ad_spend"`
	ROI              float64         `json:"roi"`
	PerformanceScore float64         `json:"performance_score"`
	RiskLevel        RiskLevel       `json:"risk_level"`
	Rank             int             `json:"rank"`
}

// Analyzer scores entities against the configured bands. Stateless; one
// value per analysis pass.
type Analyzer struct {
	cfg Config
}

// New creates an analyzer, filling zero-valued config fields with defaults.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg.withDefaults()}
}

// Config exposes the effective configuration (after default filling).
func (a *Analyzer) Config() Config { return a.cfg }

// AnalyzeSubIDs scores and ranks every sub-id rollup.
func (a *Analyzer) AnalyzeSubIDs(summary *metrics.Summary) []SubIDPerformance {
	out := make([]SubIDPerformance, 0, len(summary.SubIDs))
	for _, st := range summary.SubIDs {
		perf := SubIDPerformance{
			SubID:            st.SubID,
			Orders:           st.Orders,
			Units:            st.Units,
			Revenue:          st.Revenue,
			AdSpend:          st.AdSpend,
			ROI:              st.ROI,
			PerformanceScore: a.CompositeScore(st.ROI, float64(st.Orders), st.Revenue),
			RiskLevel:        a.RiskFor(st.ROI, st.Orders, st.AdSpend),
			Trend:            trend.TrendStable,
			ConfidenceScore:  a.confidenceFor(st.Orders, st.ActiveDays),
		}
		if series, ok := summary.SubIDDailyRevenue[strings.ToLower(st.SubID)]; ok {
			perf.Trend = trend.Detect("Revenue", series).Trend
		}
		out = append(out, perf)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PerformanceScore > out[j].PerformanceScore })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// AnalyzePlatforms scores and ranks the marketplace platforms.
func (a *Analyzer) AnalyzePlatforms(summary *metrics.Summary) []PlatformPerformance {
	out := make([]PlatformPerformance, 0, len(summary.Platforms))
	for _, p := range summary.Platforms {
		out = append(out, PlatformPerformance{
			Platform:         p.Platform,
			Orders:           p.Orders,
			Revenue:          p.Revenue,
			AdSpend:          p.AdSpend,
			ROI:              p.ROI,
			PerformanceScore: a.CompositeScore(p.ROI, float64(p.Orders), p.Revenue),
			RiskLevel:        a.RiskFor(p.ROI, p.Orders, p.AdSpend),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PerformanceScore > out[j].PerformanceScore })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// CompositeScore blends the ROI band, order volume and revenue components
// with the configured weights into a 0-100 score.
func (a *Analyzer) CompositeScore(roi, orders, revenue float64) float64 {
	roiScore := a.roiBandScore(roi)
	orderScore := math.Min(orders/a.cfg.ReferenceOrders, 1) * 100
	revenueScore := math.Min(revenue/a.cfg.ReferenceRevenue, 1) * 100

	score := a.cfg.ROIWeight*roiScore + a.cfg.OrdersWeight*orderScore + a.cfg.RevenueWeight*revenueScore
	return math.Max(0, math.Min(100, score))
}

// roiBandScore maps ROI onto 0-100 piecewise linearly: 0 at or below zero
// ROI, 50 at the low threshold, 100 at or above the high threshold.
func (a *Analyzer) roiBandScore(roi float64) float64 {
	switch {
	case roi <= 0:
		return 0
	case roi <= a.cfg.ROILowThreshold:
		return roi / a.cfg.ROILowThreshold * 50
	case roi >= a.cfg.ROIHighThreshold:
		return 100
	default:
		return 50 + (roi-a.cfg.ROILowThreshold)/(a.cfg.ROIHighThreshold-a.cfg.ROILowThreshold)*50
	}
}

// RiskFor applies the risk rules: negative ROI, or meaningful spend with
// almost no orders, is high; weak ROI or thin volume is medium.
func (a *Analyzer) RiskFor(roi float64, orders int, spend float64) RiskLevel {
	if roi < 0 || (orders < a.cfg.MinReliableOrders && spend > a.cfg.MaterialSpend) {
		return RiskHigh
	}
	if roi < a.cfg.ROILowThreshold || orders < a.cfg.MinReliableOrders {
		return RiskMedium
	}
	return RiskLow
}

// confidenceFor rewards order volume and history depth. Wider band than
// the budget allocator's.
func (a *Analyzer) confidenceFor(orders, activeDays int) float64 {
	score := 50.0
	score += math.Min(float64(orders), 50) * 0.5 // up to +25
	score += math.Min(float64(activeDays), 30)   // up to +30
	return math.Max(40, math.Min(95, score))
}

// PercentileRank places current within the sorted historical distribution,
// 0-100. Values equal to current count half, so a value sitting exactly at
// the median reads ~50 rather than 0 or 100.
func PercentileRank(history []float64, current float64) float64 {
	if len(history) == 0 {
		return 0
	}
	var below, equal float64
	for _, v := range history {
		switch {
		case v < current:
			below++
		case v == current:
			equal++
		}
	}
	return (below + equal/2) / float64(len(history)) * 100
}

// Benchmark compares today's value of a metric against its own history.
type Benchmark struct {
	Metric         string  `json:"metric"`
	CurrentValue   float64 `json:"current_value"`
	HistoricalMean float64 `json:"historical_mean"`
	PercentileRank float64 `json:"percentile_rank"`
}

// BenchmarkDaily ranks the latest daily value of each tracked metric
// against the full history of that same metric.
func BenchmarkDaily(daily []metrics.DailyMetric) []Benchmark {
	if len(daily) == 0 {
		return nil
	}

	extract := func(f func(metrics.DailyMetric) float64) (history []float64, current float64) {
		history = make([]float64, len(daily))
		for i, d := range daily {
			history[i] = f(d)
		}
		return history, history[len(history)-1]
	}

	mean := func(vals []float64) float64 {
		var sum float64
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals))
	}

	out := make([]Benchmark, 0, 3)
	for _, m := range []struct {
		name string
		f    func(metrics.DailyMetric) float64
	}{
		{"Revenue", func(d metrics.DailyMetric) float64 { return d.TotalRevenue }},
		{"ROI", func(d metrics.DailyMetric) float64 { return d.ROI }},
		{"Orders", func(d metrics.DailyMetric) float64 { return float64(d.Orders) }},
	} {
		history, current := extract(m.f)
		out = append(out, Benchmark{
			Metric:         m.name,
			CurrentValue:   current,
			HistoricalMean: mean(history),
			PercentileRank: PercentileRank(history, current),
		})
	}
	return out
}
