package alert

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/affiliate-monitor/internal/metrics"
)

// Type buckets an alert by what the operator should do about it.
type Type string

const (
	TypeOpportunity Type = "opportunity"
	TypeWarning     Type = "warning"
	TypeCritical    Type = "critical"
)

// Alert is one emitted anomaly. IsRead/IsDismissed belong to the consuming
// UI layer; the generator always emits them false and never mutates them.
type Alert struct {
	ID              string    `json:"id"`
	Type            Type      `json:"type"`
	Severity        float64   `json:"severity"` // |change| as a percentage
	AffectedMetric  string    `json:"affected_metric"`
	CurrentValue    float64   `json:"current_value"`
	ExpectedValue   float64   `json:"expected_value"`
	Threshold       float64   `json:"threshold"`
	Message         string    `json:"message"`
	Recommendations []string  `json:"recommendations"`
	IsRead          bool      `json:"is_read"`
	IsDismissed     bool      `json:"is_dismissed"`
	CreatedAt       time.Time `json:"created_at"`
}

// Thresholds holds the per-comparison percentage-change triggers.
type Thresholds struct {
	ROIChange        float64 `yaml:"roi_change"`        // default 20
	RevenueChange    float64 `yaml:"revenue_change"`    // default 25
	OrdersChange     float64 `yaml:"orders_change"`     // default 30
	EfficiencyChange float64 `yaml:"efficiency_change"` // default 20
	CriticalChange   float64 `yaml:"critical_change"`   // default 40
	LookbackDays     int     `yaml:"lookback_days"`     // default 14
}

// DefaultThresholds returns the stock trigger configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ROIChange:        20,
		RevenueChange:    25,
		OrdersChange:     30,
		EfficiencyChange: 20,
		CriticalChange:   40,
		LookbackDays:     14,
	}
}

// Data-quality triggers, independent of any window comparison.
const (
	staleDataMaxAge  = 3 * 24 * time.Hour
	minRecordVolume  = 50
	minSubIDCoverage = 3
)

// Generator emits alerts for one analysis pass. It holds configuration
// only; no state survives between calls.
type Generator struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewGenerator creates a generator with the given trigger thresholds.
// Zero-valued thresholds fall back to the defaults.
func NewGenerator(t Thresholds) *Generator {
	def := DefaultThresholds()
	if t.ROIChange == 0 {
		t.ROIChange = def.ROIChange
	}
	if t.RevenueChange == 0 {
		t.RevenueChange = def.RevenueChange
	}
	if t.OrdersChange == 0 {
		t.OrdersChange = def.OrdersChange
	}
	if t.EfficiencyChange == 0 {
		t.EfficiencyChange = def.EfficiencyChange
	}
	if t.CriticalChange == 0 {
		t.CriticalChange = def.CriticalChange
	}
	if t.LookbackDays == 0 {
		t.LookbackDays = def.LookbackDays
	}
	return &Generator{thresholds: t, now: time.Now}
}

// Generate compares the most recent window of the daily series against the
// immediately preceding window and emits one alert per tripped comparison,
// plus an independent data-quality alert when the snapshot itself is weak.
func (g *Generator) Generate(summary *metrics.Summary) []Alert {
	var alerts []Alert

	daily := summary.Daily
	if len(daily) > g.thresholds.LookbackDays {
		daily = daily[len(daily)-g.thresholds.LookbackDays:]
	}

	recent, previous := splitWindows(daily)
	if len(recent) > 0 && len(previous) > 0 {
		alerts = append(alerts, g.compareWindows(recent, previous)...)
	}

	if a := g.dataQualityAlert(summary); a != nil {
		alerts = append(alerts, *a)
	}
	return alerts
}

// splitWindows slices the series into a recent window of ceil(min(3, n/2))
// days and the preceding window covering the rest of the lookback, so the
// two windows together span the full period.
func splitWindows(daily []metrics.DailyMetric) (recent, previous []metrics.DailyMetric) {
	n := len(daily)
	if n < 2 {
		return nil, nil
	}
	size := int(math.Ceil(math.Min(3, float64(n)/2)))
	if size < 1 || size >= n {
		return nil, nil
	}
	recent = daily[n-size:]
	previous = daily[:n-size]
	return recent, previous
}

type windowStats struct {
	roi        float64
	revenue    float64
	orders     float64
	efficiency float64 // revenue per unit of spend
}

func summarizeWindow(window []metrics.DailyMetric) windowStats {
	var revenue, spend float64
	var orders int
	for _, d := range window {
		revenue += d.TotalRevenue
		spend += d.AdSpend
		orders += d.Orders
	}
	days := float64(len(window))
	stats := windowStats{
		roi:     metrics.SafeROI(revenue, spend),
		revenue: revenue / days,
		orders:  float64(orders) / days,
	}
	if spend > 0 {
		stats.efficiency = revenue / spend
	}
	return stats
}

func (g *Generator) compareWindows(recent, previous []metrics.DailyMetric) []Alert {
	r := summarizeWindow(recent)
	p := summarizeWindow(previous)

	var alerts []Alert
	checks := []struct {
		metric    string
		current   float64
		prior     float64
		threshold float64
		upAdvice  []string
		downAdvice []string
	}{
		{
			metric: "ROI", current: r.roi, prior: p.roi, threshold: g.thresholds.ROIChange,
			upAdvice:   []string{"ROI is accelerating — consider scaling spend on the driving sub-ids"},
			downAdvice: []string{"Review recent creative and audience changes", "Check whether marketplace commission rates changed"},
		},
		{
			metric: "Revenue", current: r.revenue, prior: p.revenue, threshold: g.thresholds.RevenueChange,
			upAdvice:   []string{"Revenue is up — verify inventory and budget headroom before scaling"},
			downAdvice: []string{"Compare per-platform order counts to isolate the drop", "Check tracking tags for broken attribution"},
		},
		{
			metric: "Orders", current: r.orders, prior: p.orders, threshold: g.thresholds.OrdersChange,
			upAdvice:   []string{"Order volume is up — watch cost per order for dilution"},
			downAdvice: []string{"Inspect conversion rate by sub-id for funnel issues"},
		},
		{
			metric: "Spend Efficiency", current: r.efficiency, prior: p.efficiency, threshold: g.thresholds.EfficiencyChange,
			upAdvice:   []string{"Spend efficiency improved — candidates for budget increase"},
			downAdvice: []string{"Pause or rework the worst-performing campaigns"},
		},
	}

	for _, c := range checks {
		change := percentChange(c.current, c.prior)
		if math.Abs(change) < c.threshold {
			continue
		}

		a := Alert{
			ID:             uuid.NewString(),
			Severity:       math.Abs(change),
			AffectedMetric: c.metric,
			CurrentValue:   c.current,
			ExpectedValue:  c.prior,
			Threshold:      c.threshold,
			CreatedAt:      g.now(),
		}
		if change > 0 {
			a.Type = TypeOpportunity
			a.Message = fmt.Sprintf("%s up %.1f%% vs the prior window", c.metric, change)
			a.Recommendations = c.upAdvice
		} else {
			a.Type = TypeWarning
			if math.Abs(change) >= g.thresholds.CriticalChange {
				a.Type = TypeCritical
			}
			a.Message = fmt.Sprintf("%s down %.1f%% vs the prior window", c.metric, math.Abs(change))
			a.Recommendations = c.downAdvice
		}
		alerts = append(alerts, a)
	}
	return alerts
}

// percentChange guards the zero-prior case: a move from zero to anything
// positive reads as +100%, zero to zero as no change.
func percentChange(current, prior float64) float64 {
	if prior == 0 {
		if current == 0 {
			return 0
		}
		if current > 0 {
			return 100
		}
		return -100
	}
	return (current - prior) / math.Abs(prior) * 100
}

// dataQualityAlert checks the snapshot itself: stale data, thin volume, or
// too few tracked sub-ids each degrade everything downstream.
func (g *Generator) dataQualityAlert(summary *metrics.Summary) *Alert {
	var issues []string

	if len(summary.Daily) > 0 {
		last := summary.Daily[len(summary.Daily)-1].Date
		if t, err := time.Parse("2006-01-02", last); err == nil {
			if g.now().Sub(t) > staleDataMaxAge {
				issues = append(issues, fmt.Sprintf("newest record is from %s (stale beyond %d days)", last, int(staleDataMaxAge.Hours()/24)))
			}
		}
	}
	totalRecords := summary.Totals.Units
	if totalRecords < minRecordVolume {
		issues = append(issues, fmt.Sprintf("only %d records in the snapshot (minimum %d for reliable analysis)", totalRecords, minRecordVolume))
	}
	if len(summary.SubIDs) < minSubIDCoverage {
		issues = append(issues, fmt.Sprintf("only %d tracked sub-ids (minimum %d)", len(summary.SubIDs), minSubIDCoverage))
	}

	if len(issues) == 0 {
		return nil
	}

	return &Alert{
		ID:              uuid.NewString(),
		Type:            TypeWarning,
		Severity:        float64(len(issues)) * 25,
		AffectedMetric:  "Data Quality",
		Threshold:       float64(minRecordVolume),
		CurrentValue:    float64(totalRecords),
		Message:         fmt.Sprintf("data quality issues: %d found", len(issues)),
		Recommendations: issues,
		CreatedAt:       g.now(),
	}
}
