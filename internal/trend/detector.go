package trend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ignite/affiliate-monitor/internal/metrics"
)

// Direction classifies the slope of a metric series.
type Direction string

const (
	TrendImproving Direction = "improving"
	TrendDeclining Direction = "declining"
	TrendStable    Direction = "stable"
)

// Significance rates how much the detected slope should be trusted.
type Significance string

const (
	SignificanceHigh   Significance = "high"
	SignificanceMedium Significance = "medium"
	SignificanceLow    Significance = "low"
)

// MinDataPoints is the shortest daily series the detector will fit a line
// through. Shorter series yield an explicit insufficient-data result, not
// an error.
const MinDataPoints = 7

// insufficientDataConfidence is the confidence reported for series shorter
// than MinDataPoints.
const insufficientDataConfidence = 20.0

// Detection is the trend verdict for one tracked metric.
type Detection struct {
	Metric           string       `json:"metric"`
	Trend            Direction    `json:"trend"`
	Strength         float64      `json:"strength"` // 0-100
	Slope            float64      `json:"slope"`
	ChangePercentage float64      `json:"change_percentage"`
	Significance     Significance `json:"significance"`
	Confidence       float64      `json:"confidence"` // 0-100
	Timeframe        string       `json:"timeframe"`
	DataPoints       int          `json:"data_points"`
}

// Pattern flags a recurring weekday or week-of-month effect.
type Pattern struct {
	Type        string  `json:"type"` // "weekly" or "seasonal"
	Metric      string  `json:"metric"`
	BestGroup   string  `json:"best_group"`
	WorstGroup  string  `json:"worst_group"`
	ImpactRatio float64 `json:"impact_ratio"` // (best-worst)/|worst|
	Description string  `json:"description"`
}

// Slope classification thresholds, in absolute units of each metric's own
// scale. A percentage-point-per-day slope of 1 means very different things
// for ROI than for daily revenue, so these are per metric, not normalized.
var slopeThresholds = map[string]float64{
	"ROI":     1,
	"Revenue": 10,
	"Orders":  0.5,
	"AdSpend": 5,
}

// highSignificanceSlope and highSignificanceCV gate the "high" rating:
// both the magnitude and the series stability must clear their bar.
const (
	highSignificanceSlope = 2.0
	highSignificanceCV    = 0.3
	mediumSignificanceCV  = 0.6
)

// minWeeklyImpact and minSeasonalImpact keep noise out of the pattern
// report: a weekday or week-of-month grouping is only flagged when the
// relative spread between the best and worst group clears the bar.
const (
	minWeeklyImpact     = 0.10
	minSeasonalImpact   = 0.15
	seasonalMinimumDays = 30
)

// DetectAll runs trend detection over the daily series for every tracked
// metric.
func DetectAll(daily []metrics.DailyMetric) []Detection {
	return []Detection{
		Detect("ROI", extract(daily, func(d metrics.DailyMetric) float64 { return d.ROI })),
		Detect("Revenue", extract(daily, func(d metrics.DailyMetric) float64 { return d.TotalRevenue })),
		Detect("Orders", extract(daily, func(d metrics.DailyMetric) float64 { return float64(d.Orders) })),
		Detect("AdSpend", extract(daily, func(d metrics.DailyMetric) float64 { return d.AdSpend })),
	}
}

func extract(daily []metrics.DailyMetric, f func(metrics.DailyMetric) float64) []float64 {
	out := make([]float64, len(daily))
	for i, d := range daily {
		out[i] = f(d)
	}
	return out
}

// Detect fits an ordinary least-squares line through value-vs-day-index
// and classifies the slope against the metric's threshold.
func Detect(metric string, series []float64) Detection {
	n := len(series)
	det := Detection{
		Metric:     metric,
		Trend:      TrendStable,
		Timeframe:  fmt.Sprintf("%dd", n),
		DataPoints: n,
	}

	if n < MinDataPoints {
		det.Significance = SignificanceLow
		det.Confidence = insufficientDataConfidence
		return det
	}

	slope, intercept := leastSquares(series)
	det.Slope = slope

	threshold, ok := slopeThresholds[metric]
	if !ok {
		threshold = 1
	}
	switch {
	case slope > threshold:
		det.Trend = TrendImproving
	case slope < -threshold:
		det.Trend = TrendDeclining
	}

	det.Strength = math.Min(100, math.Abs(slope)/threshold*20)

	// Change over the window, measured on the fitted line so a single
	// outlier endpoint does not dominate.
	first := intercept
	last := intercept + slope*float64(n-1)
	if first != 0 {
		det.ChangePercentage = (last - first) / math.Abs(first) * 100
	}

	cv := coefficientOfVariation(series)
	det.Significance = rateSignificance(slope, cv)
	det.Confidence = clamp(40+2*float64(n)-50*cv, 10, 95)
	return det
}

func rateSignificance(slope, cv float64) Significance {
	abs := math.Abs(slope)
	switch {
	case abs > highSignificanceSlope && cv < highSignificanceCV:
		return SignificanceHigh
	case abs > 1 && cv < mediumSignificanceCV:
		return SignificanceMedium
	default:
		return SignificanceLow
	}
}

// leastSquares returns the OLS slope and intercept of series against its
// index 0..n-1.
func leastSquares(series []float64) (slope, intercept float64) {
	n := float64(len(series))
	if n < 2 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func coefficientOfVariation(series []float64) float64 {
	n := float64(len(series))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var ss float64
	for _, v := range series {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss/n) / math.Abs(mean)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// DetectPatterns looks for weekday and week-of-month effects in daily
// revenue. Groups are compared by mean value and a pattern is only flagged
// when the relative spread clears the minimum-impact bar.
func DetectPatterns(daily []metrics.DailyMetric) []Pattern {
	var patterns []Pattern

	if p := weekdayPattern(daily); p != nil {
		patterns = append(patterns, *p)
	}
	if len(daily) >= seasonalMinimumDays {
		if p := weekOfMonthPattern(daily); p != nil {
			patterns = append(patterns, *p)
		}
	}
	return patterns
}

func weekdayPattern(daily []metrics.DailyMetric) *Pattern {
	groups := make(map[string][]float64)
	for _, d := range daily {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		day := t.Weekday().String()
		groups[day] = append(groups[day], d.TotalRevenue)
	}
	return comparePatternGroups("weekly", "Revenue", groups, minWeeklyImpact, "weekday")
}

func weekOfMonthPattern(daily []metrics.DailyMetric) *Pattern {
	groups := make(map[string][]float64)
	for _, d := range daily {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		week := (t.Day()-1)/7 + 1
		key := fmt.Sprintf("week %d", week)
		groups[key] = append(groups[key], d.TotalRevenue)
	}
	return comparePatternGroups("seasonal", "Revenue", groups, minSeasonalImpact, "week of month")
}

func comparePatternGroups(patternType, metric string, groups map[string][]float64, minImpact float64, unit string) *Pattern {
	if len(groups) < 2 {
		return nil
	}

	type groupMean struct {
		name string
		mean float64
	}
	means := make([]groupMean, 0, len(groups))
	for name, vals := range groups {
		var sum float64
		for _, v := range vals {
			sum += v
		}
		means = append(means, groupMean{name: name, mean: sum / float64(len(vals))})
	}
	sort.Slice(means, func(i, j int) bool { return means[i].mean > means[j].mean })

	best, worst := means[0], means[len(means)-1]
	if worst.mean <= 0 {
		return nil
	}
	impact := (best.mean - worst.mean) / worst.mean
	if impact < minImpact {
		return nil
	}

	return &Pattern{
		Type:        patternType,
		Metric:      metric,
		BestGroup:   best.name,
		WorstGroup:  worst.name,
		ImpactRatio: impact,
		Description: fmt.Sprintf("%s averages %.0f%% higher on %s %s than %s", metric, impact*100, unit, best.name, worst.name),
	}
}
