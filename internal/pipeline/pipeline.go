package pipeline

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/ignite/affiliate-monitor/internal/advisor"
	"github.com/ignite/affiliate-monitor/internal/alert"
	"github.com/ignite/affiliate-monitor/internal/analyzer"
	"github.com/ignite/affiliate-monitor/internal/metrics"
	"github.com/ignite/affiliate-monitor/internal/optimizer"
	"github.com/ignite/affiliate-monitor/internal/reconcile"
	"github.com/ignite/affiliate-monitor/internal/source"
	"github.com/ignite/affiliate-monitor/internal/trend"
)

// modelVersion tags analysis results so cached output from older formula
// revisions can be told apart.
const modelVersion = "heuristic-2.1"

// predictionHorizonDays is how far the trend line is projected forward.
const predictionHorizonDays = 7

// RowSet is one batch of raw rows from a single platform and origin.
type RowSet struct {
	Platform source.Platform `json:"platform"`
	Origin   source.Origin   `json:"origin"`
	Rows     []source.RawRow `json:"rows"`
}

// Precomputed is an optional caller-supplied snapshot of totals the caller
// already aggregated. The pipeline recomputes everything itself and uses
// this only for cross-validation.
type Precomputed struct {
	TotalRevenue float64               `json:"total_revenue"`
	TotalOrders  int                   `json:"total_orders"`
	Daily        []metrics.DailyMetric `json:"daily,omitempty"`
}

// Input is one full snapshot for a synchronous analysis pass.
type Input struct {
	OrderRows   []RowSet     `json:"order_rows"`
	AdSpendRows []RowSet     `json:"ad_spend_rows"`
	Precomputed *Precomputed `json:"precomputed,omitempty"`
}

// Prediction projects a metric along its fitted trend line.
type Prediction struct {
	Metric         string  `json:"metric"`
	Horizon        string  `json:"horizon"`
	CurrentValue   float64 `json:"current_value"`
	ProjectedValue float64 `json:"projected_value"`
	Confidence     float64 `json:"confidence"`
}

// Metadata describes one analysis pass.
type Metadata struct {
	DataPointsAnalyzed int       `json:"data_points_analyzed"`
	Confidence         float64   `json:"confidence"`
	ModelVersion       string    `json:"model_version"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// AnalysisResult is the full derived output of one pass.
type AnalysisResult struct {
	Recommendations    []advisor.Recommendation       `json:"recommendations"`
	Predictions        []Prediction                   `json:"predictions"`
	Alerts             []alert.Alert                  `json:"alerts"`
	Insights           []string                       `json:"insights"`
	BudgetOptimization *optimizer.Plan                `json:"budget_optimization,omitempty"`
	SubIDs             []analyzer.SubIDPerformance    `json:"sub_id_performance"`
	Platforms          []analyzer.PlatformPerformance `json:"platform_performance"`
	Trends             []trend.Detection              `json:"trends"`
	Patterns           []trend.Pattern                `json:"patterns"`
	Metadata           Metadata                       `json:"metadata"`
}

// Stats summarizes what one pass processed.
type Stats struct {
	TotalRecordsProcessed int            `json:"total_records_processed"`
	DataSourceBreakdown   map[string]int `json:"data_source_breakdown"`
	DataQualityScore      float64        `json:"data_quality_score"`
	ProcessingTimeMS      int64          `json:"processing_time_ms"`
}

// Report is everything a caller gets back from Analyze. Errors and warnings
// are carried inside it; Analyze itself never fails.
type Report struct {
	AIData           *AnalysisResult      `json:"ai_data"`
	Summary          *metrics.Summary     `json:"summary"`
	Conflicts        []reconcile.Conflict `json:"conflicts"`
	AggregationStats Stats                `json:"aggregation_stats"`
	Warnings         []string             `json:"warnings"`
	Errors           []string             `json:"errors"`
}

// Options configures one Pipeline. Zero values fall back to the package
// defaults of each stage.
type Options struct {
	AlertThresholds *alert.Thresholds
	Scoring         analyzer.Config
	Budget          *optimizer.Constraints
}

// Pipeline runs the full analysis pass. Stateless between invocations; safe
// for concurrent use.
type Pipeline struct {
	thresholds alert.Thresholds
	scoring    analyzer.Config
	budget     *optimizer.Constraints
	now        func() time.Time
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		thresholds: alert.DefaultThresholds(),
		scoring:    opts.Scoring,
		budget:     opts.Budget,
		now:        time.Now,
	}
	if opts.AlertThresholds != nil {
		p.thresholds = *opts.AlertThresholds
	}
	return p
}

// Analyze runs one synchronous pass: normalize, reconcile, aggregate,
// detect, score, optimize, recommend. It always returns a usable Report;
// degraded input degrades the content, never the call.
func (p *Pipeline) Analyze(in Input) *Report {
	start := p.now()
	report := &Report{
		AggregationStats: Stats{DataSourceBreakdown: map[string]int{}},
	}

	orders, ads := p.normalize(in, report)

	if len(orders) == 0 && len(ads) == 0 && in.Precomputed == nil {
		report.Errors = append(report.Errors, "no order rows, ad-spend rows, or precomputed metrics supplied")
	}

	rec := reconcile.Reconcile(orders, ads)
	report.Conflicts = rec.Conflicts
	for _, c := range rec.Conflicts {
		report.Warnings = append(report.Warnings, c.Description)
	}
	report.Warnings = append(report.Warnings, rec.Recommendations...)

	summary := metrics.Aggregate(rec.Orders, rec.AdSpend)
	report.Summary = summary

	if in.Precomputed != nil {
		report.Warnings = append(report.Warnings, validatePrecomputed(in.Precomputed, summary)...)
	}

	trends := trend.DetectAll(summary.Daily)
	patterns := trend.DetectPatterns(summary.Daily)
	alerts := alert.NewGenerator(p.thresholds).Generate(summary)

	an := analyzer.New(p.scoring)
	subIDs := an.AnalyzeSubIDs(summary)
	platforms := an.AnalyzePlatforms(summary)

	var plan *optimizer.Plan
	if len(subIDs) > 0 {
		constraints := p.constraintsFor(summary)
		plan = optimizer.New(constraints, an.Config()).Optimize(subIDs, len(summary.Daily))
		if violations := optimizer.Validate(plan, constraints); len(violations) > 0 {
			report.Warnings = append(report.Warnings, violations...)
		}
	}

	recs := advisor.Synthesize(advisor.Inputs{
		SubIDs:     subIDs,
		Platforms:  platforms,
		Plan:       plan,
		Trends:     trends,
		Patterns:   patterns,
		DataPoints: report.AggregationStats.TotalRecordsProcessed,
	})

	report.AIData = &AnalysisResult{
		Recommendations:    recs,
		Predictions:        predict(summary.Daily, trends),
		Alerts:             alerts,
		Insights:           insights(summary, subIDs, platforms),
		BudgetOptimization: plan,
		SubIDs:             subIDs,
		Platforms:          platforms,
		Trends:             trends,
		Patterns:           patterns,
		Metadata: Metadata{
			DataPointsAnalyzed: report.AggregationStats.TotalRecordsProcessed,
			Confidence:         passConfidence(summary, subIDs),
			ModelVersion:       modelVersion,
			GeneratedAt:        p.now(),
		},
	}

	report.AggregationStats.DataQualityScore = p.qualityScore(summary, rec, report)
	report.AggregationStats.ProcessingTimeMS = p.now().Sub(start).Milliseconds()

	log.Printf("[pipeline] analyzed %d records: %d conflicts, %d alerts, %d recommendations, quality %.0f",
		report.AggregationStats.TotalRecordsProcessed, len(rec.Conflicts), len(alerts), len(recs),
		report.AggregationStats.DataQualityScore)

	return report
}

func (p *Pipeline) normalize(in Input, report *Report) ([]source.OrderRecord, []source.AdSpendRecord) {
	var orders []source.OrderRecord
	var ads []source.AdSpendRecord

	for _, set := range in.OrderRows {
		orders = append(orders, source.NormalizeOrders(set.Platform, set.Origin, set.Rows)...)
		p.countRows(report, set)
	}
	for _, set := range in.AdSpendRows {
		ads = append(ads, source.NormalizeAdSpend(set.Platform, set.Origin, set.Rows)...)
		p.countRows(report, set)
	}
	return orders, ads
}

func (p *Pipeline) countRows(report *Report, set RowSet) {
	key := fmt.Sprintf("%s_%s", set.Platform, set.Origin)
	report.AggregationStats.DataSourceBreakdown[key] += len(set.Rows)
	report.AggregationStats.TotalRecordsProcessed += len(set.Rows)
}

// constraintsFor fills in the operating budget when the caller configured
// none: total observed ad spend is taken as the budget being reallocated.
func (p *Pipeline) constraintsFor(summary *metrics.Summary) optimizer.Constraints {
	if p.budget != nil && p.budget.TotalBudget > 0 {
		return *p.budget
	}
	return optimizer.DefaultConstraints(summary.Totals.AdSpend)
}

// precomputedTolerance is the relative disagreement allowed before a
// caller-supplied snapshot is flagged.
const precomputedTolerance = 0.01

// validatePrecomputed cross-checks a caller-supplied snapshot against the
// pipeline's own aggregation. Mismatches become warnings; the pipeline's
// numbers are used either way.
func validatePrecomputed(pre *Precomputed, summary *metrics.Summary) []string {
	var warnings []string

	if !closeEnough(pre.TotalRevenue, summary.Totals.Revenue) {
		warnings = append(warnings, fmt.Sprintf(
			"precomputed revenue %.2f disagrees with aggregated %.2f; using aggregated value",
			pre.TotalRevenue, summary.Totals.Revenue))
	}
	if pre.TotalOrders != summary.Totals.Orders {
		warnings = append(warnings, fmt.Sprintf(
			"precomputed order count %d disagrees with aggregated %d; using aggregated value",
			pre.TotalOrders, summary.Totals.Orders))
	}
	if len(pre.Daily) > 0 && len(pre.Daily) != len(summary.Daily) {
		warnings = append(warnings, fmt.Sprintf(
			"precomputed daily series has %d days, aggregation produced %d",
			len(pre.Daily), len(summary.Daily)))
	}
	return warnings
}

func closeEnough(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= 0.01 {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= scale*precomputedTolerance
}

// predict projects each detected trend forward along its fitted slope.
// Insufficient-data detections are skipped rather than projected.
func predict(daily []metrics.DailyMetric, trends []trend.Detection) []Prediction {
	if len(daily) == 0 {
		return nil
	}
	last := daily[len(daily)-1]
	current := map[string]float64{
		"ROI":     last.ROI,
		"Revenue": last.TotalRevenue,
		"Orders":  float64(last.Orders),
		"AdSpend": last.AdSpend,
	}

	var preds []Prediction
	for _, d := range trends {
		if d.DataPoints < trend.MinDataPoints {
			continue
		}
		cur := current[d.Metric]
		preds = append(preds, Prediction{
			Metric:         d.Metric,
			Horizon:        fmt.Sprintf("%dd", predictionHorizonDays),
			CurrentValue:   cur,
			ProjectedValue: cur + d.Slope*predictionHorizonDays,
			Confidence:     d.Confidence,
		})
	}
	return preds
}

// insights are the short human-readable highlights of a pass.
func insights(summary *metrics.Summary, subIDs []analyzer.SubIDPerformance, platforms []analyzer.PlatformPerformance) []string {
	var out []string

	if summary.Totals.Orders > 0 {
		out = append(out, fmt.Sprintf("%d orders across %d sub-ids produced %.2f revenue at %.1f%% overall ROI",
			summary.Totals.Orders, len(summary.SubIDs), summary.Totals.Revenue, summary.Totals.ROI))
	}
	if len(subIDs) > 0 {
		top := subIDs[0]
		out = append(out, fmt.Sprintf("top sub-id %s scores %.0f/100 with ROI %.1f%%",
			top.SubID, top.PerformanceScore, top.ROI))
	}
	if len(platforms) > 0 {
		best := platforms[0]
		out = append(out, fmt.Sprintf("%s leads platforms with %.2f revenue over %d orders",
			best.Platform, best.Revenue, best.Orders))
	}
	if summary.UnattributedSpend > 0 && summary.Totals.AdSpend > 0 {
		share := summary.UnattributedSpend / summary.Totals.AdSpend * 100
		out = append(out, fmt.Sprintf("%.0f%% of ad spend could not be attributed to any sub-id", share))
	}
	return out
}

// passConfidence is the overall trust in this pass's numbers.
func passConfidence(summary *metrics.Summary, subIDs []analyzer.SubIDPerformance) float64 {
	if len(subIDs) == 0 {
		return 20
	}
	var sum float64
	for _, s := range subIDs {
		sum += s.ConfidenceScore
	}
	confidence := sum / float64(len(subIDs))
	if len(summary.Daily) < trend.MinDataPoints {
		confidence *= 0.8
	}
	return math.Round(confidence)
}

// qualityScore grades the input snapshot 0-100. Deductions, not rewards:
// a full, dated, attributed, conflict-free snapshot keeps 100.
func (p *Pipeline) qualityScore(summary *metrics.Summary, rec *reconcile.Result, report *Report) float64 {
	score := 100.0

	total := report.AggregationStats.TotalRecordsProcessed
	if total == 0 {
		score -= 50
	} else if total < 50 {
		score -= 15
	}
	if len(summary.SubIDs) < 3 {
		score -= 10
	}
	if len(summary.Platforms) == 0 {
		score -= 10
	}

	dateless := summary.DatelessOrders + summary.DatelessAds
	if total > 0 && dateless > 0 {
		score -= math.Min(20, float64(dateless)/float64(total)*100)
	}
	if summary.Totals.AdSpend > 0 {
		score -= math.Min(15, summary.UnattributedSpend/summary.Totals.AdSpend*30)
	}
	score -= math.Min(15, float64(len(rec.Conflicts))*5)

	return math.Max(0, score)
}
