package optimizer_test

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ignite/affiliate-monitor/internal/analyzer"
	"github.com/ignite/affiliate-monitor/internal/optimizer"
)

// TestBudgetConservationProperty verifies sum(recommended) == totalBudget
// within tolerance for arbitrary performance mixes.
func TestBudgetConservationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("allocations conserve the total budget", prop.ForAll(
		func(rois []int16, spends []int16, orders []int8, totalBudget int32) bool {
			n := len(rois)
			if len(spends) < n {
				n = len(spends)
			}
			if len(orders) < n {
				n = len(orders)
			}
			if n == 0 {
				return true
			}

			perfs := make([]analyzer.SubIDPerformance, n)
			for i := 0; i < n; i++ {
				perfs[i] = analyzer.SubIDPerformance{
					SubID:            string(rune('a' + i%26)),
					ROI:              float64(rois[i]),
					AdSpend:          float64(spends[i]),
					Orders:           int(orders[i]),
					PerformanceScore: math.Max(0, math.Min(100, float64(rois[i]))),
				}
			}

			budget := float64(totalBudget)
			o := optimizer.New(optimizer.DefaultConstraints(budget), analyzer.DefaultConfig())
			plan := o.Optimize(perfs, 14)

			var sum float64
			for _, a := range plan.Allocations {
				sum += a.RecommendedBudget
			}
			return math.Abs(sum-budget) <= 0.01
		},
		gen.SliceOf(gen.Int16Range(-100, 200)),
		gen.SliceOf(gen.Int16Range(0, 10000)),
		gen.SliceOf(gen.Int8Range(0, 100)),
		gen.Int32Range(100, 1000000),
	))

	properties.TestingRun(t)
}

// TestLowPerformerMonotonicityProperty verifies a sub-id under the low ROI
// threshold never ends up with more than its current share.
func TestLowPerformerMonotonicityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	cfg := analyzer.DefaultConfig()

	properties.Property("low performers are never granted more budget", prop.ForAll(
		func(lowROI int16, otherROI int16, lowSpend int16, otherSpend int16) bool {
			perfs := []analyzer.SubIDPerformance{
				{SubID: "low", ROI: float64(lowROI), AdSpend: float64(lowSpend) + 1, Orders: 20, PerformanceScore: 10},
				{SubID: "other", ROI: float64(otherROI), AdSpend: float64(otherSpend) + 1, Orders: 20, PerformanceScore: 80},
			}

			o := optimizer.New(optimizer.DefaultConstraints(10000), cfg)
			plan := o.Optimize(perfs, 14)

			for _, a := range plan.Allocations {
				if a.SubID == "low" && a.RecommendedBudget > a.CurrentBudget+0.01 {
					return false
				}
			}
			return true
		},
		gen.Int16Range(-100, 19), // strictly under the low threshold
		gen.Int16Range(-100, 200),
		gen.Int16Range(0, 10000),
		gen.Int16Range(0, 10000),
	))

	properties.TestingRun(t)
}
