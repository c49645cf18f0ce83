package advisor

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/affiliate-monitor/internal/analyzer"
	"github.com/ignite/affiliate-monitor/internal/optimizer"
	"github.com/ignite/affiliate-monitor/internal/trend"
)

// RecType buckets recommendations by the lever they pull.
type RecType string

const (
	RecBudget   RecType = "budget"
	RecPlatform RecType = "platform"
	RecSubID    RecType = "subid"
	RecCreative RecType = "creative"
	RecTiming   RecType = "timing"
)

// Priority orders recommendations for the operator.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is one actionable suggestion synthesized from the
// analysis outputs. Types are independent and may co-occur.
type Recommendation struct {
	ID                      string    `json:"id"`
	Type                    RecType   `json:"type"`
	Priority                Priority  `json:"priority"`
	Title                   string    `json:"title"`
	ExpectedImpact          float64   `json:"expected_impact"` // currency units
	ConfidenceScore         float64   `json:"confidence_score"` // 0-100
	ActionItems             []string  `json:"action_items"`
	EstimatedROIImprovement float64   `json:"estimated_roi_improvement"` // percentage points
	AffectedSubIDs          []string  `json:"affected_sub_ids,omitempty"`
	AffectedPlatforms       []string  `json:"affected_platforms,omitempty"`
	DataPoints              int       `json:"data_points"`
	CreatedAt               time.Time `json:"created_at"`
}

// significantShift is the relative budget change below which an allocation
// move is not worth a recommendation.
const significantShift = 0.10

// Inputs carries everything the synthesizer maps from.
type Inputs struct {
	SubIDs     []analyzer.SubIDPerformance
	Platforms  []analyzer.PlatformPerformance
	Plan       *optimizer.Plan
	Trends     []trend.Detection
	Patterns   []trend.Pattern
	DataPoints int
}

// Synthesize turns the analyzer, optimizer and trend outputs into
// recommendations. Pure mapping; no scoring of its own beyond impact
// arithmetic.
func Synthesize(in Inputs) []Recommendation {
	now := time.Now()
	var recs []Recommendation

	if r := budgetRecommendation(in, now); r != nil {
		recs = append(recs, *r)
	}
	if r := platformRecommendation(in, now); r != nil {
		recs = append(recs, *r)
	}
	recs = append(recs, subIDRecommendations(in, now)...)
	if r := creativeRecommendation(in, now); r != nil {
		recs = append(recs, *r)
	}
	if r := timingRecommendation(in, now); r != nil {
		recs = append(recs, *r)
	}
	return recs
}

func budgetRecommendation(in Inputs, now time.Time) *Recommendation {
	if in.Plan == nil || len(in.Plan.Allocations) == 0 {
		return nil
	}

	var actions []string
	var affected []string
	var movedBudget float64
	for _, a := range in.Plan.Allocations {
		if a.CurrentBudget <= 0 {
			continue
		}
		shift := (a.RecommendedBudget - a.CurrentBudget) / a.CurrentBudget
		if math.Abs(shift) < significantShift {
			continue
		}
		verb := "increase"
		if shift < 0 {
			verb = "reduce"
		}
		actions = append(actions, fmt.Sprintf("%s %s budget from %.0f to %.0f (%+.0f%%)",
			verb, a.SubID, a.CurrentBudget, a.RecommendedBudget, shift*100))
		affected = append(affected, a.SubID)
		movedBudget += math.Abs(a.RecommendedBudget - a.CurrentBudget)
	}
	if len(actions) == 0 {
		return nil
	}

	// Impact estimate: moved budget re-earning at the plan's blended ROI
	// spread between winners and losers.
	roiSpread := roiSpread(in.Plan)
	impact := movedBudget * roiSpread / 100

	priority := PriorityMedium
	if movedBudget > in.Plan.TotalBudget*0.2 {
		priority = PriorityHigh
	}

	return &Recommendation{
		ID:                      uuid.NewString(),
		Type:                    RecBudget,
		Priority:                priority,
		Title:                   fmt.Sprintf("Reallocate %.0f of budget toward proven sub-ids", movedBudget),
		ExpectedImpact:          impact,
		ConfidenceScore:         in.Plan.Confidence,
		ActionItems:             actions,
		EstimatedROIImprovement: roiSpread * movedBudget / math.Max(in.Plan.TotalBudget, 1),
		AffectedSubIDs:          affected,
		DataPoints:              in.DataPoints,
		CreatedAt:               now,
	}
}

// roiSpread is the ROI gap between boosted and cut allocations.
func roiSpread(plan *optimizer.Plan) float64 {
	var hi, lo float64
	var hiSet, loSet bool
	for _, a := range plan.Allocations {
		switch {
		case a.RecommendedBudget > a.CurrentBudget:
			if !hiSet || a.ExpectedROI > hi {
				hi, hiSet = a.ExpectedROI, true
			}
		case a.RecommendedBudget < a.CurrentBudget:
			if !loSet || a.ExpectedROI < lo {
				lo, loSet = a.ExpectedROI, true
			}
		}
	}
	if !hiSet || !loSet {
		return 0
	}
	return hi - lo
}

func platformRecommendation(in Inputs, now time.Time) *Recommendation {
	if len(in.Platforms) < 2 {
		return nil
	}
	best, worst := in.Platforms[0], in.Platforms[len(in.Platforms)-1]
	if best.PerformanceScore-worst.PerformanceScore < 20 {
		return nil
	}

	return &Recommendation{
		ID:       uuid.NewString(),
		Type:     RecPlatform,
		Priority: PriorityMedium,
		Title:    fmt.Sprintf("Shift focus toward %s", best.Platform),
		ActionItems: []string{
			fmt.Sprintf("%s scores %.0f vs %s at %.0f — prioritize %s listings in new campaigns",
				best.Platform, best.PerformanceScore, worst.Platform, worst.PerformanceScore, best.Platform),
		},
		ExpectedImpact:    (best.ROI - worst.ROI) / 100 * worst.AdSpend,
		ConfidenceScore:   70,
		AffectedPlatforms: []string{string(best.Platform), string(worst.Platform)},
		DataPoints:        in.DataPoints,
		CreatedAt:         now,
	}
}

func subIDRecommendations(in Inputs, now time.Time) []Recommendation {
	var recs []Recommendation
	for _, p := range in.SubIDs {
		if p.RiskLevel != analyzer.RiskHigh {
			continue
		}
		recs = append(recs, Recommendation{
			ID:       uuid.NewString(),
			Type:     RecSubID,
			Priority: PriorityHigh,
			Title:    fmt.Sprintf("Review high-risk sub-id %s", p.SubID),
			ActionItems: []string{
				fmt.Sprintf("%s runs ROI %.1f%% over %d orders with %.0f spend — pause or restructure before the next cycle",
					p.SubID, p.ROI, p.Orders, p.AdSpend),
			},
			ExpectedImpact:  math.Max(0, -p.ROI/100*p.AdSpend),
			ConfidenceScore: p.ConfidenceScore,
			AffectedSubIDs:  []string{p.SubID},
			DataPoints:      in.DataPoints,
			CreatedAt:       now,
		})
	}
	return recs
}

func creativeRecommendation(in Inputs, now time.Time) *Recommendation {
	var declining []string
	for _, d := range in.Trends {
		if d.Trend == trend.TrendDeclining && (d.Metric == "ROI" || d.Metric == "Revenue") {
			declining = append(declining, fmt.Sprintf("%s declining (%.1f%% over %s)", d.Metric, d.ChangePercentage, d.Timeframe))
		}
	}
	if len(declining) == 0 {
		return nil
	}

	return &Recommendation{
		ID:              uuid.NewString(),
		Type:            RecCreative,
		Priority:        PriorityMedium,
		Title:           "Refresh ad creatives against the downward trend",
		ActionItems:     append(declining, "Rotate in new creative variants and retire the bottom quartile"),
		ConfidenceScore: 60,
		DataPoints:      in.DataPoints,
		CreatedAt:       now,
	}
}

func timingRecommendation(in Inputs, now time.Time) *Recommendation {
	for _, p := range in.Patterns {
		if p.Type != "weekly" {
			continue
		}
		return &Recommendation{
			ID:       uuid.NewString(),
			Type:     RecTiming,
			Priority: PriorityLow,
			Title:    fmt.Sprintf("Weight spend toward %s", p.BestGroup),
			ActionItems: []string{
				p.Description,
				fmt.Sprintf("Schedule budget pushes on %s and ease off on %s", p.BestGroup, p.WorstGroup),
			},
			ConfidenceScore: 55,
			DataPoints:      in.DataPoints,
			CreatedAt:       now,
		}
	}
	return nil
}
