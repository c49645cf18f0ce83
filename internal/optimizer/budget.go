package optimizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/ignite/affiliate-monitor/internal/analyzer"
)

// Constraints bound a budget reallocation pass.
type Constraints struct {
	TotalBudget          float64 `yaml:"total_budget"`
	MinPerSubID          float64 `yaml:"min_per_sub_id"`
	MaxPerSubID          float64 `yaml:"max_per_sub_id"`
	MaxReallocationRatio float64 `yaml:"max_reallocation_ratio"` // e.g. 0.3 = +30% max per entity
}

// DefaultConstraints returns a workable stock constraint set for callers
// that only configure the total.
func DefaultConstraints(totalBudget float64) Constraints {
	return Constraints{
		TotalBudget:          totalBudget,
		MinPerSubID:          0,
		MaxPerSubID:          totalBudget,
		MaxReallocationRatio: 0.5,
	}
}

// maxLowPerformerCut caps how much of a low performer's budget one pass may
// take away.
const maxLowPerformerCut = 0.5

// budgetTolerance is the float drift allowed on total-budget conservation.
const budgetTolerance = 0.01

// Allocation is the recommended budget for one sub-id.
type Allocation struct {
	SubID             string  `json:"sub_id"`
	CurrentBudget     float64 `json:"current_budget"`
	RecommendedBudget float64 `json:"recommended_budget"`
	ExpectedROI       float64 `json:"expected_roi"`
	Confidence        float64 `json:"confidence"` // clamped to [50,90]
	Reasoning         string  `json:"reasoning"`
}

// Plan is the full reallocation produced by one pass.
type Plan struct {
	Allocations []Allocation `json:"allocations"`
	TotalBudget float64      `json:"total_budget"`
	FreedBudget float64      `json:"freed_budget"`
	Confidence  float64      `json:"confidence"`
}

// Optimizer computes budget reallocations. Stateless; the performance
// thresholds come from the analyzer configuration so the two stages agree
// on what "low" and "high" mean.
type Optimizer struct {
	constraints Constraints
	scoring     analyzer.Config
}

// New creates an optimizer for one constraint set.
func New(constraints Constraints, scoring analyzer.Config) *Optimizer {
	if constraints.MaxPerSubID == 0 {
		constraints.MaxPerSubID = constraints.TotalBudget
	}
	if constraints.MaxReallocationRatio == 0 {
		constraints.MaxReallocationRatio = 0.5
	}
	return &Optimizer{constraints: constraints, scoring: scoring}
}

// Optimize runs the single-pass allocation:
//
//  1. current allocation proportional to historical spend share,
//  2. low performers cut by up to half, floored at the per-entity minimum,
//  3. the freed budget shared across high performers, capped by the
//     per-entity maximum and the reallocation ratio guard,
//  4. proportional rescale so the plan total matches the configured budget
//     exactly.
func (o *Optimizer) Optimize(perfs []analyzer.SubIDPerformance, historyDays int) *Plan {
	plan := &Plan{TotalBudget: o.constraints.TotalBudget}
	if len(perfs) == 0 || o.constraints.TotalBudget <= 0 {
		return plan
	}

	var totalSpend float64
	for _, p := range perfs {
		totalSpend += p.AdSpend
	}

	allocations := make([]Allocation, len(perfs))
	for i, p := range perfs {
		var current float64
		if totalSpend > 0 {
			current = p.AdSpend / totalSpend * o.constraints.TotalBudget
		} else {
			current = o.constraints.TotalBudget / float64(len(perfs))
		}
		allocations[i] = Allocation{
			SubID:             p.SubID,
			CurrentBudget:     current,
			RecommendedBudget: current,
			ExpectedROI:       p.ROI,
			Confidence:        o.allocationConfidence(p, historyDays),
			Reasoning:         "performance within bands, allocation held",
		}
	}

	// Pass 2: cut low performers.
	var freed float64
	var cutIdx []int
	for i, p := range perfs {
		if p.ROI >= o.scoring.ROILowThreshold {
			continue
		}
		a := &allocations[i]
		target := math.Max(o.constraints.MinPerSubID, a.CurrentBudget*(1-maxLowPerformerCut))
		if target >= a.CurrentBudget {
			continue
		}
		freed += a.CurrentBudget - target
		cutIdx = append(cutIdx, i)
		a.RecommendedBudget = target
		a.Reasoning = fmt.Sprintf("ROI %.1f%% below the %.0f%% threshold, budget cut", p.ROI, o.scoring.ROILowThreshold)
	}
	plan.FreedBudget = freed

	// Pass 3: redistribute to high performers, strongest score first so the
	// cap-constrained remainder flows down the ranking.
	remaining := freed
	if freed > 0 {
		type boost struct {
			idx   int
			score float64
		}
		var boosts []boost
		var scoreSum float64
		for i, p := range perfs {
			if p.ROI > o.scoring.ROIHighThreshold && p.Orders >= o.scoring.MinReliableOrders {
				boosts = append(boosts, boost{idx: i, score: p.PerformanceScore})
				scoreSum += p.PerformanceScore
			}
		}
		sort.Slice(boosts, func(i, j int) bool { return boosts[i].score > boosts[j].score })

		for _, b := range boosts {
			if remaining <= 0 {
				break
			}
			a := &allocations[b.idx]

			share := freed / float64(len(boosts))
			if scoreSum > 0 {
				share = freed * b.score / scoreSum
			}

			headroomCap := a.CurrentBudget * (1 + o.constraints.MaxReallocationRatio)
			ceiling := math.Min(o.constraints.MaxPerSubID, headroomCap)
			increase := math.Min(share, ceiling-a.RecommendedBudget)
			increase = math.Min(increase, remaining)
			if increase <= 0 {
				continue
			}
			a.RecommendedBudget += increase
			remaining -= increase
			a.Reasoning = fmt.Sprintf("ROI %.1f%% above the %.0f%% threshold with %d orders, budget increased",
				perfs[b.idx].ROI, o.scoring.ROIHighThreshold, perfs[b.idx].Orders)
		}
	}

	// Budget that no eligible high performer could absorb flows back to the
	// cut entities (never past their original allocation), so the guard on
	// per-entity increases survives the final rescale.
	if remaining > budgetTolerance && len(cutIdx) > 0 {
		var cutTotal float64
		for _, i := range cutIdx {
			cutTotal += allocations[i].CurrentBudget - allocations[i].RecommendedBudget
		}
		if cutTotal > 0 {
			for _, i := range cutIdx {
				a := &allocations[i]
				giveBack := remaining * (a.CurrentBudget - a.RecommendedBudget) / cutTotal
				a.RecommendedBudget = math.Min(a.CurrentBudget, a.RecommendedBudget+giveBack)
			}
		}
	}

	// Pass 4: proportional rescale so the totals match exactly.
	var sum float64
	for i := range allocations {
		sum += allocations[i].RecommendedBudget
	}
	if sum > 0 && math.Abs(sum-o.constraints.TotalBudget) > budgetTolerance {
		factor := o.constraints.TotalBudget / sum
		for i := range allocations {
			allocations[i].RecommendedBudget *= factor
		}
	}

	plan.Allocations = allocations
	plan.Confidence = o.planConfidence(perfs, historyDays)
	return plan
}

// allocationConfidence starts from a base and rewards reliable volume and
// history depth, clamped to [50,90].
func (o *Optimizer) allocationConfidence(p analyzer.SubIDPerformance, historyDays int) float64 {
	score := 65.0
	if p.Orders >= o.scoring.MinReliableOrders {
		score += 10
	} else {
		score -= 10
	}
	score += math.Min(float64(historyDays), 30) * 0.5 // up to +15
	return math.Max(50, math.Min(90, score))
}

func (o *Optimizer) planConfidence(perfs []analyzer.SubIDPerformance, historyDays int) float64 {
	if len(perfs) == 0 {
		return 50
	}
	var reliable int
	for _, p := range perfs {
		if p.Orders >= o.scoring.MinReliableOrders {
			reliable++
		}
	}
	score := 60 + 20*float64(reliable)/float64(len(perfs)) + math.Min(float64(historyDays), 30)/3
	return math.Max(50, math.Min(90, score))
}

// Validate re-checks a plan against the constraints and returns
// human-readable violations instead of failing.
func Validate(plan *Plan, c Constraints) []string {
	var violations []string
	if plan == nil {
		return []string{"no plan produced"}
	}

	var sum float64
	for _, a := range plan.Allocations {
		sum += a.RecommendedBudget

		if a.RecommendedBudget < c.MinPerSubID-budgetTolerance {
			violations = append(violations, fmt.Sprintf("sub-id %s allocated %.2f, below the per-entity minimum %.2f", a.SubID, a.RecommendedBudget, c.MinPerSubID))
		}
		if c.MaxPerSubID > 0 && a.RecommendedBudget > c.MaxPerSubID+budgetTolerance {
			violations = append(violations, fmt.Sprintf("sub-id %s allocated %.2f, above the per-entity maximum %.2f", a.SubID, a.RecommendedBudget, c.MaxPerSubID))
		}
		if c.MaxReallocationRatio > 0 && a.CurrentBudget > 0 {
			increase := (a.RecommendedBudget - a.CurrentBudget) / a.CurrentBudget
			if increase > c.MaxReallocationRatio+budgetTolerance {
				violations = append(violations, fmt.Sprintf("sub-id %s increased %.0f%%, beyond the %.0f%% reallocation guard", a.SubID, increase*100, c.MaxReallocationRatio*100))
			}
		}
	}

	if len(plan.Allocations) > 0 && math.Abs(sum-c.TotalBudget) > budgetTolerance {
		violations = append(violations, fmt.Sprintf("plan total %.2f does not match the configured budget %.2f", sum, c.TotalBudget))
	}
	return violations
}
