package reconcile

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ignite/affiliate-monitor/internal/source"
)

// commissionTolerance is the absolute disagreement (in currency units)
// allowed between sources before a commission conflict is raised.
const commissionTolerance = 0.01

// spendTolerance is the matching allowance for ad spend reported by both a
// file export and a live API pull.
const spendTolerance = 0.01

// Reconcile deduplicates order and ad-spend observations and detects
// cross-source conflicts.
//
// Merge policy: observations of one identity from the SAME origin are summed
// (split product lines of one export). Observations from DIFFERENT origins
// describe the same real-world fact twice, so they are never summed; the
// most recently observed origin wins and a conflict is recorded when the
// values disagree beyond tolerance.
//
// Reconcile is idempotent: feeding its output back in produces no changes.
func Reconcile(orders []source.OrderRecord, ads []source.AdSpendRecord) *Result {
	res := &Result{}

	res.Orders, res.Conflicts = dedupOrders(orders, res.Conflicts)
	res.AdSpend, res.Conflicts = dedupAdSpend(ads, res.Conflicts)

	res.UnitCount = len(res.Orders)
	checkouts := make(map[string]bool)
	for _, o := range res.Orders {
		checkouts[o.CheckoutKey()] = true
	}
	res.OrderCount = len(checkouts)

	res.Recommendations = adviseOnConflicts(res.Conflicts)
	return res
}

func dedupOrders(orders []source.OrderRecord, conflicts []Conflict) ([]source.OrderRecord, []Conflict) {
	// identity -> origin -> merged observation
	byIdentity := make(map[string]map[source.Origin]*source.OrderRecord)
	var order []string

	for i := range orders {
		o := orders[i]
		key := o.IdentityKey()
		origins, ok := byIdentity[key]
		if !ok {
			origins = make(map[source.Origin]*source.OrderRecord)
			byIdentity[key] = origins
			order = append(order, key)
		}

		existing, ok := origins[o.Origin]
		if !ok {
			clone := o
			clone.SubIDs = append([]string(nil), o.SubIDs...)
			origins[o.Origin] = &clone
			continue
		}

		// Same identity, same origin: split lines of one export, summed.
		existing.Commission += o.Commission
		existing.OrderValue += o.OrderValue
		existing.SubIDs = mergeSubIDs(existing.SubIDs, o.SubIDs)
		if existing.OrderDate == nil {
			existing.OrderDate = o.OrderDate
		}
		if o.ObservedAt.After(existing.ObservedAt) {
			existing.ObservedAt = o.ObservedAt
			if o.Status != "" {
				existing.Status = o.Status
			}
		}
	}

	out := make([]source.OrderRecord, 0, len(byIdentity))
	for _, key := range order {
		origins := byIdentity[key]
		winner := pickOrderWinner(origins)

		if len(origins) > 1 {
			conflicts = appendOrderConflicts(conflicts, key, origins)
		}
		out = append(out, *winner)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].IdentityKey() < out[j].IdentityKey() })
	return out, conflicts
}

// pickOrderWinner applies the most-recent-source-wins default across origins.
func pickOrderWinner(origins map[source.Origin]*source.OrderRecord) *source.OrderRecord {
	var winner *source.OrderRecord
	for _, rec := range origins {
		if winner == nil || rec.ObservedAt.After(winner.ObservedAt) {
			winner = rec
		}
	}
	return winner
}

func appendOrderConflicts(conflicts []Conflict, key string, origins map[source.Origin]*source.OrderRecord) []Conflict {
	fileRec := origins[source.OriginFileImport]
	apiRec := origins[source.OriginAPI]
	if fileRec == nil || apiRec == nil {
		return conflicts
	}

	diff := math.Abs(fileRec.Commission - apiRec.Commission)
	if diff <= commissionTolerance {
		return conflicts
	}

	conflicts = append(conflicts, Conflict{
		Type: ConflictCommissionMismatch,
		Description: fmt.Sprintf("order %s: commission %.2f (file import) vs %.2f (API), diff %.2f",
			key, fileRec.Commission, apiRec.Commission, diff),
		AffectedEntities: []string{key},
		Severity:         gradeSeverity(diff, math.Max(fileRec.Commission, apiRec.Commission)),
	})
	return conflicts
}

func dedupAdSpend(ads []source.AdSpendRecord, conflicts []Conflict) ([]source.AdSpendRecord, []Conflict) {
	byIdentity := make(map[string]map[source.Origin]*source.AdSpendRecord)
	var order []string

	for i := range ads {
		a := ads[i]
		key := a.IdentityKey()
		origins, ok := byIdentity[key]
		if !ok {
			origins = make(map[source.Origin]*source.AdSpendRecord)
			byIdentity[key] = origins
			order = append(order, key)
		}

		existing, ok := origins[a.Origin]
		if !ok {
			clone := a
			origins[a.Origin] = &clone
			continue
		}

		existing.Spend += a.Spend
		existing.Impressions += a.Impressions
		existing.Clicks += a.Clicks
		existing.Reach += a.Reach
		if existing.Date == nil {
			existing.Date = a.Date
		}
		if existing.SubID == "" {
			existing.SubID = a.SubID
		}
		if a.ObservedAt.After(existing.ObservedAt) {
			existing.ObservedAt = a.ObservedAt
		}
	}

	out := make([]source.AdSpendRecord, 0, len(byIdentity))
	for _, key := range order {
		origins := byIdentity[key]

		var winner *source.AdSpendRecord
		for _, rec := range origins {
			if winner == nil || rec.ObservedAt.After(winner.ObservedAt) {
				winner = rec
			}
		}

		if fileRec, apiRec := origins[source.OriginFileImport], origins[source.OriginAPI]; fileRec != nil && apiRec != nil {
			diff := math.Abs(fileRec.Spend - apiRec.Spend)
			if diff > spendTolerance {
				conflicts = append(conflicts, Conflict{
					Type: ConflictSpendMismatch,
					Description: fmt.Sprintf("campaign %q: spend %.2f (file import) vs %.2f (API), diff %.2f",
						winner.CampaignName, fileRec.Spend, apiRec.Spend, diff),
					AffectedEntities: []string{key},
					Severity:         gradeSeverity(diff, math.Max(fileRec.Spend, apiRec.Spend)),
				})
			}
		}
		out = append(out, *winner)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].IdentityKey() < out[j].IdentityKey() })
	return out, conflicts
}

// gradeSeverity grades a disagreement by its relative size.
func gradeSeverity(diff, base float64) ConflictSeverity {
	if base <= 0 {
		return SeverityLow
	}
	ratio := diff / base
	switch {
	case ratio > 0.5:
		return SeverityHigh
	case ratio > 0.2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// mergeSubIDs unions two sub-id lists preserving first-appearance order.
func mergeSubIDs(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, s := range a {
		seen[strings.ToLower(s)] = true
	}
	for _, s := range b {
		lower := strings.ToLower(s)
		if !seen[lower] {
			seen[lower] = true
			out = append(out, s)
		}
	}
	return out
}

// adviseOnConflicts turns conflicts into review guidance for the operator.
func adviseOnConflicts(conflicts []Conflict) []string {
	if len(conflicts) == 0 {
		return nil
	}

	var spend, commission int
	for _, c := range conflicts {
		switch c.Type {
		case ConflictSpendMismatch:
			spend++
		case ConflictCommissionMismatch:
			commission++
		}
	}

	var out []string
	if spend > 0 {
		out = append(out, fmt.Sprintf("%d campaign(s) report spend from both file import and live API; the most recent source was used — remove one source or align the export window", spend))
	}
	if commission > 0 {
		out = append(out, fmt.Sprintf("%d order(s) have commission values that disagree across sources; the most recent source was used — re-export and verify against the marketplace dashboard", commission))
	}
	return out
}
