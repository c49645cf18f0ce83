package reconcile

import "github.com/ignite/affiliate-monitor/internal/source"

// ConflictType classifies a cross-source disagreement.
type ConflictType string

const (
	ConflictSpendMismatch      ConflictType = "spend_mismatch"
	ConflictCommissionMismatch ConflictType = "commission_mismatch"
)

// ConflictSeverity grades how much a conflict distorts the numbers.
type ConflictSeverity string

const (
	SeverityLow    ConflictSeverity = "low"
	SeverityMedium ConflictSeverity = "medium"
	SeverityHigh   ConflictSeverity = "high"
)

// Conflict records a contradiction between sources for the same entity.
// Conflicts are surfaced, never silently resolved; downstream proceeds with
// the documented most-recent-source-wins default.
type Conflict struct {
	Type             ConflictType     `json:"type"`
	Description      string           `json:"description"`
	AffectedEntities []string         `json:"affected_entities"`
	Severity         ConflictSeverity `json:"severity"`
}

// Result is the output of one reconciliation pass: deduplicated records,
// the conflicts found while merging, and advisory strings for human review.
type Result struct {
	Orders          []source.OrderRecord   `json:"orders"`
	AdSpend         []source.AdSpendRecord `json:"ad_spend"`
	Conflicts       []Conflict             `json:"conflicts"`
	Recommendations []string               `json:"recommendations"`

	// UnitCount counts SKU-line units; OrderCount counts logical checkouts.
	// The two differ for Lazada, where one checkout spans several SKU lines.
	UnitCount  int `json:"unit_count"`
	OrderCount int `json:"order_count"`
}
