package metrics

import "github.com/ignite/affiliate-monitor/internal/source"

// DailyMetric is the per-calendar-day rollup. Records without a parseable
// date never appear here; they are still counted in the cross-sectional
// totals.
type DailyMetric struct {
	Date             string                     `json:"date"` // YYYY-MM-DD
	TotalRevenue     float64                    `json:"total_revenue"`
	AdSpend          float64                    `json:"ad_spend"`
	Profit           float64                    `json:"profit"`
	ROI              float64                    `json:"roi"`
	Orders           int                        `json:"orders"`
	Units            int                        `json:"units"`
	Clicks           int64                      `json:"clicks"`
	OrdersByPlatform map[source.Platform]int    `json:"orders_by_platform"`
}

// SubIDStats is the cross-sectional rollup for one sub-id.
type SubIDStats struct {
	SubID           string  `json:"sub_id"`
	Orders          int     `json:"orders"`
	Units           int     `json:"units"`
	Revenue         float64 `json:"revenue"`
	AdSpend         float64 `json:"ad_spend"`
	Clicks          int64   `json:"clicks"`
	Impressions     int64   `json:"impressions"`
	ROI             float64 `json:"roi"`
	CostPerOrder    float64 `json:"cost_per_order"`
	RevenuePerOrder float64 `json:"revenue_per_order"`
	ConversionRate  float64 `json:"conversion_rate"`
	ActiveDays      int     `json:"active_days"`
}

// PlatformStats is the cross-sectional rollup for one marketplace platform.
type PlatformStats struct {
	Platform        source.Platform `json:"platform"`
	Orders          int             `json:"orders"`
	Units           int             `json:"units"`
	Revenue         float64         `json:"revenue"`
	AdSpend         float64         `json:"ad_spend"`
	ROI             float64         `json:"roi"`
	RevenuePerOrder float64         `json:"revenue_per_order"`
}

// Totals is the all-time cross-sectional summary, nil-date records included.
type Totals struct {
	Revenue     float64 `json:"revenue"`
	AdSpend     float64 `json:"ad_spend"`
	Profit      float64 `json:"profit"`
	ROI         float64 `json:"roi"`
	Orders      int     `json:"orders"`
	Units       int     `json:"units"`
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
}

// Summary is the aggregator output consumed by every downstream stage.
type Summary struct {
	Daily             []DailyMetric   `json:"daily"`
	SubIDs            []SubIDStats    `json:"sub_ids"`
	Platforms         []PlatformStats `json:"platforms"`
	Totals            Totals          `json:"totals"`
	UnattributedSpend float64         `json:"unattributed_spend"`
	DatelessOrders    int             `json:"dateless_orders"`
	DatelessAds       int             `json:"dateless_ads"`

	// SubIDDailyRevenue is each sub-id's revenue aligned to the Daily
	// series (same order, zero-filled), keyed by lowercase sub-id. Used
	// for per-entity trend classification.
	SubIDDailyRevenue map[string][]float64 `json:"-"`
}
