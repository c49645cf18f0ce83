package metrics

import (
	"sort"
	"strings"

	"github.com/ignite/affiliate-monitor/internal/source"
)

// SafeROI computes (revenue - spend) / spend * 100, guarded to 0 when spend
// is 0. Every ratio in this package carries the same zero guard; the
// pipeline never divides by zero.
func SafeROI(revenue, spend float64) float64 {
	if spend == 0 {
		return 0
	}
	return (revenue - spend) / spend * 100
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Aggregate rolls deduplicated records into daily, per-sub-id and
// per-platform summaries.
//
// Ad-spend-to-sub-id attribution is an approximate join, not a foreign key:
// a record's spend is attributed to a sub-id when the sub-id string appears
// (case-insensitive) anywhere in the concatenated campaign/ad-set/ad names,
// or when the record carries that explicit sub-id. Overlapping tag names in
// campaign naming can therefore attribute one record to several sub-ids.
func Aggregate(orders []source.OrderRecord, ads []source.AdSpendRecord) *Summary {
	s := &Summary{}

	dailyMap := make(map[string]*DailyMetric)
	subIDMap := make(map[string]*SubIDStats)
	platformMap := make(map[source.Platform]*PlatformStats)

	// Checkout-level order counting: SKU lines of one Lazada checkout are
	// separate units but one logical order.
	checkoutSeen := make(map[string]bool)
	checkoutSeenByDay := make(map[string]bool)
	checkoutSeenBySubID := make(map[string]bool)
	checkoutSeenByPlatform := make(map[string]bool)

	subIDDays := make(map[string]map[string]bool)
	subIDDayRevenue := make(map[string]map[string]float64)

	for i := range orders {
		o := &orders[i]
		checkout := o.CheckoutKey()

		s.Totals.Revenue += o.Commission
		s.Totals.Units++
		if !checkoutSeen[checkout] {
			checkoutSeen[checkout] = true
			s.Totals.Orders++
		}

		p := platformMap[o.SourcePlatform]
		if p == nil {
			p = &PlatformStats{Platform: o.SourcePlatform}
			platformMap[o.SourcePlatform] = p
		}
		p.Revenue += o.Commission
		p.Units++
		pk := string(o.SourcePlatform) + "|" + checkout
		if !checkoutSeenByPlatform[pk] {
			checkoutSeenByPlatform[pk] = true
			p.Orders++
		}

		var dateStr string
		if o.OrderDate != nil {
			dateStr = o.OrderDate.Format("2006-01-02")
			d := dailyMap[dateStr]
			if d == nil {
				d = &DailyMetric{Date: dateStr, OrdersByPlatform: make(map[source.Platform]int)}
				dailyMap[dateStr] = d
			}
			d.TotalRevenue += o.Commission
			d.Units++
			dk := dateStr + "|" + checkout
			if !checkoutSeenByDay[dk] {
				checkoutSeenByDay[dk] = true
				d.Orders++
				d.OrdersByPlatform[o.SourcePlatform]++
			}
		} else {
			s.DatelessOrders++
		}

		for _, sub := range o.SubIDs {
			key := strings.ToLower(sub)
			st := subIDMap[key]
			if st == nil {
				st = &SubIDStats{SubID: sub}
				subIDMap[key] = st
				subIDDays[key] = make(map[string]bool)
				subIDDayRevenue[key] = make(map[string]float64)
			}
			st.Revenue += o.Commission
			st.Units++
			sk := key + "|" + checkout
			if !checkoutSeenBySubID[sk] {
				checkoutSeenBySubID[sk] = true
				st.Orders++
			}
			if dateStr != "" {
				subIDDays[key][dateStr] = true
				subIDDayRevenue[key][dateStr] += o.Commission
			}
		}
	}

	for i := range ads {
		a := &ads[i]

		s.Totals.AdSpend += a.Spend
		s.Totals.Clicks += a.Clicks
		s.Totals.Impressions += a.Impressions

		if a.Date != nil {
			dateStr := a.Date.Format("2006-01-02")
			d := dailyMap[dateStr]
			if d == nil {
				d = &DailyMetric{Date: dateStr, OrdersByPlatform: make(map[source.Platform]int)}
				dailyMap[dateStr] = d
			}
			d.AdSpend += a.Spend
			d.Clicks += a.Clicks
		} else {
			s.DatelessAds++
		}

		matched := attributeSubIDs(a, subIDMap)
		if len(matched) == 0 {
			s.UnattributedSpend += a.Spend
			continue
		}
		for _, st := range matched {
			st.AdSpend += a.Spend
			st.Clicks += a.Clicks
			st.Impressions += a.Impressions
		}
	}

	s.Totals.Profit = s.Totals.Revenue - s.Totals.AdSpend
	s.Totals.ROI = SafeROI(s.Totals.Revenue, s.Totals.AdSpend)

	// Daily series, ascending by date.
	s.Daily = make([]DailyMetric, 0, len(dailyMap))
	for _, d := range dailyMap {
		d.Profit = d.TotalRevenue - d.AdSpend
		d.ROI = SafeROI(d.TotalRevenue, d.AdSpend)
		s.Daily = append(s.Daily, *d)
	}
	sort.Slice(s.Daily, func(i, j int) bool { return s.Daily[i].Date < s.Daily[j].Date })

	// Sub-id rollups, revenue descending.
	s.SubIDs = make([]SubIDStats, 0, len(subIDMap))
	for key, st := range subIDMap {
		st.ROI = SafeROI(st.Revenue, st.AdSpend)
		st.CostPerOrder = safeDiv(st.AdSpend, float64(st.Orders))
		st.RevenuePerOrder = safeDiv(st.Revenue, float64(st.Orders))
		st.ConversionRate = safeDiv(float64(st.Orders), float64(st.Clicks)) * 100
		st.ActiveDays = len(subIDDays[key])
		s.SubIDs = append(s.SubIDs, *st)
	}
	sort.Slice(s.SubIDs, func(i, j int) bool { return s.SubIDs[i].Revenue > s.SubIDs[j].Revenue })

	// Per-sub-id revenue aligned to the daily series, zero-filled.
	s.SubIDDailyRevenue = make(map[string][]float64, len(subIDDayRevenue))
	for key, byDay := range subIDDayRevenue {
		series := make([]float64, len(s.Daily))
		for i, d := range s.Daily {
			series[i] = byDay[d.Date]
		}
		s.SubIDDailyRevenue[key] = series
	}

	// Platform rollups, revenue descending. Platform ad spend is the
	// marketplace share of attributed spend via each platform's sub-ids;
	// with only one ad source the whole spend pool is compared against
	// the blended revenue, so platform ROI uses total spend share by
	// revenue weight.
	s.Platforms = make([]PlatformStats, 0, len(platformMap))
	for _, p := range platformMap {
		p.AdSpend = safeDiv(p.Revenue, s.Totals.Revenue) * s.Totals.AdSpend
		p.ROI = SafeROI(p.Revenue, p.AdSpend)
		p.RevenuePerOrder = safeDiv(p.Revenue, float64(p.Orders))
		s.Platforms = append(s.Platforms, *p)
	}
	sort.Slice(s.Platforms, func(i, j int) bool { return s.Platforms[i].Revenue > s.Platforms[j].Revenue })

	return s
}

// attributeSubIDs resolves which sub-id rollups an ad record's spend
// belongs to.
func attributeSubIDs(a *source.AdSpendRecord, subIDMap map[string]*SubIDStats) []*SubIDStats {
	if a.SubID != "" {
		key := strings.ToLower(a.SubID)
		if st, ok := subIDMap[key]; ok {
			return []*SubIDStats{st}
		}
	}

	blob := strings.ToLower(a.NameBlob())
	if strings.TrimSpace(blob) == "" {
		return nil
	}

	var matched []*SubIDStats
	for key, st := range subIDMap {
		if strings.Contains(blob, key) {
			matched = append(matched, st)
		}
	}
	return matched
}
